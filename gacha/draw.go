package gacha

import "fmt"

// Draw removes one reward from the remaining set using r and returns its
// index and value.
//
// The slot is i = r mod m over the m undrawn indices; the last slot is
// swapped into i and the set shrinks by one, so the draw is O(1) and never
// repeats an index. r mod m is slightly biased toward low slots when m does
// not divide 2^64; with m <= MaxKeys the bias is below 2^-55.
func (p *Pool) Draw(r uint64) (uint16, []byte, error) {
	m := uint64(p.remainingCount)
	if m == 0 {
		return 0, nil, ErrGachaIsEmpty
	}
	i := r % m
	k := p.remaining[i]
	if k >= p.keyCount {
		return 0, nil, fmt.Errorf("%w: index %d, %d records", ErrIndexOutOfBounds, k, p.keyCount)
	}
	p.remaining[i] = p.remaining[m-1]
	p.remaining[m-1] = 0
	p.remainingCount--
	return k, p.keys[k].bytes(), nil
}
