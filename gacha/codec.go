package gacha

import (
	"encoding/binary"
	"errors"
	"fmt"

	"github.com/bitfsorg/libgacha-go/identity"
)

// ErrInvalidPoolData indicates a serialized pool is truncated or inconsistent.
var ErrInvalidPoolData = errors.New("gacha: invalid pool data")

const (
	poolCodecVersion = 1

	// version(1) + id(8) + admin(20) + flags(1) + pulls(8) + settles(8) + events(8)
	poolHeaderSize  = 1 + 8 + identity.Size + 1 + 8 + 8 + 8
	configEntrySize = 32 + 8 + identity.Size

	flagFinalized = 1 << 0
	flagPaused    = 1 << 1
	flagHalted    = 1 << 2
)

// MarshalBinary encodes p in a compact big-endian layout. Only the occupied
// part of each arena is written.
func (p *Pool) MarshalBinary() ([]byte, error) {
	size := poolHeaderSize + 2 + 2 + 2*int(p.remainingCount) + 1 + configEntrySize*int(p.configCount) + 1 + int(p.decryptionKey.n)
	for i := 0; i < int(p.keyCount); i++ {
		size += 1 + int(p.keys[i].n)
	}
	buf := make([]byte, 0, size)

	buf = append(buf, poolCodecVersion)
	buf = binary.BigEndian.AppendUint64(buf, uint64(p.ID))
	buf = append(buf, p.Admin[:]...)
	var flags byte
	if p.Finalized {
		flags |= flagFinalized
	}
	if p.Paused {
		flags |= flagPaused
	}
	if p.Halted {
		flags |= flagHalted
	}
	buf = append(buf, flags)
	buf = binary.BigEndian.AppendUint64(buf, p.PullCount)
	buf = binary.BigEndian.AppendUint64(buf, p.SettleCount)
	buf = binary.BigEndian.AppendUint64(buf, p.eventSeq)

	buf = binary.BigEndian.AppendUint16(buf, p.keyCount)
	for i := 0; i < int(p.keyCount); i++ {
		k := &p.keys[i]
		buf = append(buf, k.n)
		buf = append(buf, k.b[:k.n]...)
	}

	buf = binary.BigEndian.AppendUint16(buf, p.remainingCount)
	for i := 0; i < int(p.remainingCount); i++ {
		buf = binary.BigEndian.AppendUint16(buf, p.remaining[i])
	}

	buf = append(buf, p.configCount)
	for i := 0; i < int(p.configCount); i++ {
		c := &p.configs[i]
		buf = append(buf, c.Method[:]...)
		buf = binary.BigEndian.AppendUint64(buf, c.Price)
		buf = append(buf, c.Recipient[:]...)
	}

	buf = append(buf, p.decryptionKey.n)
	buf = append(buf, p.decryptionKey.b[:p.decryptionKey.n]...)
	return buf, nil
}

// UnmarshalBinary decodes data written by MarshalBinary and checks the arena
// invariants.
func (p *Pool) UnmarshalBinary(data []byte) error {
	r := reader{data: data}
	if v := r.readByte(); v != poolCodecVersion && r.err == nil {
		return fmt.Errorf("%w: version %d", ErrInvalidPoolData, v)
	}

	var out Pool
	out.ID = PoolID(r.readUint64())
	copy(out.Admin[:], r.bytes(identity.Size))
	flags := r.readByte()
	out.Finalized = flags&flagFinalized != 0
	out.Paused = flags&flagPaused != 0
	out.Halted = flags&flagHalted != 0
	out.PullCount = r.readUint64()
	out.SettleCount = r.readUint64()
	out.eventSeq = r.readUint64()

	out.keyCount = r.readUint16()
	if out.keyCount > MaxKeys {
		return fmt.Errorf("%w: %d records", ErrInvalidPoolData, out.keyCount)
	}
	for i := 0; i < int(out.keyCount) && r.err == nil; i++ {
		n := int(r.readByte())
		if n == 0 || n > MaxKeyLen {
			return fmt.Errorf("%w: record %d has length %d", ErrInvalidPoolData, i, n)
		}
		out.keys[i].set(r.bytes(n))
	}

	out.remainingCount = r.readUint16()
	if out.remainingCount > out.keyCount {
		return fmt.Errorf("%w: %d remaining of %d", ErrInvalidPoolData, out.remainingCount, out.keyCount)
	}
	if !out.Finalized && out.remainingCount != 0 {
		return fmt.Errorf("%w: %d remaining before finalize", ErrInvalidPoolData, out.remainingCount)
	}
	var seen [MaxKeys]bool
	for i := 0; i < int(out.remainingCount) && r.err == nil; i++ {
		k := r.readUint16()
		if r.err != nil {
			break
		}
		if k >= out.keyCount {
			return fmt.Errorf("%w: remaining index %d", ErrInvalidPoolData, k)
		}
		if seen[k] {
			return fmt.Errorf("%w: remaining index %d repeated", ErrInvalidPoolData, k)
		}
		seen[k] = true
		out.remaining[i] = k
	}

	out.configCount = r.readByte()
	if out.configCount > MaxPaymentConfigs {
		return fmt.Errorf("%w: %d payment configs", ErrInvalidPoolData, out.configCount)
	}
	for i := 0; i < int(out.configCount) && r.err == nil; i++ {
		c := &out.configs[i]
		copy(c.Method[:], r.bytes(32))
		c.Price = r.readUint64()
		copy(c.Recipient[:], r.bytes(identity.Size))
	}

	n := int(r.readByte())
	if n > MaxKeyLen {
		return fmt.Errorf("%w: decryption key length %d", ErrInvalidPoolData, n)
	}
	out.decryptionKey.set(r.bytes(n))

	if r.err != nil {
		return r.err
	}
	if len(r.data) != r.off {
		return fmt.Errorf("%w: %d trailing bytes", ErrInvalidPoolData, len(r.data)-r.off)
	}
	if out.SettleCount > out.PullCount {
		return fmt.Errorf("%w: %d settles for %d pulls", ErrInvalidPoolData, out.SettleCount, out.PullCount)
	}
	*p = out
	return nil
}

// reader is a bounds-checked cursor; after the first short read every call
// returns zero values and err is set.
type reader struct {
	data []byte
	off  int
	err  error
}

func (r *reader) bytes(n int) []byte {
	if r.err != nil {
		return nil
	}
	if len(r.data)-r.off < n {
		r.err = fmt.Errorf("%w: truncated at offset %d", ErrInvalidPoolData, r.off)
		return nil
	}
	b := r.data[r.off : r.off+n]
	r.off += n
	return b
}

func (r *reader) readByte() byte {
	if b := r.bytes(1); b != nil {
		return b[0]
	}
	return 0
}

func (r *reader) readUint16() uint16 {
	if b := r.bytes(2); b != nil {
		return binary.BigEndian.Uint16(b)
	}
	return 0
}

func (r *reader) readUint64() uint64 {
	if b := r.bytes(8); b != nil {
		return binary.BigEndian.Uint64(b)
	}
	return 0
}
