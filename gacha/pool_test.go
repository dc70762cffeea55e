package gacha

import (
	"bytes"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAddKey(t *testing.T) {
	p := NewPool(1, makeID(1))

	n, err := p.AddKey([]byte("A"))
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	n, err = p.AddKey(bytes.Repeat([]byte{'x'}, MaxKeyLen))
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	k, err := p.Key(1)
	require.NoError(t, err)
	assert.Len(t, k, MaxKeyLen)
}

func TestAddKey_Rejections(t *testing.T) {
	full := NewPool(1, makeID(1))
	for i := 0; i < MaxKeys; i++ {
		_, err := full.AddKey([]byte(fmt.Sprintf("k%d", i)))
		require.NoError(t, err)
	}
	finalized := NewPool(2, makeID(1))
	_, _ = finalized.AddKey([]byte("A"))
	require.NoError(t, finalized.Finalize())

	tests := []struct {
		name     string
		pool     *Pool
		value    []byte
		wantErr  error
		wantKind Kind
	}{
		{"finalized", finalized, []byte("B"), ErrAlreadyFinalized, KindState},
		{"empty", NewPool(3, makeID(1)), nil, ErrEmptyKey, KindValidation},
		{"too_long", NewPool(3, makeID(1)), bytes.Repeat([]byte{'x'}, MaxKeyLen+1), ErrKeyTooLong, KindCapacity},
		{"full", full, []byte("overflow"), ErrKeyPoolFull, KindCapacity},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			before := tc.pool.KeyCount()
			_, err := tc.pool.AddKey(tc.value)
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, tc.wantKind, KindOf(err))
			assert.Equal(t, before, tc.pool.KeyCount(), "failed add must not append")
		})
	}
}

func TestAddKey_KeepsTrailingZeroBytes(t *testing.T) {
	p := NewPool(1, makeID(1))
	_, err := p.AddKey([]byte{0x01, 0x00, 0x00})
	require.NoError(t, err)
	k, err := p.Key(0)
	require.NoError(t, err)
	assert.Equal(t, []byte{0x01, 0x00, 0x00}, k)
}

func TestFinalize(t *testing.T) {
	p := NewPool(1, makeID(1))
	assert.ErrorIs(t, p.Finalize(), ErrNoKeysInPool)

	for _, k := range []string{"A", "B", "C", "D"} {
		_, err := p.AddKey([]byte(k))
		require.NoError(t, err)
	}
	require.NoError(t, p.Finalize())
	assert.True(t, p.Finalized)
	assert.Equal(t, []uint16{0, 1, 2, 3}, p.Remaining())

	assert.ErrorIs(t, p.Finalize(), ErrAlreadyFinalized)
	assert.Equal(t, 4, p.RemainingCount())
}

func TestDraw_WorkedExample(t *testing.T) {
	p := NewPool(1, makeID(1))
	for _, k := range []string{"A", "B", "C"} {
		_, err := p.AddKey([]byte(k))
		require.NoError(t, err)
	}
	require.NoError(t, p.Finalize())

	idx, reward, err := p.Draw(7)
	require.NoError(t, err)
	assert.Equal(t, uint16(1), idx)
	assert.Equal(t, []byte("B"), reward)
	assert.Equal(t, []uint16{0, 2}, p.Remaining())
}

func TestDraw_ExhaustsWithoutRepeats(t *testing.T) {
	const n = 37
	p := NewPool(1, makeID(1))
	for i := 0; i < n; i++ {
		_, err := p.AddKey([]byte(fmt.Sprintf("reward-%d", i)))
		require.NoError(t, err)
	}
	require.NoError(t, p.Finalize())

	seen := make(map[uint16]bool)
	r := uint64(0x9E3779B97F4A7C15)
	for k := 1; k <= n; k++ {
		r = r*6364136223846793005 + 1442695040888963407
		idx, reward, err := p.Draw(r)
		require.NoError(t, err)
		assert.False(t, seen[idx], "index %d drawn twice", idx)
		seen[idx] = true
		assert.Equal(t, fmt.Sprintf("reward-%d", idx), string(reward))
		assert.Equal(t, n-k, p.RemainingCount())
	}
	assert.Len(t, seen, n)

	_, _, err := p.Draw(r)
	assert.ErrorIs(t, err, ErrGachaIsEmpty)
}

func TestDraw_CorruptArena(t *testing.T) {
	p := NewPool(1, makeID(1))
	_, _ = p.AddKey([]byte("A"))
	require.NoError(t, p.Finalize())
	p.remaining[0] = 9

	_, _, err := p.Draw(0)
	assert.ErrorIs(t, err, ErrIndexOutOfBounds)
	assert.Equal(t, KindIndex, KindOf(err))
	assert.Equal(t, 1, p.RemainingCount())
}

func TestRandomFromValue(t *testing.T) {
	r, err := RandomFromValue([]byte{7, 0, 0, 0, 0, 0, 0, 0, 0xFF, 0xFF})
	require.NoError(t, err)
	assert.Equal(t, uint64(7), r)

	r, err = RandomFromValue([]byte{0, 0, 0, 0, 0, 0, 0, 1})
	require.NoError(t, err)
	assert.Equal(t, uint64(1)<<56, r)

	_, err = RandomFromValue([]byte{1, 2, 3})
	assert.ErrorIs(t, err, ErrInvalidRandomnessValue)
}

func TestCheckFresh(t *testing.T) {
	tests := []struct {
		name        string
		now, commit uint64
		wantErr     bool
	}{
		{"same_slot", 100, 100, false},
		{"at_limit", 120, 100, false},
		{"past_limit", 121, 100, true},
		{"ahead", 99, 100, true},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := checkFresh(tc.now, tc.commit, DefaultMaxSlotDifference)
			if tc.wantErr {
				assert.ErrorIs(t, err, ErrRandomnessNotCurrent)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
