package gacha

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libgacha-go/identity"
)

func populatedPool(t *testing.T) *Pool {
	t.Helper()
	p := NewPool(7, makeID(0xAD))
	for _, k := range []string{"alpha", "beta", "gamma", "delta"} {
		_, err := p.AddKey([]byte(k))
		require.NoError(t, err)
	}
	require.NoError(t, p.AddPaymentConfig(PaymentConfig{Method: Native, Price: 1000, Recipient: makeID(0xEE)}))
	require.NoError(t, p.AddPaymentConfig(PaymentConfig{Method: tokenMethod(4), Price: 3, Recipient: makeID(0xEF)}))
	require.NoError(t, p.Finalize())
	_, _, err := p.Draw(5)
	require.NoError(t, err)
	p.Paused = true
	p.PullCount = 2
	p.SettleCount = 1
	p.eventSeq = 11
	return p
}

func TestPoolBinaryRoundTrip(t *testing.T) {
	p := populatedPool(t)

	data, err := p.MarshalBinary()
	require.NoError(t, err)

	var got Pool
	require.NoError(t, got.UnmarshalBinary(data))
	if diff := cmp.Diff(p, &got, cmp.AllowUnexported(Pool{}, record{})); diff != "" {
		t.Errorf("pool mismatch (-want +got):\n%s", diff)
	}
}

func TestPoolBinary_WithDecryptionKey(t *testing.T) {
	p := NewPool(1, makeID(1))
	_, _ = p.AddKey([]byte("A"))
	require.NoError(t, p.Finalize())
	_, _, err := p.Draw(0)
	require.NoError(t, err)
	p.PullCount, p.SettleCount = 1, 1
	require.NoError(t, p.setDecryptionKey([]byte("released")))

	data, err := p.MarshalBinary()
	require.NoError(t, err)
	var got Pool
	require.NoError(t, got.UnmarshalBinary(data))
	key, ok := got.DecryptionKey()
	require.True(t, ok)
	assert.Equal(t, []byte("released"), key)
}

func TestPoolBinary_Corrupt(t *testing.T) {
	good, err := populatedPool(t).MarshalBinary()
	require.NoError(t, err)

	tests := []struct {
		name string
		data func() []byte
	}{
		{"empty", func() []byte { return nil }},
		{"truncated", func() []byte { return good[:len(good)-3] }},
		{"trailing", func() []byte { return append(append([]byte(nil), good...), 0x00) }},
		{"bad_version", func() []byte {
			b := append([]byte(nil), good...)
			b[0] = 9
			return b
		}},
		{"too_many_records", func() []byte {
			b := append([]byte(nil), good...)
			b[poolHeaderSize] = 0xFF
			return b
		}},
		{"remaining_before_finalize", func() []byte {
			b := append([]byte(nil), good...)
			b[1+8+identity.Size] &^= flagFinalized
			return b
		}},
		{"repeated_remaining_index", func() []byte {
			p := populatedPool(t)
			require.Equal(t, 3, p.RemainingCount())
			p.remaining[2] = p.remaining[0]
			b, err := p.MarshalBinary()
			require.NoError(t, err)
			return b
		}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			var p Pool
			assert.ErrorIs(t, p.UnmarshalBinary(tc.data()), ErrInvalidPoolData)
		})
	}
}
