package seal

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bitfsorg/libgacha-go/gacha"
	"github.com/bitfsorg/libgacha-go/identity"
)

func TestSealOpen(t *testing.T) {
	key, err := GenerateKey()
	require.NoError(t, err)
	require.Len(t, key, KeyLen)

	tests := []struct {
		name   string
		reward []byte
	}{
		{"empty", []byte{}},
		{"short", []byte("GIFT-1234")},
		{"max", bytes.Repeat([]byte{'x'}, MaxPlaintextLen)},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			sealed, err := Seal(tc.reward, key, 3)
			require.NoError(t, err)
			assert.Len(t, sealed, len(tc.reward)+Overhead)
			assert.LessOrEqual(t, len(sealed), gacha.MaxKeyLen)

			got, err := Open(sealed, key, 3)
			require.NoError(t, err)
			assert.Equal(t, tc.reward, got)
		})
	}
}

func TestSeal_Errors(t *testing.T) {
	key := bytes.Repeat([]byte{1}, KeyLen)

	_, err := Seal(bytes.Repeat([]byte{'x'}, MaxPlaintextLen+1), key, 1)
	assert.ErrorIs(t, err, ErrPlaintextTooLong)

	_, err = Seal([]byte("a"), key[:16], 1)
	assert.ErrorIs(t, err, ErrInvalidKey)
}

func TestOpen_Errors(t *testing.T) {
	key := bytes.Repeat([]byte{1}, KeyLen)
	sealed, err := Seal([]byte("reward"), key, 1)
	require.NoError(t, err)

	_, err = Open(sealed[:Overhead-1], key, 1)
	assert.ErrorIs(t, err, ErrInvalidCiphertext)

	_, err = Open(sealed, key, 2)
	assert.ErrorIs(t, err, ErrDecryptionFailed, "sealed for a different pool")

	other := bytes.Repeat([]byte{2}, KeyLen)
	_, err = Open(sealed, other, 1)
	assert.ErrorIs(t, err, ErrDecryptionFailed)

	tampered := append([]byte(nil), sealed...)
	tampered[len(tampered)-1] ^= 1
	_, err = Open(tampered, key, 1)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestSealedRewardThroughPool(t *testing.T) {
	key := bytes.Repeat([]byte{9}, KeyLen)
	p := gacha.NewPool(4, identity.ID{1})

	sealed, err := Seal([]byte(strings.Repeat("k", 40)), key, p.ID)
	require.NoError(t, err)
	_, err = p.AddKey(sealed)
	require.NoError(t, err)

	stored, err := p.Key(0)
	require.NoError(t, err)
	got, err := Open(stored, key, p.ID)
	require.NoError(t, err)
	assert.Equal(t, strings.Repeat("k", 40), string(got))
}
