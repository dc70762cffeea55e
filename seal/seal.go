// Package seal encrypts reward keys so a pool can hold them before the
// operator is ready to disclose them.
//
// Each pool has a 32-byte decryption key. Rewards are sealed under
//
//	aes_key = HKDF-SHA256(pool_key, salt=LE64(pool_id), "gacha-reward-seal")
//
// and stored as nonce(12B) || AES-256-GCM(reward) || tag(16B). Once the pool
// is drained the admin publishes pool_key through ReleaseDecryptionKey and
// winners open their rewards with Open.
package seal

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"io"

	"golang.org/x/crypto/hkdf"

	"github.com/bitfsorg/libgacha-go/gacha"
)

const (
	// KeyLen is the length of a pool decryption key.
	KeyLen = 32

	// HKDFInfo is the info string for reward key derivation.
	HKDFInfo = "gacha-reward-seal"

	// NonceLen is the length of the AES-GCM nonce in bytes.
	NonceLen = 12

	// GCMTagLen is the length of the GCM authentication tag in bytes.
	GCMTagLen = 16

	// Overhead is the number of bytes sealing adds to a reward.
	Overhead = NonceLen + GCMTagLen

	// MaxPlaintextLen is the longest reward whose sealed form still fits
	// in a reward record.
	MaxPlaintextLen = gacha.MaxKeyLen - Overhead
)

// GenerateKey returns a random pool decryption key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeyLen)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("seal: generate key: %w", err)
	}
	return key, nil
}

// DeriveKey derives the AES-256 key for pool from its decryption key.
func DeriveKey(poolKey []byte, pool gacha.PoolID) ([]byte, error) {
	if len(poolKey) != KeyLen {
		return nil, fmt.Errorf("%w: got %d bytes, want %d", ErrInvalidKey, len(poolKey), KeyLen)
	}
	var salt [8]byte
	binary.LittleEndian.PutUint64(salt[:], uint64(pool))

	r := hkdf.New(sha256.New, poolKey, salt[:], []byte(HKDFInfo))
	key := make([]byte, 32)
	if _, err := io.ReadFull(r, key); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrHKDFFailure, err)
	}
	return key, nil
}

// Seal encrypts reward for pool.
func Seal(reward, poolKey []byte, pool gacha.PoolID) ([]byte, error) {
	if len(reward) > MaxPlaintextLen {
		return nil, fmt.Errorf("%w: %d bytes, max %d", ErrPlaintextTooLong, len(reward), MaxPlaintextLen)
	}
	key, err := DeriveKey(poolKey, pool)
	if err != nil {
		return nil, err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	nonce := make([]byte, NonceLen)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("seal: random nonce generation failed: %w", err)
	}
	return gcm.Seal(nonce, nonce, reward, nil), nil
}

// Open decrypts a reward sealed for pool.
func Open(sealed, poolKey []byte, pool gacha.PoolID) ([]byte, error) {
	if len(sealed) < Overhead {
		return nil, ErrInvalidCiphertext
	}
	key, err := DeriveKey(poolKey, pool)
	if err != nil {
		return nil, err
	}
	gcm, err := newGCM(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := gcm.Open(nil, sealed[:NonceLen], sealed[NonceLen:], nil)
	if err != nil {
		return nil, ErrDecryptionFailed
	}
	if plaintext == nil {
		plaintext = []byte{}
	}
	return plaintext, nil
}

func newGCM(key []byte) (cipher.AEAD, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, fmt.Errorf("%w: AES cipher creation failed: %v", ErrDecryptionFailed, err)
	}
	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("%w: GCM creation failed: %v", ErrDecryptionFailed, err)
	}
	return gcm, nil
}
