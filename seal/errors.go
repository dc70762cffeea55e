package seal

import "errors"

var (
	// ErrInvalidKey indicates a pool key of the wrong length.
	// Keys are KeyLen (32) bytes.
	ErrInvalidKey = errors.New("seal: invalid key")

	// ErrPlaintextTooLong indicates the sealed reward would not fit in a
	// reward record.
	ErrPlaintextTooLong = errors.New("seal: plaintext too long")

	// ErrInvalidCiphertext indicates the ciphertext is too short to hold a
	// nonce and tag.
	ErrInvalidCiphertext = errors.New("seal: invalid ciphertext")

	// ErrDecryptionFailed indicates AES-GCM authentication failed.
	ErrDecryptionFailed = errors.New("seal: decryption failed")

	// ErrHKDFFailure indicates HKDF key derivation failed.
	ErrHKDFFailure = errors.New("seal: HKDF key derivation failed")
)
