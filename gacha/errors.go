package gacha

import "errors"

// Kind classifies an engine error by the rule it violated.
type Kind uint8

const (
	// KindUnknown is returned by KindOf for errors the engine did not produce.
	KindUnknown Kind = iota
	// KindState covers lifecycle violations (finalized, paused, halted, settled).
	KindState
	// KindCapacity covers fixed-arena limits.
	KindCapacity
	// KindValidation covers malformed input and payment failures.
	KindValidation
	// KindRandomness covers freshness and resolution failures of the oracle.
	KindRandomness
	// KindIndex covers internal invariant violations during a draw.
	KindIndex
	// KindAuthorization covers callers that are not the admin or the requester.
	KindAuthorization
	// KindNotFound covers unknown pools and pull requests.
	KindNotFound
)

var kindNames = [...]string{
	KindUnknown:       "unknown",
	KindState:         "state",
	KindCapacity:      "capacity",
	KindValidation:    "validation",
	KindRandomness:    "randomness",
	KindIndex:         "index",
	KindAuthorization: "authorization",
	KindNotFound:      "not_found",
}

func (k Kind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "unknown"
}

// Error is a classified engine error. Sentinels below are compared with
// errors.Is; the wrapped form carries call-specific detail.
type Error struct {
	Kind Kind
	Code string
	msg  string
}

func (e *Error) Error() string { return "gacha: " + e.msg }

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, msg: msg}
}

// KindOf returns the classification of err, or KindUnknown.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// CodeOf returns the stable error code of err, or "".
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// State errors.
var (
	ErrAlreadyFinalized      = newError(KindState, "AlreadyFinalized", "pool is already finalized")
	ErrNotFinalized          = newError(KindState, "NotFinalized", "pool is not finalized")
	ErrPaused                = newError(KindState, "GachaPaused", "pool is paused")
	ErrHalted                = newError(KindState, "GachaHalted", "pool is halted")
	ErrAlreadySettled        = newError(KindState, "AlreadySettled", "pull request is already settled")
	ErrGachaNotComplete      = newError(KindState, "GachaNotComplete", "not every reward has been settled")
	ErrDecryptionKeyReleased = newError(KindState, "DecryptionKeyAlreadyReleased", "decryption key is already released")
	ErrPoolExists            = newError(KindState, "PoolExists", "pool already exists")
)

// Capacity errors.
var (
	ErrKeyPoolFull            = newError(KindCapacity, "KeyPoolFull", "reward pool is full")
	ErrNoKeysInPool           = newError(KindCapacity, "NoKeysInPool", "reward pool has no rewards")
	ErrNotEnoughKeys          = newError(KindCapacity, "NotEnoughKeys", "every reward has been pulled")
	ErrGachaIsEmpty           = newError(KindCapacity, "GachaIsEmpty", "no rewards remain to draw")
	ErrPaymentConfigTableFull = newError(KindCapacity, "PaymentConfigTableFull", "payment config table is full")
	ErrKeyTooLong             = newError(KindCapacity, "KeyTooLong", "reward record exceeds its storage slot")
)

// Validation errors.
var (
	ErrEmptyKey               = newError(KindValidation, "EmptyKey", "reward record is empty")
	ErrInvalidKeyLength       = newError(KindValidation, "InvalidKeyLength", "decryption key length is invalid")
	ErrDuplicatePaymentConfig = newError(KindValidation, "DuplicatePaymentConfig", "payment method is already configured")
	ErrPaymentConfigNotFound  = newError(KindValidation, "PaymentConfigNotFound", "payment method is not configured")
	ErrInvalidRecipient       = newError(KindValidation, "InvalidRecipient", "payment recipient is unset")
	ErrInvalidIdentity        = newError(KindValidation, "InvalidIdentity", "identity is unset")
	ErrAccountMismatch        = newError(KindValidation, "AccountMismatch", "payment account does not match")
	ErrInsufficientFunds      = newError(KindValidation, "InsufficientFunds", "payer has insufficient funds")
	ErrMintMismatch           = newError(KindValidation, "MintMismatch", "payment method does not match")
	ErrTokenBackendMissing    = newError(KindValidation, "TokenProgramMissing", "no backend for token payment method")
	ErrInvalidPaymentProof    = newError(KindValidation, "InvalidPaymentProof", "payment proof is invalid")
	ErrPaymentFailed          = newError(KindValidation, "PaymentFailed", "payment was not completed")
)

// Randomness errors.
var (
	ErrRandomnessNotCurrent     = newError(KindRandomness, "RandomnessNotCurrent", "randomness commitment is not current")
	ErrRandomnessExpired        = newError(KindRandomness, "RandomnessExpired", "randomness commitment changed since pull")
	ErrRandomnessNotResolved    = newError(KindRandomness, "RandomnessNotResolved", "randomness is not yet resolved")
	ErrInvalidRandomnessValue   = newError(KindRandomness, "InvalidRandomnessValue", "randomness value is too short")
	ErrInvalidRandomnessAccount = newError(KindRandomness, "InvalidRandomnessAccount", "randomness source does not match")
	ErrSlotNotPassed            = newError(KindRandomness, "SlotNotPassed", "settle must happen after the pull slot")
)

// Index errors.
var (
	ErrIndexOutOfBounds = newError(KindIndex, "IndexOutOfBounds", "reward index out of bounds")
)

// Authorization errors.
var (
	ErrUnauthorized = newError(KindAuthorization, "Unauthorized", "caller is not authorized")
)

// Not-found errors.
var (
	ErrPoolNotFound    = newError(KindNotFound, "PoolNotFound", "pool not found")
	ErrRequestNotFound = newError(KindNotFound, "RequestNotFound", "pull request not found")
)
