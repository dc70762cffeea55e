package gacha

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/bitfsorg/libgacha-go/identity"
)

// EventKind names an audit event.
type EventKind string

// Audit event kinds.
const (
	EventPoolInitialized       EventKind = "GachaInitialized"
	EventKeyAdded              EventKind = "KeyAdded"
	EventPoolFinalized         EventKind = "GachaFinalized"
	EventPaused                EventKind = "GachaPaused"
	EventHalted                EventKind = "GachaHalted"
	EventAdminTransferred      EventKind = "AdminTransferred"
	EventPaymentConfigAdded    EventKind = "PaymentConfigAdded"
	EventPaymentConfigRemoved  EventKind = "PaymentConfigRemoved"
	EventPulled                EventKind = "GachaPulled"
	EventResult                EventKind = "GachaResult"
	EventDecryptionKeyReleased EventKind = "DecryptionKeyReleased"
)

// Event is one audit record. Seq increases by one per event within a pool.
type Event struct {
	ID      string
	Pool    PoolID
	Seq     uint64
	Kind    EventKind
	Actor   identity.ID
	Slot    uint64
	At      time.Time
	Payload any
}

// Event payloads.
type (
	PoolInitialized struct {
		Admin identity.ID `json:"admin"`
	}
	KeyAdded struct {
		Key       []byte `json:"key"`
		TotalKeys int    `json:"total_keys"`
	}
	PoolFinalized struct {
		TotalKeys int `json:"total_keys"`
	}
	PausedChanged struct {
		Paused bool `json:"paused"`
	}
	HaltedChanged struct {
		Halted bool `json:"halted"`
	}
	AdminTransferred struct {
		Previous identity.ID `json:"previous"`
		New      identity.ID `json:"new"`
	}
	PaymentConfigAdded struct {
		PaymentConfig
	}
	PaymentConfigRemoved struct {
		Method MethodID `json:"method"`
	}
	// Pulled and Settled carry the pool's counts as of the event, so
	// consumers can track them without replaying history.
	Pulled struct {
		Nonce      uint64   `json:"nonce"`
		Method     MethodID `json:"method"`
		Price      uint64   `json:"price"`
		Source     string   `json:"source"`
		CommitSlot uint64   `json:"commit_slot"`
		Pending    uint64   `json:"pending"`
	}
	Settled struct {
		Nonce       uint64      `json:"nonce"`
		Requester   identity.ID `json:"requester"`
		RewardIndex uint16      `json:"reward_index"`
		Reward      []byte      `json:"reward"`
		Remaining   int         `json:"remaining"`
		Pending     uint64      `json:"pending"`
	}
	DecryptionKeyReleased struct {
		Key []byte `json:"key"`
	}
)

type eventEnvelope struct {
	ID      string          `json:"id"`
	Pool    PoolID          `json:"pool"`
	Seq     uint64          `json:"seq"`
	Kind    EventKind       `json:"kind"`
	Actor   identity.ID     `json:"actor"`
	Slot    uint64          `json:"slot"`
	At      time.Time       `json:"at"`
	Payload json.RawMessage `json:"payload"`
}

// MarshalEvent encodes ev as JSON.
func MarshalEvent(ev Event) ([]byte, error) {
	payload, err := json.Marshal(ev.Payload)
	if err != nil {
		return nil, fmt.Errorf("gacha: encode %s payload: %w", ev.Kind, err)
	}
	return json.Marshal(eventEnvelope{
		ID: ev.ID, Pool: ev.Pool, Seq: ev.Seq, Kind: ev.Kind,
		Actor: ev.Actor, Slot: ev.Slot, At: ev.At, Payload: payload,
	})
}

// UnmarshalEvent decodes an event written by MarshalEvent. The payload is
// restored to its concrete type.
func UnmarshalEvent(data []byte) (Event, error) {
	var env eventEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Event{}, fmt.Errorf("gacha: decode event: %w", err)
	}
	payload, err := DecodePayload(env.Kind, env.Payload)
	if err != nil {
		return Event{}, err
	}
	return Event{
		ID: env.ID, Pool: env.Pool, Seq: env.Seq, Kind: env.Kind,
		Actor: env.Actor, Slot: env.Slot, At: env.At, Payload: payload,
	}, nil
}

// DecodePayload decodes raw into the payload type of kind.
func DecodePayload(kind EventKind, raw []byte) (any, error) {
	var err error
	switch kind {
	case EventPoolInitialized:
		var p PoolInitialized
		err = json.Unmarshal(raw, &p)
		return p, wrapPayloadErr(kind, err)
	case EventKeyAdded:
		var p KeyAdded
		err = json.Unmarshal(raw, &p)
		return p, wrapPayloadErr(kind, err)
	case EventPoolFinalized:
		var p PoolFinalized
		err = json.Unmarshal(raw, &p)
		return p, wrapPayloadErr(kind, err)
	case EventPaused:
		var p PausedChanged
		err = json.Unmarshal(raw, &p)
		return p, wrapPayloadErr(kind, err)
	case EventHalted:
		var p HaltedChanged
		err = json.Unmarshal(raw, &p)
		return p, wrapPayloadErr(kind, err)
	case EventAdminTransferred:
		var p AdminTransferred
		err = json.Unmarshal(raw, &p)
		return p, wrapPayloadErr(kind, err)
	case EventPaymentConfigAdded:
		var p PaymentConfigAdded
		err = json.Unmarshal(raw, &p)
		return p, wrapPayloadErr(kind, err)
	case EventPaymentConfigRemoved:
		var p PaymentConfigRemoved
		err = json.Unmarshal(raw, &p)
		return p, wrapPayloadErr(kind, err)
	case EventPulled:
		var p Pulled
		err = json.Unmarshal(raw, &p)
		return p, wrapPayloadErr(kind, err)
	case EventResult:
		var p Settled
		err = json.Unmarshal(raw, &p)
		return p, wrapPayloadErr(kind, err)
	case EventDecryptionKeyReleased:
		var p DecryptionKeyReleased
		err = json.Unmarshal(raw, &p)
		return p, wrapPayloadErr(kind, err)
	}
	return nil, fmt.Errorf("gacha: unknown event kind %q", kind)
}

func wrapPayloadErr(kind EventKind, err error) error {
	if err != nil {
		return fmt.Errorf("gacha: decode %s payload: %w", kind, err)
	}
	return nil
}
