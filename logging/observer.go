package logging

import (
	"context"

	"github.com/go-logr/logr"

	"github.com/bitfsorg/libgacha-go/gacha"
)

var _ gacha.Observer = (*EventLogger)(nil)

// EventLogger writes committed events and rejected commands to a logger.
type EventLogger struct {
	log logr.Logger
}

// NewEventLogger returns an observer writing to log.
func NewEventLogger(log logr.Logger) *EventLogger {
	return &EventLogger{log: log.WithName("events")}
}

func (l *EventLogger) Committed(_ context.Context, events []gacha.Event) {
	for _, ev := range events {
		kv := []interface{}{
			"kind", string(ev.Kind),
			"pool", uint64(ev.Pool),
			"seq", ev.Seq,
			"actor", ev.Actor.String(),
			"slot", ev.Slot,
		}
		switch p := ev.Payload.(type) {
		case gacha.Pulled:
			kv = append(kv, "nonce", p.Nonce, "method", p.Method.String(), "price", p.Price, "commitSlot", p.CommitSlot, "pending", p.Pending)
		case gacha.Settled:
			kv = append(kv, "nonce", p.Nonce, "rewardIndex", p.RewardIndex, "remaining", p.Remaining)
		case gacha.KeyAdded:
			kv = append(kv, "totalKeys", p.TotalKeys)
		}
		l.log.Info("event", kv...)
		l.log.V(DEBUG).Info("event id", "id", ev.ID, "seq", ev.Seq)
	}
}

func (l *EventLogger) Rejected(_ context.Context, op gacha.Op, pool gacha.PoolID, err error) {
	kv := []interface{}{"op", string(op), "pool", uint64(pool), "kind", gacha.KindOf(err).String(), "code", gacha.CodeOf(err)}
	if gacha.IsPending(err) {
		l.log.V(VERBOSE).Info("command pending", append(kv, "reason", err.Error())...)
		return
	}
	l.log.Info("command rejected", append(kv, "reason", err.Error())...)
}
