package cli

import (
	"encoding/hex"
	"fmt"
	"io"
	"strconv"
	"unicode/utf8"

	"github.com/bitfsorg/libgacha-go/gacha"
	"github.com/bitfsorg/libgacha-go/identity"
)

type poolView struct {
	ID             gacha.PoolID          `json:"id"`
	Admin          identity.ID           `json:"admin"`
	Finalized      bool                  `json:"finalized"`
	Paused         bool                  `json:"paused"`
	Halted         bool                  `json:"halted"`
	Keys           int                   `json:"keys"`
	Remaining      int                   `json:"remaining"`
	Pulls          uint64                `json:"pulls"`
	Settles        uint64                `json:"settles"`
	Pending        uint64                `json:"pending"`
	PaymentConfigs []gacha.PaymentConfig `json:"payment_configs"`
	DecryptionKey  string                `json:"decryption_key,omitempty"`
}

func newPoolView(p *gacha.Pool) poolView {
	v := poolView{
		ID:             p.ID,
		Admin:          p.Admin,
		Finalized:      p.Finalized,
		Paused:         p.Paused,
		Halted:         p.Halted,
		Keys:           p.KeyCount(),
		Remaining:      p.RemainingCount(),
		Pulls:          p.PullCount,
		Settles:        p.SettleCount,
		Pending:        p.PendingCount(),
		PaymentConfigs: p.PaymentConfigs(),
	}
	if key, ok := p.DecryptionKey(); ok {
		v.DecryptionKey = hex.EncodeToString(key)
	}
	return v
}

func (v poolView) WriteText(w io.Writer) {
	fmt.Fprintf(w, "Pool %d\n", v.ID)
	fmt.Fprintf(w, "  Admin:     %s\n", v.Admin)
	fmt.Fprintf(w, "  State:     %s\n", v.state())
	fmt.Fprintf(w, "  Keys:      %d (%d remaining)\n", v.Keys, v.Remaining)
	fmt.Fprintf(w, "  Pulls:     %d (%d settled, %d pending)\n", v.Pulls, v.Settles, v.Pending)
	for _, c := range v.PaymentConfigs {
		fmt.Fprintf(w, "  Payment:   %s price=%d recipient=%s\n", c.Method, c.Price, c.Recipient)
	}
	if v.DecryptionKey != "" {
		fmt.Fprintf(w, "  Key:       %s\n", v.DecryptionKey)
	}
}

func (v poolView) state() string {
	s := "building"
	if v.Finalized {
		s = "finalized"
	}
	if v.Paused {
		s += ", paused"
	}
	if v.Halted {
		s += ", halted"
	}
	return s
}

type requestView struct {
	*gacha.PullRequest
}

func (v requestView) WriteText(w io.Writer) {
	r := v.PullRequest
	fmt.Fprintf(w, "Pull %d/%d by %s\n", r.Pool, r.Nonce, r.Requester)
	fmt.Fprintf(w, "  Paid:      %d %s (%s)\n", r.Price, r.Method, r.PaymentRef)
	fmt.Fprintf(w, "  Source:    %s committed at %d, pulled at %d\n", r.Source, r.CommitSlot, r.PullSlot)
	if !r.Settled {
		fmt.Fprintln(w, "  Status:    pending")
		return
	}
	fmt.Fprintf(w, "  Status:    settled at %d\n", r.SettleSlot)
	fmt.Fprintf(w, "  Reward:    #%d %s\n", r.RewardIndex, printable(r.Reward))
}

// printable quotes valid UTF-8 and hex-encodes anything else.
func printable(b []byte) string {
	if utf8.Valid(b) {
		return strconv.Quote(string(b))
	}
	return "0x" + hex.EncodeToString(b)
}

type statusView struct {
	Pool   gacha.PoolID `json:"pool"`
	Status string       `json:"status"`
}

func (v statusView) WriteText(w io.Writer) {
	fmt.Fprintf(w, "Pool %d %s\n", v.Pool, v.Status)
}

type eventView struct {
	events []gacha.Event
}

func (v eventView) MarshalJSON() ([]byte, error) {
	buf := []byte{'['}
	for i, ev := range v.events {
		if i > 0 {
			buf = append(buf, ',')
		}
		data, err := gacha.MarshalEvent(ev)
		if err != nil {
			return nil, err
		}
		buf = append(buf, data...)
	}
	return append(buf, ']'), nil
}

func (v eventView) WriteText(w io.Writer) {
	for _, ev := range v.events {
		fmt.Fprintf(w, "%d/%-4d slot=%-8d %-22s %s\n", ev.Pool, ev.Seq, ev.Slot, ev.Kind, ev.Actor)
	}
}
