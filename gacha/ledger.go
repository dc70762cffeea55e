package gacha

import "github.com/bitfsorg/libgacha-go/identity"

// PullRequest is the ledger record of one pull. It is written once by Pull,
// updated once by Settle and never deleted.
type PullRequest struct {
	Pool      PoolID      `json:"pool"`
	Nonce     uint64      `json:"nonce"`
	Requester identity.ID `json:"requester"`
	Method    MethodID    `json:"method"`
	Price     uint64      `json:"price"`

	// Source is the ID of the randomness source the pull committed to.
	Source     string `json:"source"`
	CommitSlot uint64 `json:"commit_slot"`
	PullSlot   uint64 `json:"pull_slot"`
	PaymentRef string `json:"payment_ref,omitempty"`

	Settled     bool   `json:"settled"`
	SettleSlot  uint64 `json:"settle_slot,omitempty"`
	RewardIndex uint16 `json:"reward_index"`
	Reward      []byte `json:"reward,omitempty"`
}

// Clone returns a deep copy of r.
func (r *PullRequest) Clone() *PullRequest {
	c := *r
	if r.Reward != nil {
		c.Reward = append([]byte(nil), r.Reward...)
	}
	return &c
}

func (r *PullRequest) settle(index uint16, reward []byte, slot uint64) {
	r.Settled = true
	r.SettleSlot = slot
	r.RewardIndex = index
	r.Reward = reward
}
