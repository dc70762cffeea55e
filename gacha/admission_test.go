package gacha

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func gatePool(finalized, paused, halted bool, keys int, pulls uint64) *Pool {
	p := NewPool(1, makeID(1))
	for i := 0; i < keys; i++ {
		_, _ = p.AddKey([]byte{byte('A' + i)})
	}
	if finalized {
		_ = p.Finalize()
	}
	p.Paused = paused
	p.Halted = halted
	p.PullCount = pulls
	return p
}

func TestCheckPull(t *testing.T) {
	tests := []struct {
		name    string
		pool    *Pool
		wantErr error
	}{
		{"open", gatePool(true, false, false, 3, 0), nil},
		{"halted_still_pulls", gatePool(true, false, true, 3, 0), nil},
		{"paused", gatePool(true, true, false, 3, 0), ErrPaused},
		{"paused_before_finalize", gatePool(false, true, false, 3, 0), ErrPaused},
		{"not_finalized", gatePool(false, false, false, 3, 0), ErrNotFinalized},
		{"every_reward_pulled", gatePool(true, false, false, 3, 3), ErrNotEnoughKeys},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckPull(tc.pool)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
		})
	}
}

func TestCheckSettle(t *testing.T) {
	pending := &PullRequest{}
	settled := &PullRequest{Settled: true}

	tests := []struct {
		name    string
		pool    *Pool
		req     *PullRequest
		wantErr error
	}{
		{"open", gatePool(true, false, false, 3, 1), pending, nil},
		{"paused_still_settles", gatePool(true, true, false, 3, 1), pending, nil},
		{"halted", gatePool(true, false, true, 3, 1), pending, ErrHalted},
		{"settled_checked_first", gatePool(true, false, true, 3, 1), settled, ErrAlreadySettled},
		{"not_finalized", gatePool(false, false, false, 3, 1), pending, ErrNotFinalized},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := CheckSettle(tc.pool, tc.req)
			if tc.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tc.wantErr)
			assert.Equal(t, KindState, KindOf(err))
		})
	}
}
