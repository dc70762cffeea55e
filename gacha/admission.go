package gacha

import "fmt"

// CheckPull reports whether p admits a new pull request.
func CheckPull(p *Pool) error {
	if p.Paused {
		return ErrPaused
	}
	if !p.Finalized {
		return ErrNotFinalized
	}
	if p.PullCount >= uint64(p.keyCount) {
		return fmt.Errorf("%w: %d pulls for %d rewards", ErrNotEnoughKeys, p.PullCount, p.keyCount)
	}
	return nil
}

// CheckSettle reports whether req may be settled against p.
func CheckSettle(p *Pool, req *PullRequest) error {
	if req.Settled {
		return ErrAlreadySettled
	}
	if !p.Finalized {
		return ErrNotFinalized
	}
	if p.Halted {
		return ErrHalted
	}
	return nil
}
