package cli

import (
	"context"
	"encoding/hex"
	"errors"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/libgacha-go/gacha"
	"github.com/bitfsorg/libgacha-go/seal"
)

// NewPullCommand creates the pull command.
func NewPullCommand(opts *RootOptions) *cobra.Command {
	var (
		method   string
		proofHex string
	)
	cmd := &cobra.Command{
		Use:   "pull <pool>",
		Short: "Pay for a pull; the reward is drawn by settle",
		Long: `Pay for a pull; the reward is drawn by settle.

The pull commits to the current block height. Its reward is decided by the
hash of the block the configured number of confirmations later, so settle
succeeds only once that block exists. --proof is the raw payment transaction
in hex; it is broadcast through the node.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := parsePoolID(args[0])
			if err != nil {
				return err
			}
			m, err := gacha.ParseMethod(method)
			if err != nil {
				return WrapExitError(ExitCommandError, "parse --method", err)
			}
			proof, err := hex.DecodeString(strings.TrimSpace(proofHex))
			if err != nil {
				return WrapExitError(ExitCommandError, "decode --proof", err)
			}
			return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
				requester, err := a.caller()
				if err != nil {
					return err
				}
				if _, err := a.source.Commit(ctx); err != nil {
					return WrapExitError(ExitCommandError, "commit randomness", err)
				}
				req, err := a.engine.Pull(ctx, gacha.PullParams{
					Pool:      pool,
					Requester: requester,
					Method:    m,
					Source:    a.source.ID(),
					Proof:     proof,
				})
				if err != nil {
					return err
				}
				return a.out.Success(requestView{req})
			})
		},
	}
	cmd.Flags().StringVar(&method, "method", "native", `"native" or a 64-hex token id`)
	cmd.Flags().StringVar(&proofHex, "proof", "", "raw payment transaction (hex)")
	return cmd
}

// NewSettleCommand creates the settle command.
func NewSettleCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "settle <pool> <nonce>",
		Short: "Draw the reward for a pending pull",
		Long: `Draw the reward for a pending pull.

Exits with status 3 while the deciding block has not been mined yet.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := parsePoolID(args[0])
			if err != nil {
				return err
			}
			nonce, err := parseNonce(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
				requester, err := a.caller()
				if err != nil {
					return err
				}
				pending, err := a.store.Request(ctx, pool, nonce)
				if err != nil {
					return err
				}
				a.source.CommitAt(pending.CommitSlot)

				req, err := a.engine.Settle(ctx, gacha.SettleParams{
					Pool:      pool,
					Requester: requester,
					Nonce:     nonce,
				})
				if err != nil {
					return err
				}
				return a.out.Success(requestView{req})
			})
		},
	}
}

type revealView struct {
	Pool   gacha.PoolID `json:"pool"`
	Nonce  uint64       `json:"nonce"`
	Reward string       `json:"reward"`
}

func (v revealView) String() string { return v.Reward }

// ErrKeyNotReleased is returned by reveal before the pool key is published.
var ErrKeyNotReleased = errors.New("decryption key not released yet")

// NewRevealCommand creates the reveal command.
func NewRevealCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "reveal <pool> <nonce>",
		Short: "Decrypt a sealed reward with the released pool key",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := parsePoolID(args[0])
			if err != nil {
				return err
			}
			nonce, err := parseNonce(args[1])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, false, func(ctx context.Context, a *app) error {
				p, err := a.store.Pool(ctx, pool)
				if err != nil {
					return err
				}
				key, ok := p.DecryptionKey()
				if !ok {
					return WrapExitError(ExitFailure, "reveal", ErrKeyNotReleased)
				}
				req, err := a.store.Request(ctx, pool, nonce)
				if err != nil {
					return err
				}
				if !req.Settled {
					return WrapExitError(ExitFailure, "reveal", gacha.ErrGachaNotComplete)
				}
				reward, err := seal.Open(req.Reward, key, pool)
				if err != nil {
					return WrapExitError(ExitFailure, "open reward", err)
				}
				return a.out.Success(revealView{Pool: pool, Nonce: nonce, Reward: string(reward)})
			})
		},
	}
}
