package cli

import (
	"context"
	"encoding/hex"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/libgacha-go/gacha"
	"github.com/bitfsorg/libgacha-go/identity"
)

// NewInitCommand creates the init command.
func NewInitCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "init",
		Short: "Create a pool administered by the caller",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
				admin, err := a.caller()
				if err != nil {
					return err
				}
				id, err := a.engine.CreatePool(ctx, admin)
				if err != nil {
					return err
				}
				return a.out.Success(statusView{Pool: id, Status: "created"})
			})
		},
	}
}

// adminCommand builds a command taking a pool id that runs one admin
// operation and reports status.
func adminCommand(opts *RootOptions, use, short, status string, nargs int,
	run func(ctx context.Context, a *app, caller identity.ID, pool gacha.PoolID, args []string) error) *cobra.Command {
	return &cobra.Command{
		Use:   use,
		Short: short,
		Args:  cobra.ExactArgs(nargs),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := parsePoolID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
				caller, err := a.caller()
				if err != nil {
					return err
				}
				if err := run(ctx, a, caller, pool, args[1:]); err != nil {
					return err
				}
				return a.out.Success(statusView{Pool: pool, Status: status})
			})
		},
	}
}

// NewFinalizeCommand creates the finalize command.
func NewFinalizeCommand(opts *RootOptions) *cobra.Command {
	return adminCommand(opts, "finalize <pool>", "Freeze the key set and open the pool for pulls", "finalized", 1,
		func(ctx context.Context, a *app, caller identity.ID, pool gacha.PoolID, _ []string) error {
			return a.engine.Finalize(ctx, caller, pool)
		})
}

// NewPauseCommand creates the pause command.
func NewPauseCommand(opts *RootOptions) *cobra.Command {
	var resume bool
	cmd := &cobra.Command{
		Use:   "pause <pool>",
		Short: "Stop accepting pulls (settlement continues)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return toggle(cmd, opts, args[0], !resume, "paused", "unpaused",
				func(e *gacha.Engine) func(context.Context, identity.ID, gacha.PoolID, bool) error {
					return e.SetPaused
				})
		},
	}
	cmd.Flags().BoolVar(&resume, "resume", false, "clear the paused flag instead")
	return cmd
}

// NewHaltCommand creates the halt command.
func NewHaltCommand(opts *RootOptions) *cobra.Command {
	var resume bool
	cmd := &cobra.Command{
		Use:   "halt <pool>",
		Short: "Stop settlement (pulls are unaffected)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return toggle(cmd, opts, args[0], !resume, "halted", "resumed",
				func(e *gacha.Engine) func(context.Context, identity.ID, gacha.PoolID, bool) error {
					return e.SetHalted
				})
		},
	}
	cmd.Flags().BoolVar(&resume, "resume", false, "clear the halted flag instead")
	return cmd
}

func toggle(cmd *cobra.Command, opts *RootOptions, poolArg string, on bool, onStatus, offStatus string,
	setter func(*gacha.Engine) func(context.Context, identity.ID, gacha.PoolID, bool) error) error {
	pool, err := parsePoolID(poolArg)
	if err != nil {
		return err
	}
	return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
		caller, err := a.caller()
		if err != nil {
			return err
		}
		if err := setter(a.engine)(ctx, caller, pool, on); err != nil {
			return err
		}
		status := onStatus
		if !on {
			status = offStatus
		}
		return a.out.Success(statusView{Pool: pool, Status: status})
	})
}

// NewTransferAdminCommand creates the transfer-admin command.
func NewTransferAdminCommand(opts *RootOptions) *cobra.Command {
	return adminCommand(opts, "transfer-admin <pool> <new-admin>", "Hand the pool to another identity (hex or address)", "admin transferred", 2,
		func(ctx context.Context, a *app, caller identity.ID, pool gacha.PoolID, args []string) error {
			next, err := identity.Parse(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "parse new admin", err)
			}
			return a.engine.TransferAdmin(ctx, caller, pool, next)
		})
}

// NewReleaseKeyCommand creates the release-key command.
func NewReleaseKeyCommand(opts *RootOptions) *cobra.Command {
	return adminCommand(opts, "release-key <pool> <hex-key>", "Publish the decryption key of a drained pool", "decryption key released", 2,
		func(ctx context.Context, a *app, caller identity.ID, pool gacha.PoolID, args []string) error {
			key, err := hex.DecodeString(args[0])
			if err != nil {
				return WrapExitError(ExitCommandError, "decode key", err)
			}
			return a.engine.ReleaseDecryptionKey(ctx, caller, pool, key)
		})
}

// NewShowCommand creates the show command.
func NewShowCommand(opts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "show <pool> [nonce]",
		Short: "Show a pool, or one of its pulls",
		Args:  cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := parsePoolID(args[0])
			if err != nil {
				return err
			}
			return withApp(cmd, opts, false, func(ctx context.Context, a *app) error {
				if len(args) == 2 {
					nonce, err := parseNonce(args[1])
					if err != nil {
						return err
					}
					req, err := a.store.Request(ctx, pool, nonce)
					if err != nil {
						return err
					}
					return a.out.Success(requestView{req})
				}
				p, err := a.store.Pool(ctx, pool)
				if err != nil {
					return err
				}
				return a.out.Success(newPoolView(p))
			})
		},
	}
}

func statusf(pool gacha.PoolID, format string, args ...interface{}) statusView {
	return statusView{Pool: pool, Status: fmt.Sprintf(format, args...)}
}
