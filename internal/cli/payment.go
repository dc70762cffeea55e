package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/libgacha-go/gacha"
	"github.com/bitfsorg/libgacha-go/identity"
)

// NewPaymentCommand creates the payment command group.
func NewPaymentCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "payment",
		Short: "Manage accepted payment methods",
	}
	cmd.AddCommand(newPaymentAddCommand(opts))
	cmd.AddCommand(newPaymentRemoveCommand(opts))
	return cmd
}

func newPaymentAddCommand(opts *RootOptions) *cobra.Command {
	var (
		method    string
		price     uint64
		recipient string
	)
	cmd := &cobra.Command{
		Use:   "add <pool>",
		Short: "Accept a payment method at a fixed price",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := parsePoolID(args[0])
			if err != nil {
				return err
			}
			m, err := gacha.ParseMethod(method)
			if err != nil {
				return WrapExitError(ExitCommandError, "parse --method", err)
			}
			to, err := identity.Parse(recipient)
			if err != nil {
				return WrapExitError(ExitCommandError, "parse --recipient", err)
			}
			return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
				caller, err := a.caller()
				if err != nil {
					return err
				}
				cfg := gacha.PaymentConfig{Method: m, Price: price, Recipient: to}
				if err := a.engine.AddPaymentConfig(ctx, caller, pool, cfg); err != nil {
					return err
				}
				return a.out.Success(statusf(pool, "accepts %s at %d", m, price))
			})
		},
	}
	cmd.Flags().StringVar(&method, "method", "native", `"native" or a 64-hex token id`)
	cmd.Flags().Uint64Var(&price, "price", 0, "price per pull in base units")
	cmd.Flags().StringVar(&recipient, "recipient", "", "payee identity (hex or address)")
	_ = cmd.MarkFlagRequired("recipient")
	return cmd
}

func newPaymentRemoveCommand(opts *RootOptions) *cobra.Command {
	var method string
	cmd := &cobra.Command{
		Use:   "remove <pool>",
		Short: "Stop accepting a payment method",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := parsePoolID(args[0])
			if err != nil {
				return err
			}
			m, err := gacha.ParseMethod(method)
			if err != nil {
				return WrapExitError(ExitCommandError, "parse --method", err)
			}
			return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
				caller, err := a.caller()
				if err != nil {
					return err
				}
				if err := a.engine.RemovePaymentConfig(ctx, caller, pool, m); err != nil {
					return err
				}
				return a.out.Success(statusf(pool, "no longer accepts %s", m))
			})
		},
	}
	cmd.Flags().StringVar(&method, "method", "native", `"native" or a 64-hex token id`)
	return cmd
}
