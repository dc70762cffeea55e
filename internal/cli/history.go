package cli

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/libgacha-go/audit"
	"github.com/bitfsorg/libgacha-go/gacha"
	"github.com/bitfsorg/libgacha-go/identity"
)

// NewHistoryCommand creates the history command.
func NewHistoryCommand(opts *RootOptions) *cobra.Command {
	var (
		kind  string
		actor string
		after uint64
		limit int
	)
	cmd := &cobra.Command{
		Use:   "history [pool]",
		Short: "List audit events from the journal",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var f audit.Filter
			if len(args) == 1 {
				pool, err := parsePoolID(args[0])
				if err != nil {
					return err
				}
				f.Pool = pool
			}
			if actor != "" {
				id, err := identity.Parse(actor)
				if err != nil {
					return WrapExitError(ExitCommandError, "parse --actor", err)
				}
				f.Actor = id
			}
			f.Kind = gacha.EventKind(kind)
			f.AfterSeq = after
			f.Limit = limit

			return withApp(cmd, opts, false, func(ctx context.Context, a *app) error {
				events, err := a.journal.Events(ctx, f)
				if err != nil {
					return err
				}
				return a.out.Success(eventView{events})
			})
		},
	}
	cmd.Flags().StringVar(&kind, "kind", "", "only events of this kind (e.g. GachaResult)")
	cmd.Flags().StringVar(&actor, "actor", "", "only events caused by this identity")
	cmd.Flags().Uint64Var(&after, "after", 0, "only events with a higher sequence number")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of events")
	return cmd
}
