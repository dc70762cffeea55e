package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath      string
	DataDir         string
	LogLevel        string
	Format          string // "json" | "text"
	WIF             string
	RPCURL          string
	RPCUser         string
	RPCPass         string
	MetricsTextfile string
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the gacha CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "gacha",
		Short: "Operate gacha reward pools",
		Long: `Operate gacha reward pools backed by a BSV node.

Pools hold a fixed set of reward keys. Players pay to pull, and each pull is
settled against a block hash several confirmations later, so neither side can
pick the outcome. Admin commands are authorized by the key given with --wif
(or GACHA_WIF).`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return WrapExitError(ExitCommandError,
					fmt.Sprintf("invalid format %q: must be one of %v", opts.Format, ValidFormats), nil)
			}
			return nil
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ConfigPath, "config", "", "config file (default <data-dir>/config)")
	flags.StringVar(&opts.DataDir, "data-dir", "", "data directory (default ~/.gacha)")
	flags.StringVar(&opts.LogLevel, "log-level", "", "log level (error|warn|info|verbose|debug)")
	flags.StringVar(&opts.Format, "format", "text", "output format (json|text)")
	flags.StringVar(&opts.WIF, "wif", "", "caller private key in WIF (default $GACHA_WIF)")
	flags.StringVar(&opts.RPCURL, "rpc-url", "", "node RPC URL (default $GACHA_RPC_URL or network preset)")
	flags.StringVar(&opts.RPCUser, "rpc-user", "", "node RPC user")
	flags.StringVar(&opts.RPCPass, "rpc-pass", "", "node RPC password")
	flags.StringVar(&opts.MetricsTextfile, "metrics-textfile", "", "write Prometheus metrics to this file after the command")

	cmd.AddCommand(NewInitCommand(opts))
	cmd.AddCommand(NewPaymentCommand(opts))
	cmd.AddCommand(NewKeyCommand(opts))
	cmd.AddCommand(NewFinalizeCommand(opts))
	cmd.AddCommand(NewPauseCommand(opts))
	cmd.AddCommand(NewHaltCommand(opts))
	cmd.AddCommand(NewTransferAdminCommand(opts))
	cmd.AddCommand(NewReleaseKeyCommand(opts))
	cmd.AddCommand(NewPullCommand(opts))
	cmd.AddCommand(NewSettleCommand(opts))
	cmd.AddCommand(NewRevealCommand(opts))
	cmd.AddCommand(NewShowCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// Execute runs the CLI with args and returns the process exit code.
func Execute(args []string, stdout, stderr io.Writer) int {
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)

	err := cmd.Execute()
	if err == nil {
		return ExitSuccess
	}
	format := "text"
	if f := cmd.PersistentFlags().Lookup("format"); f != nil && isValidFormat(f.Value.String()) {
		format = f.Value.String()
	}
	out := &OutputFormatter{Format: format, Writer: stderr}
	if format == "json" {
		out.Writer = stdout
	}
	if werr := out.Error(err); werr != nil {
		fmt.Fprintln(os.Stderr, err)
	}
	return GetExitCode(err)
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}
