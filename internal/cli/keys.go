package cli

import (
	"bufio"
	"context"
	"encoding/hex"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bitfsorg/libgacha-go/seal"
)

// NewKeyCommand creates the key command group.
func NewKeyCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "key",
		Short: "Manage reward keys",
	}
	cmd.AddCommand(newKeyAddCommand(opts))
	return cmd
}

func newKeyAddCommand(opts *RootOptions) *cobra.Command {
	var (
		file    string
		sealHex string
	)
	cmd := &cobra.Command{
		Use:   "add <pool> [reward...]",
		Short: "Append reward keys to a pool that is still building",
		Long: `Append reward keys to a pool that is still building.

Rewards come from the arguments and, with --file, one per line from a file.
With --seal-key each reward is encrypted under the pool decryption key
before it is stored; players open it with "gacha reveal" after the key is
released.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			pool, err := parsePoolID(args[0])
			if err != nil {
				return err
			}
			rewards := args[1:]
			if file != "" {
				lines, err := readLines(file)
				if err != nil {
					return WrapExitError(ExitCommandError, "read rewards", err)
				}
				rewards = append(rewards, lines...)
			}
			if len(rewards) == 0 {
				return WrapExitError(ExitCommandError, "no rewards given", nil)
			}

			var sealKey []byte
			if sealHex != "" {
				if sealKey, err = hex.DecodeString(sealHex); err != nil {
					return WrapExitError(ExitCommandError, "decode --seal-key", err)
				}
			}

			return withApp(cmd, opts, true, func(ctx context.Context, a *app) error {
				caller, err := a.caller()
				if err != nil {
					return err
				}
				added, total := 0, 0
				for _, r := range rewards {
					value := []byte(r)
					if sealKey != nil {
						if value, err = seal.Seal(value, sealKey, pool); err != nil {
							return WrapExitError(ExitCommandError, "seal reward", err)
						}
					}
					if total, err = a.engine.AddKey(ctx, caller, pool, value); err != nil {
						return err
					}
					added++
				}
				return a.out.Success(statusf(pool, "added %d keys (%d total)", added, total))
			})
		},
	}
	cmd.Flags().StringVar(&file, "file", "", "read rewards from file, one per line")
	cmd.Flags().StringVar(&sealHex, "seal-key", "", "hex pool decryption key to seal rewards with")
	return cmd
}

func readLines(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	return lines, scanner.Err()
}
