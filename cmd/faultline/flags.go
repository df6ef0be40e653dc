package main

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/aretw0/faultline/internal/config"
	"github.com/aretw0/faultline/internal/presentation/tui"
	faulthttp "github.com/aretw0/faultline/pkg/adapters/http"
	"github.com/aretw0/faultline/pkg/domain"
	"github.com/aretw0/faultline/pkg/flags"
	"github.com/aretw0/faultline/pkg/ports"
	"github.com/spf13/cobra"
)

var flagsCmd = &cobra.Command{
	Use:   "flags",
	Short: "Inspect and toggle fault flags",
}

var flagsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List flags and their state",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		store, closer, err := flagStore(ctx, cmd)
		if err != nil {
			return err
		}
		defer closer()

		list, err := store.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list flags: %w", err)
		}
		return tui.PrintFlags(cmd.OutOrStdout(), list)
	},
}

var flagsSetCmd = &cobra.Command{
	Use:   "set <id> <true|false>",
	Short: "Enable or disable a flag",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		enabled, err := strconv.ParseBool(args[1])
		if err != nil {
			return fmt.Errorf("invalid flag state %q: expected true or false", args[1])
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		store, closer, err := flagStore(ctx, cmd)
		if err != nil {
			return err
		}
		defer closer()

		flag, err := setFlag(ctx, store, args[0], enabled)
		if err != nil {
			return err
		}
		return tui.PrintFlags(cmd.OutOrStdout(), []domain.Flag{flag})
	},
}

func init() {
	rootCmd.AddCommand(flagsCmd)
	flagsCmd.AddCommand(flagsListCmd, flagsSetCmd)
	flagsCmd.PersistentFlags().String("remote", "", "Base URL of a running faultline server (e.g. http://localhost:8080/admin)")
}

// flagStore returns a client for --remote, or the configured backend.
func flagStore(ctx context.Context, cmd *cobra.Command) (ports.FlagStore, func() error, error) {
	if remote, _ := cmd.Flags().GetString("remote"); remote != "" {
		return faulthttp.NewClient(remote), func() error { return nil }, nil
	}

	cfg, logger, err := loadConfig(cmd)
	if err != nil {
		return nil, nil, err
	}
	if cfg.Backend == config.BackendMemory {
		logger.Warn("Memory backend is process-local; changes are lost on exit. Use --remote to reach a running server.")
	}
	return openStore(ctx, cfg, logger)
}

// setFlag toggles a modifiable flag.
func setFlag(ctx context.Context, store ports.FlagStore, id domain.FlagName, enabled bool) (domain.Flag, error) {
	flag, err := flags.SetEnabled(ctx, store, id, enabled)
	if err != nil {
		return domain.Flag{}, fmt.Errorf("flag %s: %w", id, err)
	}
	return flag, nil
}
