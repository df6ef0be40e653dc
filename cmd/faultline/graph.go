package main

import (
	"context"
	"fmt"
	"time"

	"github.com/aretw0/faultline"
	"github.com/aretw0/faultline/internal/presentation/graph"
	"github.com/aretw0/faultline/pkg/domain"
	"github.com/aretw0/faultline/pkg/flags"
	"github.com/spf13/cobra"
)

// graphCmd represents the graph command
var graphCmd = &cobra.Command{
	Use:   "graph",
	Short: "Export the fault pipeline visualization",
	Long: `Outputs a Mermaid diagram (graph TD) of the fault pipeline. Stages whose flag
is currently enabled in the flag store are highlighted.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, logger, err := loadConfig(cmd)
		if err != nil {
			return err
		}

		ctx, cancel := context.WithTimeout(cmd.Context(), 10*time.Second)
		defer cancel()

		store, closer, err := flagStore(ctx, cmd)
		if err != nil {
			return err
		}
		defer closer()

		pipeline := faultline.NewPipeline(flags.FromStore(store, flags.WithLogger(logger)), cfg)

		list, err := store.List(ctx)
		if err != nil {
			return fmt.Errorf("failed to list flags: %w", err)
		}
		overlay := &graph.Overlay{Enabled: make(map[domain.FlagName]bool, len(list))}
		for _, f := range list {
			overlay.Enabled[f.ID] = f.Enabled
		}

		fmt.Fprint(cmd.OutOrStdout(), graph.GenerateMermaid(pipeline, overlay))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(graphCmd)
	graphCmd.Flags().String("remote", "", "Base URL of a running faultline server to read flag states from")
}
