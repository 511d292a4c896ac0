package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/quill/internal/config"
	"github.com/hyperengineering/quill/internal/registry"
)

func newRegistryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry",
		Short: "Build and inspect the memory registry",
	}
	cmd.AddCommand(newRegistryBuildCmd())
	cmd.AddCommand(newRegistryShowCmd())
	return cmd
}

func newRegistryBuildCmd() *cobra.Command {
	var (
		out             string
		publishRegistry bool
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Title every thought from the content API and rewrite the registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			slog.SetDefault(newLogger(os.Stderr, cfg.Log))

			path := cfg.Registry.Path
			if out != "" {
				path = out
			}

			builder, err := newBuilder(cfg, newResolver(cfg), path, publishRegistry)
			if err != nil {
				return err
			}

			reg, err := builder.Run(cmd.Context())
			if err != nil {
				if errors.Is(err, registry.ErrMissingCredential) {
					slog.Error("OPENAI_API_KEY not found", "component", "registry")
				}
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Registry saved to %s (%d entries)\n", path, len(reg.Memories))
			return nil
		},
	}

	cmd.Flags().StringVar(&out, "out", "", "Registry file path (overrides config and QUILL_REGISTRY_PATH)")
	cmd.Flags().BoolVar(&publishRegistry, "publish", false, "Upload the registry to the configured S3 bucket")
	return cmd
}

func newRegistryShowCmd() *cobra.Command {
	var (
		path       string
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the current registry",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				cfg, err := config.Load()
				if err != nil {
					return err
				}
				path = cfg.Registry.Path
			}

			reg, err := registry.Load(path)
			if err != nil {
				return err
			}

			if jsonOutput {
				return printJSON(cmd.OutOrStdout(), reg)
			}

			entries := reg.Entries()
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Registry is empty.")
				return nil
			}

			rows := make([][]string, len(entries))
			for i, e := range entries {
				rows[i] = []string{e.OriginalPath, e.Title, e.Created, shortHash(e.Hash)}
			}
			fmt.Fprintln(cmd.OutOrStdout(), renderTable([]string{"PATH", "TITLE", "CREATED", "HASH"}, rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&path, "path", "", "Registry file path (defaults to the configured path)")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	return cmd
}

func shortHash(h string) string {
	if len(h) > 12 {
		return h[:12]
	}
	return h
}
