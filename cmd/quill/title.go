package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/quill/internal/config"
	"github.com/hyperengineering/quill/internal/title"
)

func newTitleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "title [FILE|-]",
		Short: "Generate a title for a file or standard input",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			slog.SetDefault(newLogger(os.Stderr, cfg.Log))

			text, err := readInput(cmd, args)
			if err != nil {
				return err
			}
			if strings.TrimSpace(text) == "" {
				return fmt.Errorf("no content to title")
			}

			gen := title.NewGenerator(newResolver(cfg))
			fmt.Fprintln(cmd.OutOrStdout(), gen.Generate(cmd.Context(), text))
			return nil
		},
	}
}

// readInput returns the named file, or standard input for "-" or no argument.
func readInput(cmd *cobra.Command, args []string) (string, error) {
	if len(args) == 0 || args[0] == "-" {
		data, err := io.ReadAll(cmd.InOrStdin())
		if err != nil {
			return "", fmt.Errorf("read stdin: %w", err)
		}
		return string(data), nil
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return "", fmt.Errorf("read %s: %w", args[0], err)
	}
	return string(data), nil
}
