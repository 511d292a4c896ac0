package main

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/hyperengineering/quill/internal/config"
	"github.com/hyperengineering/quill/internal/moderation"
	"github.com/hyperengineering/quill/internal/types"
	"github.com/hyperengineering/quill/internal/validation"
)

func newModerateCmd() *cobra.Command {
	var name string

	cmd := &cobra.Command{
		Use:   "moderate --name NAME MESSAGE...",
		Short: "Classify a visitor message and print the decision as JSON",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			req := types.VisitorRequest{Name: name, Message: strings.Join(args, " ")}
			if errs := validation.ValidateVisitorRequest(req); len(errs) > 0 {
				return fmt.Errorf("invalid input: %s %s", errs[0].Field, errs[0].Message)
			}

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			slog.SetDefault(newLogger(os.Stderr, cfg.Log))

			m := moderation.New(newResolver(cfg),
				moderation.WithTimeout(time.Duration(cfg.LLM.ModerationTimeout)))
			return printJSON(cmd.OutOrStdout(), m.Moderate(cmd.Context(), req.Message, req.Name))
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "Visitor name")
	cmd.MarkFlagRequired("name")
	return cmd
}
