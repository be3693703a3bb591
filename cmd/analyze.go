package cmd

import (
	"context"
	"fmt"
	"strings"

	"github.com/bnema/beright/internal/application"
	"github.com/bnema/beright/internal/domain"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newAnalyzeCmd(app *app) *cobra.Command {
	var debate domain.Debate
	var deviceID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "analyze",
		Short: "Run the full analysis pipeline for two opinions",
		Long:  "Analyze runs every stage locally and prints the final result. With --device the conversation is charged to that device first.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if err := debate.Validate(); err != nil {
				return err
			}

			orchestrator, err := app.orchestrator(cmd.Context())
			if err != nil {
				return err
			}

			if deviceID != "" {
				auth, err := app.sessions.Authorize(cmd.Context(), domain.DeviceID(strings.TrimSpace(deviceID)), "")
				if err != nil {
					return err
				}
				app.logger.Info("conversation charged",
					zap.String("device_id", deviceID),
					zap.String("mode", string(auth.Mode)),
				)
				debate.Mode = auth.Mode
			}

			var result domain.AnalysisResult
			err = runAnalysisSpinner(cmd.Context(), cmd.ErrOrStderr(), func(ctx context.Context, onProgress application.ProgressFunc) error {
				var runErr error
				result, runErr = orchestrator.Run(ctx, debate, onProgress)
				return runErr
			})
			if err != nil {
				return err
			}

			if asJSON {
				return encodeJSON(cmd, result)
			}

			rendered, err := app.analysisRenderer(result)
			if err != nil {
				return fmt.Errorf("render analysis: %w", err)
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), rendered)
			return err
		},
	}

	cmd.Flags().StringVar(&debate.Topic, "topic", "", "Debate topic")
	cmd.Flags().StringVar(&debate.OpinionA, "opinion-a", "", "First opinion")
	cmd.Flags().StringVar(&debate.OpinionB, "opinion-b", "", "Second opinion")
	cmd.Flags().StringVar(&debate.PerspectiveALabel, "label-a", "", "Label of the first perspective")
	cmd.Flags().StringVar(&debate.PerspectiveBLabel, "label-b", "", "Label of the second perspective")
	cmd.Flags().StringVar(&deviceID, "device", "", "Charge the conversation to this device")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	_ = cmd.MarkFlagRequired("topic")
	_ = cmd.MarkFlagRequired("opinion-a")
	_ = cmd.MarkFlagRequired("opinion-b")

	return cmd
}
