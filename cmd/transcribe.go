package cmd

import (
	"errors"
	"fmt"
	"mime"
	"os"
	"path/filepath"
	"strings"

	"github.com/bnema/beright/internal/domain"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newTranscribeCmd(app *app) *cobra.Command {
	var file string
	var mimeType string
	var deviceID string
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "transcribe",
		Short: "Extract the topic and both opinions from a recorded conversation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			data, err := os.ReadFile(file)
			if err != nil {
				return fmt.Errorf("read recording: %w", err)
			}
			if mimeType == "" {
				mimeType = mime.TypeByExtension(strings.ToLower(filepath.Ext(file)))
			}
			if mimeType == "" {
				return errors.New("cannot detect the recording type, pass --mime-type")
			}

			orchestrator, err := app.orchestrator(cmd.Context())
			if err != nil {
				return err
			}
			stages := orchestrator.Stages()
			clip := domain.AudioClip{Data: data, MIMEType: mimeType}
			if err := clip.Validate(stages.MaxAudioBytes()); err != nil {
				return err
			}

			mode := domain.ModeFree
			if deviceID != "" {
				auth, err := app.sessions.Authorize(cmd.Context(), domain.DeviceID(strings.TrimSpace(deviceID)), "")
				if err != nil {
					return err
				}
				mode = auth.Mode
				app.logger.Info("conversation charged", zap.String("device_id", deviceID), zap.String("mode", string(mode)))
			}

			extraction, err := stages.TranscribeAndExtract(cmd.Context(), clip, mode)
			if err != nil {
				return err
			}

			if asJSON {
				return encodeJSON(cmd, extraction)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "topic: %s\n", extraction.Topic)
			fmt.Fprintf(out, "opinion A: %s\n", extraction.ViewpointA)
			fmt.Fprintf(out, "opinion B: %s\n", extraction.ViewpointB)
			_, err = fmt.Fprintf(out, "confidence: %s\n", extraction.Confidence)
			return err
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "Recorded conversation")
	cmd.Flags().StringVar(&mimeType, "mime-type", "", "Audio mime type (default: from the file extension)")
	cmd.Flags().StringVar(&deviceID, "device", "", "Charge the conversation to this device")
	cmd.Flags().BoolVar(&asJSON, "json", false, "Render JSON output")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
