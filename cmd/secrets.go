package cmd

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/beright/internal/ports"
	"github.com/spf13/cobra"
)

type knownCredential struct {
	name       string
	configured func(*app) string
}

var knownCredentials = []knownCredential{
	{name: ports.CredentialGeminiAPIKey, configured: func(a *app) string { return a.cfg.Gemini.APIKey }},
	{name: ports.CredentialStripeSecretKey, configured: func(a *app) string { return a.cfg.Stripe.SecretKey }},
	{name: ports.CredentialStripeWebhookToken, configured: func(a *app) string { return a.cfg.Stripe.WebhookSecret }},
}

func newSecretsCmd(app *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "secrets",
		Short: "Store provider credentials outside the config file",
	}

	cmd.AddCommand(
		newSecretsSetCmd(app),
		newSecretsRemoveCmd(app),
		newSecretsStatusCmd(app),
	)

	return cmd
}

func newSecretsSetCmd(app *app) *cobra.Command {
	var value string

	cmd := &cobra.Command{
		Use:   "set NAME",
		Short: "Store a credential (value from --value or the first stdin line)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := credentialName(args[0])
			if err != nil {
				return err
			}

			if value == "" {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return errors.New("no credential value on stdin")
				}
				value = strings.TrimSpace(line)
			}
			if value == "" {
				return errors.New("credential value is empty")
			}

			if err := app.credentials.Put(cmd.Context(), name, value); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Stored %s\n", name)
			return nil
		},
	}

	cmd.Flags().StringVar(&value, "value", "", "Credential value")

	return cmd
}

func newSecretsRemoveCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "rm NAME",
		Short: "Remove a stored credential",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name, err := credentialName(args[0])
			if err != nil {
				return err
			}

			if err := app.credentials.Delete(cmd.Context(), name); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", name)
			return nil
		},
	}
}

func newSecretsStatusCmd(app *app) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show where each provider credential comes from",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			for _, credential := range knownCredentials {
				source := "missing"
				switch {
				case credential.configured(app) != "":
					source = "config"
				default:
					_, err := app.credentials.Get(cmd.Context(), credential.name)
					switch {
					case err == nil:
						source = "stored"
					case !errors.Is(err, ports.ErrCredentialNotFound):
						source = "error: " + err.Error()
					}
				}

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%-22s %s\n", credential.name, source)
			}

			return nil
		},
	}
}

func credentialName(raw string) (string, error) {
	name := strings.TrimSpace(raw)
	for _, credential := range knownCredentials {
		if credential.name == name {
			return name, nil
		}
	}

	names := make([]string, 0, len(knownCredentials))
	for _, credential := range knownCredentials {
		names = append(names, credential.name)
	}

	return "", fmt.Errorf("unknown credential %q (known: %s)", raw, strings.Join(names, ", "))
}
