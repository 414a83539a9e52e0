package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/teemow/marvin-mcp/internal/marvin"
)

func newCheckCmd() *cobra.Command {
	var (
		apiToken       string
		apiBaseURL     string
		requestTimeout time.Duration
	)

	cmd := &cobra.Command{
		Use:   "check",
		Short: "Verify an Amazing Marvin API token",
		Long: `Check that an API token can reach the Amazing Marvin API by listing
categories and labels. Prints the counts on success and guidance on failure.

The token is read from --api-token or AMAZING_MARVIN_API_TOKEN.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			token := strings.TrimSpace(apiToken)
			if token == "" {
				token = strings.TrimSpace(os.Getenv(envAPIToken))
			}

			client := marvin.NewClient(marvin.ClientConfig{
				BaseURL: apiBaseURL,
				Timeout: requestTimeout,
			})
			return runCheck(cmd.Context(), cmd.OutOrStdout(), client, token)
		},
	}

	cmd.Flags().StringVar(&apiToken, "api-token", "", "Amazing Marvin API token. Can also use AMAZING_MARVIN_API_TOKEN env var.")
	cmd.Flags().StringVar(&apiBaseURL, "api-base-url", marvin.DefaultBaseURL, "Amazing Marvin API base URL")
	cmd.Flags().DurationVar(&requestTimeout, "request-timeout", marvin.DefaultTimeout, "Timeout for each upstream request")

	return cmd
}

// runCheck lists categories and labels concurrently with token.
func runCheck(ctx context.Context, out io.Writer, client *marvin.Client, token string) error {
	creds := marvin.Credentials{APIToken: token}
	if err := creds.Validate(); err != nil {
		classified := marvin.Classify(err)
		fmt.Fprintln(out, "✗ "+classified.Message)
		return classified
	}

	fmt.Fprintf(out, "Checking %s with token %s...\n", client.BaseURL(), creds.Fingerprint())

	var categories []marvin.Category
	var labels []marvin.Label

	g, gctx := errgroup.WithContext(marvin.WithCredentials(ctx, creds))
	g.Go(func() error {
		var err error
		categories, err = client.Categories(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		labels, err = client.Labels(gctx)
		return err
	})

	if err := g.Wait(); err != nil {
		classified := marvin.Classify(err)
		fmt.Fprintln(out, "✗ "+classified.Message)
		return classified
	}

	fmt.Fprintln(out, "✓ Connected to Amazing Marvin")
	fmt.Fprintf(out, "  Categories and projects: %d\n", len(categories))
	fmt.Fprintf(out, "  Labels: %d\n", len(labels))
	return nil
}
