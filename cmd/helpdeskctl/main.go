// Command helpdeskctl is a terminal client for the helpdesk daemon.
package main

import (
	"context"
	"os"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/helpdesk-io/helpdesk/internal/client"
)

var (
	flagURL     string
	flagTimeout time.Duration
)

var rootCmd = &cobra.Command{
	Use:           "helpdeskctl",
	Short:         "Help desk command-line client",
	Long:          "Manage tickets, projects and users on a helpdesk daemon.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagURL, "url", envOr("HELPDESK_URL", client.DefaultBaseURL), "Daemon URL")
	rootCmd.PersistentFlags().DurationVar(&flagTimeout, "timeout", 10*time.Second, "Request timeout")

	rootCmd.AddCommand(healthCmd, registerCmd, loginCmd, logoutCmd, whoamiCmd)
	rootCmd.AddCommand(ticketsCmd, commentCmd, projectsCmd, usersCmd, logsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		color.New(color.FgRed).Fprintf(os.Stderr, "✗ %v\n", err)
		os.Exit(1)
	}
}

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check daemon health",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := requestContext(cmd)
		defer cancel()
		if err := newClient().Health(ctx); err != nil {
			return err
		}
		success("%s is up", flagURL)
		return nil
	},
}

// newClient returns a client carrying the saved session token, if any.
func newClient() *client.Client {
	var opts []client.Option
	if tok := loadToken(); tok != "" {
		opts = append(opts, client.WithToken(tok))
	}
	return client.New(flagURL, opts...)
}

func requestContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), flagTimeout)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
