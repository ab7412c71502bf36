package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var Version = "dev"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	rootCmd := &cobra.Command{
		Use:           "donationctl",
		Short:         "Operate the donation service and its payment provider",
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&opts.server, "server", envOr("DONATIONCTL_SERVER", "http://localhost:8080"), "Donation service base URL")
	rootCmd.PersistentFlags().StringVar(&opts.scope, "scope", envOr("DONATIONCTL_SCOPE", ""), "Client scope sent as X-Session-ID")
	rootCmd.PersistentFlags().BoolVar(&opts.json, "json", false, "Print raw JSON responses")

	rootCmd.AddCommand(donateCmd(opts))
	rootCmd.AddCommand(statusCmd(opts))
	rootCmd.AddCommand(clearCmd(opts))
	rootCmd.AddCommand(probeCmd(opts))
	rootCmd.AddCommand(tokenCmd())

	return rootCmd
}

type globalOptions struct {
	server string
	scope  string
	json   bool
}

func (o *globalOptions) client() *apiClient {
	return newAPIClient(o.server, o.scope)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
