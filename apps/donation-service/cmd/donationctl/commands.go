package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/domain"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/dto"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/gateway"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/middleware"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/money"
	"github.com/prohmpiriya/donation-rush/apps/donation-service/internal/service"
	"github.com/prohmpiriya/donation-rush/pkg/config"
)

func donateCmd(opts *globalOptions) *cobra.Command {
	var (
		amount string
		addons []string
		method string
		name   string
		email  string
		taxID  string
		phone  string
		extID  string
		utm    string
	)

	cmd := &cobra.Command{
		Use:   "donate",
		Short: "Create a donation and print the payment artifact",
		RunE: func(cmd *cobra.Command, args []string) error {
			minor, err := money.Parse(amount)
			if err != nil {
				return err
			}

			req := &dto.CreateDonationRequest{
				Amount:        dto.Amount(minor),
				Addons:        addons,
				PaymentMethod: method,
				ExternalID:    extID,
			}
			if name != "" || email != "" || taxID != "" || phone != "" {
				req.Customer = &domain.Customer{Name: name, Email: email, TaxID: taxID, Phone: phone}
			}
			if utm != "" {
				req.UTM = &domain.UTM{Query: utm}
			}

			var resp dto.DonationResponse
			raw, err := opts.client().do(cmd.Context(), http.MethodPost, "/api/v1/donations", req, &resp)
			if err != nil {
				return err
			}
			if opts.json {
				return printRaw(cmd.OutOrStdout(), raw)
			}
			printDonation(cmd.OutOrStdout(), &resp)
			return nil
		},
	}

	cmd.Flags().StringVarP(&amount, "amount", "a", "", "Base amount in reais, e.g. 50.00")
	cmd.Flags().StringSliceVar(&addons, "addon", nil, "Add-on id (repeatable)")
	cmd.Flags().StringVarP(&method, "method", "m", string(domain.PaymentMethodPix), "Payment method (PIX, CREDIT_CARD, BILLET)")
	cmd.Flags().StringVar(&name, "name", "", "Donor name")
	cmd.Flags().StringVar(&email, "email", "", "Donor email")
	cmd.Flags().StringVar(&taxID, "cpf", "", "Donor CPF")
	cmd.Flags().StringVar(&phone, "phone", "", "Donor phone")
	cmd.Flags().StringVar(&extID, "external-id", "", "External id; generated when empty")
	cmd.Flags().StringVar(&utm, "utm", "", "UTM query string")
	_ = cmd.MarkFlagRequired("amount")

	return cmd
}

func statusCmd(opts *globalOptions) *cobra.Command {
	var (
		wait     time.Duration
		interval time.Duration
	)

	cmd := &cobra.Command{
		Use:   "status",
		Short: "Refresh and print the current donation of the scope",
		Long: `Refresh the current donation from the provider.

With --wait the status is polled until it leaves PENDING, the donation
expires or the wait elapses.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if wait > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, wait)
				defer cancel()
			}

			client := opts.client()
			for {
				var resp dto.StatusResponse
				raw, err := client.do(ctx, http.MethodGet, "/api/v1/donations/current", nil, &resp)
				if err != nil {
					return err
				}
				if wait <= 0 || !resp.Available || resp.Expired || resp.Status.IsTerminal() {
					if opts.json {
						return printRaw(cmd.OutOrStdout(), raw)
					}
					printStatus(cmd.OutOrStdout(), &resp)
					return nil
				}

				select {
				case <-ctx.Done():
					printStatus(cmd.OutOrStdout(), &resp)
					return fmt.Errorf("still %s after %s", resp.Status, wait)
				case <-time.After(interval):
				}
			}
		},
	}

	cmd.Flags().DurationVarP(&wait, "wait", "w", 0, "Poll until a terminal status or this timeout")
	cmd.Flags().DurationVar(&interval, "interval", 5*time.Second, "Polling interval with --wait")

	return cmd
}

func clearCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Forget the current donation of the scope",
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := opts.client().do(cmd.Context(), http.MethodDelete, "/api/v1/donations/current", nil, nil); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "Current donation cleared")
			return nil
		},
	}
}

func probeCmd(opts *globalOptions) *cobra.Command {
	var envFile string

	cmd := &cobra.Command{
		Use:   "probe",
		Short: "Probe every configured provider endpoint and auth method",
		Long: `Load the gateway configuration like the service does and try every
base URL and auth method candidate in order. Nothing is cached and no
transaction is created.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(envFile)
			if err != nil {
				return err
			}

			gw, err := gateway.NewPaymentGateway(&cfg.Gateway, nil, &http.Client{Timeout: cfg.Gateway.ProbeTimeout})
			if err != nil {
				return err
			}

			report := service.NewAdminService(gw, nil, nil, cfg.Campaign.Name).Probe(cmd.Context())
			if opts.json {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(report)
			}
			printProbe(cmd.OutOrStdout(), report)
			if !report.Reachable {
				return fmt.Errorf("no %s endpoint reachable; the service would run in demo mode", report.Provider)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Read configuration from this .env file")

	return cmd
}

func tokenCmd() *cobra.Command {
	var (
		envFile string
		subject string
		ttl     time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint an admin bearer token for the admin API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(envFile)
			if err != nil {
				return err
			}
			if ttl <= 0 {
				ttl = cfg.JWT.AccessTokenTTL
			}

			token, err := middleware.IssueAdminToken(cfg.JWT.Secret, cfg.JWT.Issuer, subject, ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), token)
			return nil
		},
	}

	cmd.Flags().StringVar(&envFile, "env-file", "", "Read configuration from this .env file")
	cmd.Flags().StringVar(&subject, "subject", "donationctl", "Operator name recorded in the token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "Token lifetime; defaults to JWT_ACCESS_TOKEN_TTL")

	return cmd
}

func loadConfig(envFile string) (*config.Config, error) {
	if envFile != "" {
		return config.LoadWithPath(envFile)
	}
	return config.Load()
}

func printRaw(w io.Writer, raw []byte) error {
	_, err := fmt.Fprintln(w, string(raw))
	return err
}

func printDonation(w io.Writer, resp *dto.DonationResponse) {
	fmt.Fprintf(w, "Transaction: %s\n", resp.TransactionID)
	fmt.Fprintf(w, "External ID: %s\n", resp.ExternalID)
	fmt.Fprintf(w, "Status:      %s\n", resp.Status)
	if resp.Amount != nil {
		fmt.Fprintf(w, "Amount:      %s\n", money.Format(resp.Amount.Minor()))
	}
	for _, s := range resp.Split {
		fmt.Fprintf(w, "Split:       %s %d%%\n", s.BeneficiaryID, s.Percentage)
	}
	if resp.ExpiresAt != nil {
		fmt.Fprintf(w, "Expires:     %s\n", resp.ExpiresAt.Local().Format(time.RFC3339))
	}
	if resp.DemoMode {
		fmt.Fprintln(w, "Mode:        DEMO (provider unreachable, code is not payable)")
	}
	if resp.PaymentArtifact != nil && resp.PaymentArtifact.Billet != nil {
		fmt.Fprintf(w, "Billet:      %s\n", resp.PaymentArtifact.Billet.URL)
	}
	if resp.PixCode != "" {
		fmt.Fprintf(w, "\nPIX copy and paste:\n%s\n", resp.PixCode)
	}
}

func printStatus(w io.Writer, resp *dto.StatusResponse) {
	if !resp.Available {
		fmt.Fprintln(w, "No current donation")
		return
	}
	fmt.Fprintf(w, "Transaction: %s\n", resp.TransactionID)
	fmt.Fprintf(w, "Status:      %s (%s)\n", resp.Status, resp.State)
	if resp.Amount != nil {
		fmt.Fprintf(w, "Amount:      %s\n", money.Format(resp.Amount.Minor()))
	}
	if resp.PaidAt != nil {
		fmt.Fprintf(w, "Paid at:     %s\n", resp.PaidAt.Local().Format(time.RFC3339))
	}
	if resp.Expired {
		fmt.Fprintln(w, "Expired:     yes")
	}
}

func printProbe(w io.Writer, report *gateway.ProbeReport) {
	fmt.Fprintf(w, "Provider: %s\n", report.Provider)
	for _, c := range report.Candidates {
		state := "ok"
		if !c.Reachable {
			state = "FAIL " + c.Error
		}
		fmt.Fprintf(w, "  %-16s %-48s %8s  %s\n", c.Candidate.AuthMethod, c.Candidate.BaseURL, c.Latency.Round(time.Millisecond), state)
	}
	if report.Resolved != nil {
		fmt.Fprintf(w, "Resolved: %s\n", report.Resolved.String())
	} else if report.DemoMode {
		fmt.Fprintln(w, "Resolved: none (demo mode)")
	}
}
