// donorctl drives the donorauth flow from a terminal: useful for poking at
// a backend during development and as the reference wiring for kiosk
// shells. Configuration comes from flags, the environment, or a .env file
// (DONORAUTH_API, DONORAUTH_STORE, DONORAUTH_AUDIT).
package main

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/Muhammad2308/donorauth"
	"github.com/Muhammad2308/donorauth/fingerprint"
	"github.com/Muhammad2308/donorauth/gateway"
	"github.com/Muhammad2308/donorauth/store"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var (
	flagAPI   string
	flagStore string
	flagAudit bool
)

func main() {
	// Missing .env is fine; flags and the environment still apply.
	_ = godotenv.Load()

	root := &cobra.Command{
		Use:           "donorctl",
		Short:         "Drive the donor auth flow against an endowment backend",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&flagAPI, "api", os.Getenv("DONORAUTH_API"), "backend base URL")
	root.PersistentFlags().StringVar(&flagStore, "store", envOr("DONORAUTH_STORE", "donorauth.db"), "credential store file")
	root.PersistentFlags().BoolVar(&flagAudit, "audit", os.Getenv("DONORAUTH_AUDIT") == "1", "write audit events to stderr")

	root.AddCommand(statusCmd(), registerCmd(), loginCmd(), deviceLoginCmd(), logoutCmd(), tierCmd())

	if err := root.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// newOrchestrator wires the full stack: HTTP gateway, bolt store, host
// fingerprint environment. The returned cleanup closes both the store and
// the orchestrator.
func newOrchestrator() (*donorauth.Orchestrator, func(), error) {
	cfg := donorauth.DefaultConfig()
	cfg.Gateway.BaseURL = flagAPI
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	client, err := gateway.New(cfg.Gateway)
	if err != nil {
		return nil, nil, err
	}

	boltStore, err := store.OpenBolt(flagStore)
	if err != nil {
		return nil, nil, err
	}

	var sink donorauth.AuditSink
	if flagAudit {
		sink = donorauth.NewJSONWriterSink(os.Stderr)
	}

	orch, err := donorauth.New(cfg, donorauth.Deps{
		Gateway:      client,
		Verification: client,
		Store:        boltStore,
		Environment:  fingerprint.HostEnvironment{},
		AuditSink:    sink,
	})
	if err != nil {
		_ = boltStore.Close()
		return nil, nil, err
	}

	cleanup := func() {
		orch.Close()
		_ = boltStore.Close()
	}
	return orch, cleanup, nil
}

func statusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Resolve the persisted credential and print the auth state",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, cleanup, err := newOrchestrator()
			if err != nil {
				return err
			}
			defer cleanup()

			state, err := orch.Startup(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Println("state:", state)
			if user, ok := orch.CurrentUser(); ok {
				tier, _ := orch.CurrentTier()
				fmt.Printf("user: %s <%s>\n", user.Name, user.Email)
				fmt.Printf("tier: %s (%.1f%% to next)\n", tier.Name, tier.ProgressPercent)
			}
			return nil
		},
	}
}

func registerCmd() *cobra.Command {
	var (
		name    string
		email   string
		phone   string
		channel string
	)
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register as a donor: verify a contact, then mint a device session",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, cleanup, err := newOrchestrator()
			if err != nil {
				return err
			}
			defer cleanup()

			if _, err := orch.Startup(cmd.Context()); err != nil {
				return err
			}

			ch := donorauth.ChannelSMS
			contact := phone
			if channel == "email" {
				ch = donorauth.ChannelEmail
				contact = email
			}

			donor := donorauth.DonorData{Name: name, Email: email, Phone: phone}
			if err := orch.BeginRegistration(cmd.Context(), donor, ch, contact); err != nil {
				return err
			}
			fmt.Printf("code sent via %s to %s\n", ch, contact)

			code, err := promptLine("enter code: ")
			if err != nil {
				return err
			}
			if err := orch.ConfirmVerification(cmd.Context(), code); err != nil {
				return err
			}
			fmt.Println("registered; state:", orch.State())
			return nil
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "donor name")
	cmd.Flags().StringVar(&email, "email", "", "donor email")
	cmd.Flags().StringVar(&phone, "phone", "", "donor phone (E.164)")
	cmd.Flags().StringVar(&channel, "channel", "sms", "verification channel: sms or email")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("email")
	return cmd
}

func loginCmd() *cobra.Command {
	var username, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Classic username/password login",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, cleanup, err := newOrchestrator()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := orch.Login(cmd.Context(), username, password); err != nil {
				if msg := donorauth.BackendMessage(err); msg != "" {
					return fmt.Errorf("%s", msg)
				}
				return err
			}
			fmt.Println("logged in; state:", orch.State())
			return nil
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "account username")
	cmd.Flags().StringVar(&password, "password", "", "account password")
	_ = cmd.MarkFlagRequired("username")
	_ = cmd.MarkFlagRequired("password")
	return cmd
}

func deviceLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "device-login",
		Short: "Password-less login for a recognized device",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, cleanup, err := newOrchestrator()
			if err != nil {
				return err
			}
			defer cleanup()

			if err := orch.LoginWithDevice(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("logged in; state:", orch.State())
			return nil
		},
	}
}

func logoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "End the active session and clear persisted credentials",
		RunE: func(cmd *cobra.Command, args []string) error {
			orch, cleanup, err := newOrchestrator()
			if err != nil {
				return err
			}
			defer cleanup()

			if _, err := orch.Startup(cmd.Context()); err != nil {
				return err
			}
			if err := orch.Logout(cmd.Context()); err != nil {
				return err
			}
			fmt.Println("logged out")
			return nil
		},
	}
}

func tierCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tier <total>",
		Short: "Show the loyalty tier for a donation total",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			total, err := strconv.ParseFloat(args[0], 64)
			if err != nil {
				return fmt.Errorf("not a number: %q", args[0])
			}
			tier := donorauth.TierOf(total)
			if tier.NextThreshold > 0 {
				fmt.Printf("%s: %.0f of %.0f (%.1f%%)\n", tier.Name, tier.CurrentTotal, tier.NextThreshold, tier.ProgressPercent)
			} else {
				fmt.Printf("%s: %.0f (top tier)\n", tier.Name, tier.CurrentTotal)
			}
			return nil
		},
	}
}

func promptLine(prompt string) (string, error) {
	fmt.Print(prompt)
	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(line), nil
}
