package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/jonwraymond/infergate/auth"
)

func newTokenCmd() *cobra.Command {
	var (
		configPath string
		subject    string
		service    bool
		ttl        time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with the configured secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			if service == (subject != "") {
				return fmt.Errorf("exactly one of --subject or --service is required")
			}
			cfg, err := loadConfig(cmd.Context(), configPath)
			if err != nil {
				return err
			}
			secret := []byte(cfg.Auth.JWTSecret)

			var tok string
			if service {
				if ttl <= 0 {
					ttl = cfg.Auth.ServiceTokenTTL
				}
				tok, err = auth.IssueServiceToken(secret, ttl)
			} else {
				if ttl <= 0 {
					ttl = cfg.Auth.UserTokenTTL
				}
				tok, err = auth.IssueUserToken(secret, subject, ttl)
			}
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "infergate.yaml", "path to config file")
	cmd.Flags().StringVar(&subject, "subject", "", "user identity to issue the token for")
	cmd.Flags().BoolVar(&service, "service", false, "issue a service principal token")
	cmd.Flags().DurationVar(&ttl, "ttl", 0, "token lifetime (default from config)")
	return cmd
}
