package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/AmareGatie/phase4/auth"
	"github.com/AmareGatie/phase4/auth/jwt"
)

// newTokenCmd mints a token with the configured secret for local testing.
func newTokenCmd(configFile *string) *cobra.Command {
	var (
		username string
		userID   string
		ttl      time.Duration
	)
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Print a signed bearer token for local testing",
		RunE: func(cmd *cobra.Command, _ []string) error {
			if username == "" || userID == "" {
				return errors.New("--username and --userid are required")
			}
			cfg, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			token, err := mintToken(&cfg.Auth, username, userID, ttl)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), token)
			return err
		},
	}
	cmd.Flags().StringVar(&username, "username", "", "username claim")
	cmd.Flags().StringVar(&userID, "userid", "", "userid claim")
	cmd.Flags().DurationVar(&ttl, "ttl", time.Hour, "token lifetime")
	return cmd
}

func mintToken(cfg *auth.Config, username, userID string, ttl time.Duration) (string, error) {
	cfg.ApplyDefaults()
	if err := cfg.Validate(); err != nil {
		return "", err
	}
	svc, err := jwt.NewService(&cfg.JWT, auth.NewClaims)
	if err != nil {
		return "", err
	}
	return svc.Issue(&auth.Claims{Username: username, UserID: userID}, ttl)
}
