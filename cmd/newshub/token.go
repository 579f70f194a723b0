package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/mohammad-safakhou/newshub/config"
	"github.com/mohammad-safakhou/newshub/internal/runtime"
	"github.com/spf13/cobra"
)

func tokenCMD() *cobra.Command {
	var subject string
	var ttl time.Duration
	var hashKey string

	var token = &cobra.Command{
		Use:   "token",
		Short: "Mint a bearer token signed with server.jwt_secret",
		RunE: func(cmd *cobra.Command, args []string) error {
			if hashKey != "" {
				h, err := runtime.HashAPIKey(hashKey)
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), h)
				return nil
			}
			cfg, err := config.LoadConfig(configPath(cmd))
			if err != nil {
				return err
			}
			if cfg.Server.JWTSecret == "" {
				return errors.New("server.jwt_secret is not configured")
			}
			tok, err := runtime.SignJWT(subject, []byte(cfg.Server.JWTSecret), ttl)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), tok)
			return nil
		},
	}
	token.Flags().StringVar(&subject, "subject", "operator", "token subject")
	token.Flags().DurationVar(&ttl, "ttl", 24*time.Hour, "token lifetime")
	token.Flags().StringVar(&hashKey, "hash-key", "", "print the bcrypt hash of this api key for server.api_key_hash instead")

	return token
}
