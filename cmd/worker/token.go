package main

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/airaware/airaware/internal/auth"
)

var (
	tokenSubject string
	tokenTTL     time.Duration
)

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Mint an admin token for the API",
	RunE: func(cmd *cobra.Command, _ []string) error {
		if cfg.JWT.SigningKey == "" {
			return errors.New("JWT_SIGNING_KEY must be set to mint tokens")
		}

		svc := auth.NewJWTService(auth.JWTConfig{
			SigningKey: cfg.JWT.SigningKey,
			Issuer:     cfg.JWT.Issuer,
			Audience:   cfg.JWT.Audience,
		})
		token, expiresAt, err := svc.GenerateAccessToken(tokenSubject, tokenTTL)
		if err != nil {
			return fmt.Errorf("generate token: %w", err)
		}

		logger.Info().
			Str("subject", tokenSubject).
			Time("expires_at", expiresAt).
			Msg("admin token issued")
		fmt.Fprintln(cmd.OutOrStdout(), token)
		return nil
	},
}

func init() {
	tokenCmd.Flags().StringVar(&tokenSubject, "subject", "", "operator the token is issued to (required)")
	tokenCmd.Flags().DurationVar(&tokenTTL, "ttl", auth.DefaultTokenExpiry, "token lifetime")
	_ = tokenCmd.MarkFlagRequired("subject")
	rootCmd.AddCommand(tokenCmd)
}
