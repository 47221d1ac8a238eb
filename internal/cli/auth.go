package cli

import (
	"errors"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/spf13/cobra"

	"github.com/mcoot/reflexpool/internal/api/response"
	"github.com/mcoot/reflexpool/internal/ethcrypto"
	"github.com/mcoot/reflexpool/internal/model"
)

var errNoKey = errors.New("a private key is required (--key or REFLEX_KEY)")

// loadKey parses the configured private key
func loadKey() (*secp256k1.PrivateKey, model.Address, error) {
	if cfg.Key == "" {
		return nil, model.ZeroAddress, errNoKey
	}
	key, err := ethcrypto.ParsePrivateKey(cfg.Key)
	if err != nil {
		return nil, model.ZeroAddress, err
	}
	return key, ethcrypto.PubkeyToAddress(key.PubKey()), nil
}

func newLoginCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "login",
		Short: "Log in by signing a challenge with --key",
		RunE: func(cmd *cobra.Command, args []string) error {
			key, addr, err := loadKey()
			if err != nil {
				return err
			}

			var challenge response.Challenge
			if err := client.Post("/api/v1/auth/challenge", map[string]any{"address": addr}, &challenge); err != nil {
				return err
			}

			sig := ethcrypto.Sign(key, ethcrypto.PersonalMessageHash([]byte(challenge.Message)))
			req := map[string]any{
				"address":   addr,
				"signature": ethcrypto.EncodeSignature(sig),
			}
			var session response.Session
			if err := client.Post("/api/v1/auth/login", req, &session); err != nil {
				return err
			}

			// Save token
			if err := cfg.SaveToken(session.SessionToken); err != nil {
				return fmt.Errorf("failed to save token: %w", err)
			}

			output(cmd).Print(session)
			return nil
		},
	}
}

func newLogoutCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Revoke the current session",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := client.Post("/api/v1/auth/logout", nil, nil); err != nil {
				return err
			}
			if err := cfg.ClearToken(); err != nil {
				return fmt.Errorf("failed to remove token: %w", err)
			}

			output(cmd).PrintMessage("Logged out")
			return nil
		},
	}
}

func newWhoamiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "whoami",
		Short: "Show the logged in address",
		RunE: func(cmd *cobra.Command, args []string) error {
			var session response.Session
			if err := client.Get("/api/v1/auth/me", &session); err != nil {
				return err
			}

			output(cmd).Print(session)
			return nil
		},
	}
}
