package cli

import (
	"time"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/spf13/cobra"

	"github.com/mcoot/reflexpool/internal/api/request"
	"github.com/mcoot/reflexpool/internal/dependencies/random"
	"github.com/mcoot/reflexpool/internal/ethcrypto"
	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/services/verifier"
)

// SignedClaim is a reaction claim in the form the API accepts
type SignedClaim = request.ReactionClaim

func newSignCmd() *cobra.Command {
	var reactionTime, nonceHex string
	var timestamp int64

	cmd := &cobra.Command{
		Use:   "sign",
		Short: "Sign a reaction claim offline",
		Long: `Sign a reaction claim with --key without contacting the server.

The output can be posted to /api/v1/verifier/verify or /api/v1/pools/{id}/submit.
A random nonce and the current time are used unless given.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ms, err := parseReactionTime(reactionTime)
			if err != nil {
				return err
			}
			key, _, err := loadKey()
			if err != nil {
				return err
			}

			nonce := newNonce()
			if nonceHex != "" {
				if nonce, err = model.ParseNonce(nonceHex); err != nil {
					return err
				}
			}
			at := time.Now()
			if timestamp > 0 {
				at = time.Unix(timestamp, 0)
			}

			output(cmd).Print(signClaim(key, ms, at, nonce))
			return nil
		},
	}

	cmd.Flags().StringVar(&reactionTime, "time", "", "Reaction time in milliseconds (required)")
	cmd.Flags().StringVar(&nonceHex, "nonce", "", "32 byte hex nonce (default: random)")
	cmd.Flags().Int64Var(&timestamp, "timestamp", 0, "Unix timestamp in seconds (default: now)")
	_ = cmd.MarkFlagRequired("time")

	return cmd
}

func newNonce() model.Nonce {
	var nonce model.Nonce
	copy(nonce[:], random.New().Bytes(model.NonceLength))
	return nonce
}

// signClaim signs a claim and renders it in wire form
func signClaim(key *secp256k1.PrivateKey, ms model.ReactionTime, at time.Time, nonce model.Nonce) SignedClaim {
	claim := verifier.SignClaim(key, model.ReactionClaim{
		ReactionTime: ms,
		Timestamp:    time.Unix(at.Unix(), 0).UTC(),
		Nonce:        nonce,
	})
	return SignedClaim{
		Player:       claim.Player,
		ReactionTime: claim.ReactionTime,
		Timestamp:    claim.Timestamp.Unix(),
		Nonce:        claim.Nonce,
		Signature:    ethcrypto.EncodeSignature(claim.Signature),
	}
}
