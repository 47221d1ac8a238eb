package verifier

import (
	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/mcoot/reflexpool/internal/ethcrypto"
	"github.com/mcoot/reflexpool/internal/model"
)

// MessageHash is keccak256(player ‖ uint256(reactionTime) ‖ uint256(timestamp) ‖ nonce),
// the tightly packed claim a player's wallet signs
func MessageHash(claim model.ReactionClaim) []byte {
	return ethcrypto.Keccak256(
		claim.Player[:],
		ethcrypto.Uint256(uint64(claim.ReactionTime)),
		ethcrypto.Uint256(uint64(claim.Timestamp.Unix())),
		claim.Nonce[:],
	)
}

// ClaimDigest is the EIP-191 digest of MessageHash that the signature covers
func ClaimDigest(claim model.ReactionClaim) []byte {
	return ethcrypto.PersonalMessageHash(MessageHash(claim))
}

// SignClaim fills in claim.Player from the key and signs the claim
func SignClaim(key *secp256k1.PrivateKey, claim model.ReactionClaim) model.ReactionClaim {
	claim.Player = ethcrypto.PubkeyToAddress(key.PubKey())
	claim.Signature = ethcrypto.Sign(key, ClaimDigest(claim))
	return claim
}
