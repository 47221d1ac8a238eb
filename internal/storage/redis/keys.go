package redis

import (
	"fmt"

	"github.com/mcoot/reflexpool/internal/model"
)

// Key prefix for all reflexpool data
const keyPrefix = "reflex"

// Key generation functions for each entity type

// versionKey is bumped by every committed write transaction. All transactions
// WATCH it, which makes them serializable.
func versionKey() string {
	return fmt.Sprintf("%s:version", keyPrefix)
}

// playerKey returns the Redis key for a PlayerRecord
func playerKey(player model.Address) string {
	return fmt.Sprintf("%s:player:%s", keyPrefix, player)
}

// playerListKey returns the Redis key for the LIST of players in registration order
func playerListKey() string {
	return fmt.Sprintf("%s:idx:players", keyPrefix)
}

// poolKey returns the Redis key for a Pool
func poolKey(id model.PoolID) string {
	return fmt.Sprintf("%s:pool:%s", keyPrefix, id)
}

// poolCountKey returns the Redis key holding the number of pools ever created
func poolCountKey() string {
	return fmt.Sprintf("%s:pool_count", keyPrefix)
}

// playerPoolsKey returns the Redis key for the LIST of pool ids a player created or joined
func playerPoolsKey(player model.Address) string {
	return fmt.Sprintf("%s:idx:player_pools:%s", keyPrefix, player)
}

// nonceKey returns the Redis key for a consumed nonce
func nonceKey(nonce model.Nonce) string {
	return fmt.Sprintf("%s:nonce:%s", keyPrefix, nonce)
}

// nonceIndexKey returns the Redis key for the ZSET of nonces scored by claim time (ms)
func nonceIndexKey() string {
	return fmt.Sprintf("%s:idx:nonces", keyPrefix)
}

// balanceKey returns the Redis key for a token balance
func balanceKey(owner model.Address) string {
	return fmt.Sprintf("%s:balance:%s", keyPrefix, owner)
}

// allowanceKey returns the Redis key for a token allowance
func allowanceKey(owner, spender model.Address) string {
	return fmt.Sprintf("%s:allowance:%s:%s", keyPrefix, owner, spender)
}
