package redis

import "fmt"

// KeyBuilder builds environment-prefixed Redis keys so staging and
// production can share an instance without colliding.
type KeyBuilder struct {
	prefix string
}

// NewKeyBuilder creates a key builder for the given environment.
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" || environment == "test" {
		prefix = "staging"
	}
	return &KeyBuilder{prefix: prefix}
}

// BuildKey prepends the environment prefix.
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix.
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// KeyVoteCounts is the cache key for a poll's aggregate vote counts.
func (kb *KeyBuilder) KeyVoteCounts(pollID string) string {
	return kb.BuildKey(fmt.Sprintf(keyVoteCounts, pollID))
}

// KeyUserVoted marks that a user has voted on a poll. Only set after a
// confirmed write; feed filtering still reads the votes table directly.
func (kb *KeyBuilder) KeyUserVoted(userID, pollID string) string {
	return kb.BuildKey(fmt.Sprintf(keyUserVoted, userID, pollID))
}

// KeyIdentityBootstrap is the idempotency lock key guarding first-time
// anonymous identity creation for a device.
func (kb *KeyBuilder) KeyIdentityBootstrap(deviceID string) string {
	return kb.BuildKey(fmt.Sprintf(keyIdentityBootstrap, deviceID))
}

// ChannelVoteCounts is the pub/sub channel carrying aggregate updates for a
// poll. Subscribers treat it as an eventually consistent feed.
func (kb *KeyBuilder) ChannelVoteCounts(pollID string) string {
	return kb.BuildKey(fmt.Sprintf(channelVoteCounts, pollID))
}
