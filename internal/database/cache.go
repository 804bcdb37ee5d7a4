package database

import (
	"context"
	"time"
)

const tokenBlacklistPrefix = "bizgrid:token:blacklist:"

// BlacklistToken marks a JWT as revoked until its natural expiry.
// Used by logout so a stolen token cannot outlive the session.
func BlacklistToken(token string, ttl time.Duration) error {
	if Redis == nil {
		return nil
	}
	if ttl <= 0 {
		ttl = time.Minute
	}
	ctx := context.Background()
	return Redis.Set(ctx, tokenBlacklistPrefix+token, "1", ttl).Err()
}

// IsTokenBlacklisted reports whether a JWT has been revoked via logout.
// Fails open when Redis is unavailable: an expired-but-unrevoked token is
// still rejected by signature/expiry checks in the auth middleware.
func IsTokenBlacklisted(token string) bool {
	if Redis == nil {
		return false
	}
	ctx := context.Background()
	n, err := Redis.Exists(ctx, tokenBlacklistPrefix+token).Result()
	if err != nil {
		return false
	}
	return n > 0
}
