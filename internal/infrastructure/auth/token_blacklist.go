package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

// TokenBlacklist revokes access tokens before they expire: single tokens by
// jti on logout, and every token of a login issued before a password change.
type TokenBlacklist interface {
	// Revoke blacklists one token until ttl elapses
	Revoke(ctx context.Context, jti string, ttl time.Duration) error
	IsRevoked(ctx context.Context, jti string) (bool, error)
	// RevokeAllBefore rejects tokens of login issued before the cutoff.
	// ttl should cover the longest token lifetime.
	RevokeAllBefore(ctx context.Context, login string, cutoff time.Time, ttl time.Duration) error
	// IsRevokedForLogin reports whether a token issued at issuedAt predates the cutoff
	IsRevokedForLogin(ctx context.Context, login string, issuedAt time.Time) (bool, error)
}

// issuedBefore compares at second resolution because JWT iat has no fraction
func issuedBefore(issuedAt time.Time, cutoffUnix int64) bool {
	return issuedAt.Unix() < cutoffUnix
}

// RedisTokenBlacklist shares revocations between instances
type RedisTokenBlacklist struct {
	client    *redis.Client
	keyPrefix string
}

// NewRedisTokenBlacklist uses an existing client; keys live under prefix
func NewRedisTokenBlacklist(client *redis.Client, prefix string) *RedisTokenBlacklist {
	return &RedisTokenBlacklist{client: client, keyPrefix: prefix + "token:revoked:"}
}

func (b *RedisTokenBlacklist) jtiKey(jti string) string {
	return b.keyPrefix + "jti:" + jti
}

func (b *RedisTokenBlacklist) loginKey(login string) string {
	return b.keyPrefix + "login:" + login
}

// Revoke implements TokenBlacklist
func (b *RedisTokenBlacklist) Revoke(ctx context.Context, jti string, ttl time.Duration) error {
	if err := b.client.Set(ctx, b.jtiKey(jti), "1", ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}

// IsRevoked implements TokenBlacklist
func (b *RedisTokenBlacklist) IsRevoked(ctx context.Context, jti string) (bool, error) {
	n, err := b.client.Exists(ctx, b.jtiKey(jti)).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	return n > 0, nil
}

// RevokeAllBefore implements TokenBlacklist
func (b *RedisTokenBlacklist) RevokeAllBefore(ctx context.Context, login string, cutoff time.Time, ttl time.Duration) error {
	if err := b.client.Set(ctx, b.loginKey(login), cutoff.Unix(), ttl).Err(); err != nil {
		return fmt.Errorf("failed to revoke tokens of %s: %w", login, err)
	}
	return nil
}

// IsRevokedForLogin implements TokenBlacklist
func (b *RedisTokenBlacklist) IsRevokedForLogin(ctx context.Context, login string, issuedAt time.Time) (bool, error) {
	raw, err := b.client.Get(ctx, b.loginKey(login)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check token revocation: %w", err)
	}
	cutoff, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		return false, fmt.Errorf("failed to parse revocation cutoff: %w", err)
	}
	return issuedBefore(issuedAt, cutoff), nil
}

// InMemoryTokenBlacklist keeps revocations in process memory.
// Revocations are not shared between instances.
type InMemoryTokenBlacklist struct {
	mu      sync.Mutex
	jtis    map[string]time.Time // jti -> entry expiry
	cutoffs map[string]int64     // login -> cutoff (unix seconds)
}

// NewInMemoryTokenBlacklist creates an empty blacklist
func NewInMemoryTokenBlacklist() *InMemoryTokenBlacklist {
	return &InMemoryTokenBlacklist{
		jtis:    make(map[string]time.Time),
		cutoffs: make(map[string]int64),
	}
}

// Revoke implements TokenBlacklist
func (b *InMemoryTokenBlacklist) Revoke(_ context.Context, jti string, ttl time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.jtis[jti] = time.Now().Add(ttl)
	return nil
}

// IsRevoked implements TokenBlacklist
func (b *InMemoryTokenBlacklist) IsRevoked(_ context.Context, jti string) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	expiry, ok := b.jtis[jti]
	if !ok {
		return false, nil
	}
	if time.Now().After(expiry) {
		delete(b.jtis, jti)
		return false, nil
	}
	return true, nil
}

// RevokeAllBefore implements TokenBlacklist. The ttl is ignored.
func (b *InMemoryTokenBlacklist) RevokeAllBefore(_ context.Context, login string, cutoff time.Time, _ time.Duration) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.cutoffs[login] = cutoff.Unix()
	return nil
}

// IsRevokedForLogin implements TokenBlacklist
func (b *InMemoryTokenBlacklist) IsRevokedForLogin(_ context.Context, login string, issuedAt time.Time) (bool, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	cutoff, ok := b.cutoffs[login]
	return ok && issuedBefore(issuedAt, cutoff), nil
}

var (
	_ TokenBlacklist = (*RedisTokenBlacklist)(nil)
	_ TokenBlacklist = (*InMemoryTokenBlacklist)(nil)
)
