// Package auth resolves request credentials to a principal and guards the
// timecard routes. Token issuance and verification happen elsewhere; this
// package only maps an already-issued token to a user id and manager flag.
package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/byuoitav/timecard-service/database"
)

// ErrNoPrincipal is returned when credentials match no user.
var ErrNoPrincipal = errors.New("no principal for credentials")

// Principal is the authenticated identity attached to a request.
type Principal struct {
	ID        string `json:"id"`
	IsManager bool   `json:"isManager"`
}

// Resolver maps request credentials to a principal.
type Resolver interface {
	Resolve(ctx context.Context, token string) (Principal, error)
}

// UserSource is the part of the store the resolver needs.
type UserSource interface {
	FindUserByToken(ctx context.Context, token string) (database.User, error)
}

var cacheBucket = []byte("principals")

type cachedPrincipal struct {
	Principal Principal `json:"principal"`
	CachedAt  time.Time `json:"cachedAt"`
}

// DatabaseResolver resolves tokens against timecard_users, with a local bolt
// cache in front so repeated requests from the same client skip the database.
// Entries expire after ttl; a manager-flag change takes at most ttl to show.
type DatabaseResolver struct {
	users UserSource
	cache *bolt.DB
	ttl   time.Duration
}

// NewDatabaseResolver opens (or creates) the bolt cache file at cachePath.
func NewDatabaseResolver(users UserSource, cachePath string, ttl time.Duration) (*DatabaseResolver, error) {
	cache, err := bolt.Open(cachePath, 0600, &bolt.Options{Timeout: 5 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("error opening auth cache: %w", err)
	}
	err = cache.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(cacheBucket)
		return err
	})
	if err != nil {
		return nil, fmt.Errorf("error creating auth cache bucket: %w", err)
	}
	return &DatabaseResolver{users: users, cache: cache, ttl: ttl}, nil
}

// Close releases the bolt cache file.
func (r *DatabaseResolver) Close() error {
	return r.cache.Close()
}

// Resolve implements Resolver.
func (r *DatabaseResolver) Resolve(ctx context.Context, token string) (Principal, error) {
	if p, ok := r.cached(token); ok {
		return p, nil
	}

	user, err := r.users.FindUserByToken(ctx, token)
	if errors.Is(err, database.ErrNotFound) {
		return Principal{}, ErrNoPrincipal
	}
	if err != nil {
		return Principal{}, fmt.Errorf("error resolving principal: %w", err)
	}

	p := Principal{ID: user.ID, IsManager: user.IsManager}
	r.store(token, p)
	return p, nil
}

func (r *DatabaseResolver) cached(token string) (Principal, bool) {
	var entry cachedPrincipal
	var ok bool
	_ = r.cache.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(cacheBucket).Get([]byte(token))
		if raw == nil {
			return nil
		}
		if err := json.Unmarshal(raw, &entry); err != nil {
			return nil
		}
		ok = time.Since(entry.CachedAt) < r.ttl
		return nil
	})
	return entry.Principal, ok
}

func (r *DatabaseResolver) store(token string, p Principal) {
	raw, err := json.Marshal(cachedPrincipal{Principal: p, CachedAt: time.Now()})
	if err != nil {
		return
	}
	_ = r.cache.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(cacheBucket).Put([]byte(token), raw)
	})
}
