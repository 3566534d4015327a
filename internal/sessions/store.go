// Package sessions tracks which staff members hold a live login, backed by
// redis so revocation takes effect across every server instance at once.
package sessions

import (
	"context"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	keyPrefix  = "staff:session:"
	DefaultTTL = 24 * time.Hour
)

type Store struct {
	client *redis.Client
	ttl    time.Duration
}

func NewStore(client *redis.Client, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{client: client, ttl: ttl}
}

func (s *Store) MarkLoggedIn(ctx context.Context, staffID string) error {
	return s.client.Set(ctx, keyPrefix+staffID, time.Now().UTC().Format(time.RFC3339), s.ttl).Err()
}

func (s *Store) LoggedIn(ctx context.Context, staffID string) (bool, error) {
	n, err := s.client.Exists(ctx, keyPrefix+staffID).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Revoke drops the sessions of the given staff members. Missing keys are not
// an error.
func (s *Store) Revoke(ctx context.Context, staffIDs ...string) error {
	if len(staffIDs) == 0 {
		return nil
	}
	keys := make([]string, len(staffIDs))
	for i, id := range staffIDs {
		keys[i] = keyPrefix + id
	}
	return s.client.Del(ctx, keys...).Err()
}

// RevokeAll drops every live session, forcing the whole staff to log in
// again. Used by the end-of-day logout.
func (s *Store) RevokeAll(ctx context.Context) error {
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var keys []string
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	return s.client.Del(ctx, keys...).Err()
}

// LoggedInStaff lists the staff ids with a live session.
func (s *Store) LoggedInStaff(ctx context.Context) ([]string, error) {
	iter := s.client.Scan(ctx, 0, keyPrefix+"*", 100).Iterator()
	var ids []string
	for iter.Next(ctx) {
		ids = append(ids, iter.Val()[len(keyPrefix):])
	}
	if err := iter.Err(); err != nil {
		return nil, err
	}
	return ids, nil
}
