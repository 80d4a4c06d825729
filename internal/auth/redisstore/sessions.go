// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Neighborhood Watch Contributors

// Package redisstore keeps sessions in Redis so several API replicas can
// share them. Users and one-time tokens stay in the SQL store.
package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/Skets-max/Project-473/internal/auth"
)

// DefaultPrefix namespaces every key the repository writes.
const DefaultPrefix = "neighborwatch:"

// SessionRepository implements auth.SessionRepository on Redis.
// Each session is a JSON value whose TTL matches its expiry, and each user
// has a set indexing their session IDs.
type SessionRepository struct {
	rdb    redis.UniversalClient
	prefix string
	now    func() time.Time
}

// NewSessionRepository creates a SessionRepository. An empty prefix uses DefaultPrefix.
func NewSessionRepository(rdb redis.UniversalClient, prefix string) *SessionRepository {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &SessionRepository{rdb: rdb, prefix: prefix, now: time.Now}
}

type sessionRecord struct {
	ID            string    `json:"id"`
	UserID        string    `json:"userId"`
	Role          string    `json:"role"`
	EmailVerified bool      `json:"emailVerified"`
	TokenHash     string    `json:"tokenHash"`
	UserAgent     string    `json:"userAgent,omitempty"`
	IPAddress     string    `json:"ipAddress,omitempty"`
	ExpiresAt     time.Time `json:"expiresAt"`
	CreatedAt     time.Time `json:"createdAt"`
	LastSeenAt    time.Time `json:"lastSeenAt"`
}

func (r *SessionRepository) sessionKey(id string) string { return r.prefix + "session:" + id }
func (r *SessionRepository) userKey(id string) string    { return r.prefix + "user-sessions:" + id }

// Create stores a new session.
func (r *SessionRepository) Create(ctx context.Context, s *auth.Session) error {
	ttl := s.ExpiresAt.Sub(r.now())
	if ttl <= 0 {
		return oops.Code("SESSION_CREATE_FAILED").
			With("id", s.ID.String()).
			Errorf("session already expired")
	}
	payload, err := json.Marshal(sessionRecord{
		ID:            s.ID.String(),
		UserID:        s.UserID.String(),
		Role:          string(s.Role),
		EmailVerified: s.EmailVerified,
		TokenHash:     s.TokenHash,
		UserAgent:     s.UserAgent,
		IPAddress:     s.IPAddress,
		ExpiresAt:     s.ExpiresAt,
		CreatedAt:     s.CreatedAt,
		LastSeenAt:    s.LastSeenAt,
	})
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").With("operation", "encode session").Wrap(err)
	}

	userKey := r.userKey(s.UserID.String())
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, r.sessionKey(s.ID.String()), payload, ttl)
		pipe.SAdd(ctx, userKey, s.ID.String())
		pipe.Expire(ctx, userKey, ttl)
		return nil
	})
	if err != nil {
		return oops.Code("SESSION_CREATE_FAILED").
			With("operation", "store session").
			With("user_id", s.UserID.String()).
			Wrap(err)
	}
	return nil
}

// GetByID retrieves a session by ID.
func (r *SessionRepository) GetByID(ctx context.Context, id ulid.ULID) (*auth.Session, error) {
	rec, err := r.load(ctx, id)
	if err != nil {
		return nil, err
	}
	return rec.toDomain()
}

func (r *SessionRepository) load(ctx context.Context, id ulid.ULID) (*sessionRecord, error) {
	raw, err := r.rdb.Get(ctx, r.sessionKey(id.String())).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, oops.Code("SESSION_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("SESSION_GET_FAILED").With("id", id.String()).Wrap(err)
	}
	var rec sessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, oops.Code("SESSION_DECODE_FAILED").With("id", id.String()).Wrap(err)
	}
	return &rec, nil
}

// UpdateLastSeen rewrites the session with a new LastSeenAt, keeping its TTL.
func (r *SessionRepository) UpdateLastSeen(ctx context.Context, id ulid.ULID, lastSeen time.Time) error {
	rec, err := r.load(ctx, id)
	if err != nil {
		return err
	}
	rec.LastSeenAt = lastSeen
	payload, err := json.Marshal(rec)
	if err != nil {
		return oops.Code("SESSION_UPDATE_LAST_SEEN_FAILED").With("operation", "encode session").Wrap(err)
	}
	ok, err := r.rdb.SetArgs(ctx, r.sessionKey(id.String()), payload, redis.SetArgs{Mode: "XX", KeepTTL: true}).Result()
	if errors.Is(err, redis.Nil) || (err == nil && ok != "OK") {
		return oops.Code("SESSION_NOT_FOUND").With("id", id.String()).Wrap(auth.ErrNotFound)
	}
	if err != nil {
		return oops.Code("SESSION_UPDATE_LAST_SEEN_FAILED").With("id", id.String()).Wrap(err)
	}
	return nil
}

// Delete removes a session.
func (r *SessionRepository) Delete(ctx context.Context, id ulid.ULID) error {
	rec, err := r.load(ctx, id)
	if errors.Is(err, auth.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	_, err = r.rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, r.sessionKey(rec.ID))
		pipe.SRem(ctx, r.userKey(rec.UserID), rec.ID)
		return nil
	})
	if err != nil {
		return oops.Code("SESSION_DELETE_FAILED").With("id", id.String()).Wrap(err)
	}
	return nil
}

// DeleteByUser removes every session of a user.
func (r *SessionRepository) DeleteByUser(ctx context.Context, userID ulid.ULID) error {
	userKey := r.userKey(userID.String())
	ids, err := r.rdb.SMembers(ctx, userKey).Result()
	if err != nil {
		return oops.Code("SESSION_DELETE_BY_USER_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, r.sessionKey(id))
	}
	keys = append(keys, userKey)
	if err := r.rdb.Del(ctx, keys...).Err(); err != nil {
		return oops.Code("SESSION_DELETE_BY_USER_FAILED").With("user_id", userID.String()).Wrap(err)
	}
	return nil
}

// DeleteExpired prunes index entries whose sessions Redis has already
// expired. The sessions themselves expire through their TTL.
func (r *SessionRepository) DeleteExpired(ctx context.Context) (int64, error) {
	var removed int64
	iter := r.rdb.Scan(ctx, 0, r.userKey("*"), 100).Iterator()
	for iter.Next(ctx) {
		userKey := iter.Val()
		ids, err := r.rdb.SMembers(ctx, userKey).Result()
		if err != nil {
			return removed, oops.Code("SESSION_DELETE_EXPIRED_FAILED").With("key", userKey).Wrap(err)
		}
		for _, id := range ids {
			n, err := r.rdb.Exists(ctx, r.sessionKey(id)).Result()
			if err != nil {
				return removed, oops.Code("SESSION_DELETE_EXPIRED_FAILED").With("key", userKey).Wrap(err)
			}
			if n > 0 {
				continue
			}
			if err := r.rdb.SRem(ctx, userKey, id).Err(); err != nil {
				return removed, oops.Code("SESSION_DELETE_EXPIRED_FAILED").With("key", userKey).Wrap(err)
			}
			removed++
		}
	}
	if err := iter.Err(); err != nil {
		return removed, oops.Code("SESSION_DELETE_EXPIRED_FAILED").With("operation", "scan user indexes").Wrap(err)
	}
	return removed, nil
}

func (rec *sessionRecord) toDomain() (*auth.Session, error) {
	id, err := ulid.Parse(rec.ID)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_ID").With("id", rec.ID).Wrap(err)
	}
	userID, err := ulid.Parse(rec.UserID)
	if err != nil {
		return nil, oops.Code("SESSION_INVALID_USER_ID").With("user_id", rec.UserID).Wrap(err)
	}
	return &auth.Session{
		ID:            id,
		UserID:        userID,
		Role:          auth.Role(rec.Role),
		EmailVerified: rec.EmailVerified,
		TokenHash:     rec.TokenHash,
		UserAgent:     rec.UserAgent,
		IPAddress:     rec.IPAddress,
		ExpiresAt:     rec.ExpiresAt,
		CreatedAt:     rec.CreatedAt,
		LastSeenAt:    rec.LastSeenAt,
	}, nil
}

var _ auth.SessionRepository = (*SessionRepository)(nil)
