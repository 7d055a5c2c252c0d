// Package sessions keeps the per-user index of Redis sessions so an account
// can be signed out everywhere at once.
package sessions

import (
	"context"

	"somosrentable-backend/internal/middleware"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const userSessionsPrefix = "user_sessions:"

func indexKey(userID string) string {
	return userSessionsPrefix + userID
}

// Track records sid as one of the user's live sessions.
func Track(ctx context.Context, rdb *redis.Client, userID, sid string) error {
	if rdb == nil || userID == "" || sid == "" {
		return nil
	}
	return rdb.SAdd(ctx, indexKey(userID), sid).Err()
}

// Forget drops sid from the user's index and deletes the session itself.
func Forget(ctx context.Context, rdb *redis.Client, userID, sid string) {
	if rdb == nil || sid == "" {
		return
	}
	if userID != "" {
		_ = rdb.SRem(ctx, indexKey(userID), sid).Err()
	}
	_ = rdb.Del(ctx, middleware.SessionRedisPrefix+sid).Err()
}

// DestroyAll deletes every session of the user and the index set. Used when
// an account is deactivated.
func DestroyAll(ctx context.Context, rdb *redis.Client, userID string) {
	if rdb == nil || userID == "" {
		return
	}
	key := indexKey(userID)
	ids, err := rdb.SMembers(ctx, key).Result()
	if err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("session index read failed")
	}
	keys := make([]string, 0, len(ids)+1)
	for _, sid := range ids {
		keys = append(keys, middleware.SessionRedisPrefix+sid)
	}
	keys = append(keys, key)
	if err := rdb.Del(ctx, keys...).Err(); err != nil {
		log.Warn().Err(err).Str("user_id", userID).Msg("session cleanup failed")
	}
}
