// Package cache keeps hot read paths off MySQL using Redis.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"stemroom/db"
	"stemroom/logger"
	"stemroom/model"
)

// Session payloads change only on a full track replace, so a short TTL
// plus explicit invalidation keeps them fresh.
const sessionTTL = 10 * time.Minute

// SessionPayload is the cached view of a mix session: the session row
// plus its track rows, exactly as the read endpoint returns them.
type SessionPayload struct {
	Session *model.MixSession        `json:"session"`
	Tracks  []*model.MixSessionTrack `json:"tracks"`
}

func sessionKey(sessionID int64) string {
	return fmt.Sprintf("mixsession:%d", sessionID)
}

// GetSession returns the cached payload, or nil on a miss. Cache errors
// are logged and reported as misses; reads must not fail because Redis
// did.
func GetSession(ctx context.Context, sessionID int64) *SessionPayload {
	if db.RedisClient == nil {
		return nil
	}

	data, err := db.RedisClient.Get(ctx, sessionKey(sessionID)).Bytes()
	if err != nil {
		if err != redis.Nil {
			logger.Warn("session cache read failed",
				logger.Int64("sessionId", sessionID), logger.ErrorField(err))
		}
		return nil
	}

	var payload SessionPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		logger.Warn("session cache entry corrupt, dropping",
			logger.Int64("sessionId", sessionID), logger.ErrorField(err))
		db.RedisClient.Del(ctx, sessionKey(sessionID))
		return nil
	}
	return &payload
}

// SetSession stores the payload under the session's key.
func SetSession(ctx context.Context, payload *SessionPayload) {
	if db.RedisClient == nil || payload == nil || payload.Session == nil {
		return
	}

	data, err := json.Marshal(payload)
	if err != nil {
		logger.Warn("session cache marshal failed",
			logger.Int64("sessionId", payload.Session.ID), logger.ErrorField(err))
		return
	}
	if err := db.RedisClient.Set(ctx, sessionKey(payload.Session.ID), data, sessionTTL).Err(); err != nil {
		logger.Warn("session cache write failed",
			logger.Int64("sessionId", payload.Session.ID), logger.ErrorField(err))
	}
}

// InvalidateSession drops the cached payload after a track replace.
func InvalidateSession(ctx context.Context, sessionID int64) {
	if db.RedisClient == nil {
		return
	}
	if err := db.RedisClient.Del(ctx, sessionKey(sessionID)).Err(); err != nil {
		logger.Warn("session cache invalidate failed",
			logger.Int64("sessionId", sessionID), logger.ErrorField(err))
	}
}
