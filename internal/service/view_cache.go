package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

const viewCacheGlobalGeneration = "labeval:views:gen"

// ViewInvalidator drops cached read views after a committed write.
type ViewInvalidator interface {
	InvalidateStudent(ctx context.Context, studentID uint)
	InvalidateAll(ctx context.Context)
}

type noopViews struct{}

func (noopViews) InvalidateStudent(context.Context, uint) {}
func (noopViews) InvalidateAll(context.Context)          {}

func viewsOrNoop(views ViewInvalidator) ViewInvalidator {
	if views == nil {
		return noopViews{}
	}
	return views
}

// StudentViewCache caches per-student read views in redis. Keys embed a global and a
// per-student generation, so invalidation is a single INCR and stale entries age out.
// A nil client turns every operation into a no-op.
type StudentViewCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewStudentViewCache constructs the cache.
func NewStudentViewCache(client *redis.Client, ttl time.Duration, logger zerolog.Logger) *StudentViewCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &StudentViewCache{
		client: client,
		ttl:    ttl,
		logger: logger.With().Str("component", "student_view_cache").Logger(),
	}
}

func (c *StudentViewCache) enabled() bool {
	return c != nil && c.client != nil
}

func studentGenerationKey(studentID uint) string {
	return fmt.Sprintf("labeval:student:%d:gen", studentID)
}

func (c *StudentViewCache) key(ctx context.Context, studentID uint, view string) (string, bool) {
	values, err := c.client.MGet(ctx, viewCacheGlobalGeneration, studentGenerationKey(studentID)).Result()
	if err != nil {
		c.logger.Warn().Err(err).Msg("failed to read view cache generations")
		return "", false
	}

	global, student := "0", "0"
	if len(values) == 2 {
		if v, ok := values[0].(string); ok {
			global = v
		}
		if v, ok := values[1].(string); ok {
			student = v
		}
	}

	return fmt.Sprintf("labeval:student:%d:%s:%s:%s", studentID, view, global, student), true
}

// Load fills target from the cached view. It returns the slot key resolved from the
// generations at read time so a miss can be filled with Store; the slot is empty when the
// cache is unavailable. Any cache error reports a miss.
func (c *StudentViewCache) Load(ctx context.Context, studentID uint, view string, target interface{}) (string, bool) {
	if !c.enabled() {
		return "", false
	}

	slot, ok := c.key(ctx, studentID, view)
	if !ok {
		return "", false
	}

	cached, err := c.client.Get(ctx, slot).Result()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Str("view", view).Msg("failed to read view cache")
		}
		return slot, false
	}

	if err := json.Unmarshal([]byte(cached), target); err != nil {
		c.logger.Warn().Err(err).Str("view", view).Msg("discarding undecodable cached view")
		return slot, false
	}

	c.logger.Debug().Uint("student_id", studentID).Str("view", view).Msg("view cache hit")
	return slot, true
}

// Store caches value under slot, the key returned by the Load that missed. A view built
// before an invalidation lands under the old generation and is never read.
func (c *StudentViewCache) Store(ctx context.Context, slot string, value interface{}) {
	if !c.enabled() || slot == "" {
		return
	}

	payload, err := json.Marshal(value)
	if err != nil {
		return
	}

	if err := c.client.Set(ctx, slot, payload, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("slot", slot).Msg("failed to store view cache")
	}
}

func (c *StudentViewCache) InvalidateStudent(ctx context.Context, studentID uint) {
	if !c.enabled() {
		return
	}
	if err := c.client.Incr(ctx, studentGenerationKey(studentID)).Err(); err != nil {
		c.logger.Warn().Err(err).Uint("student_id", studentID).Msg("failed to invalidate student views")
	}
}

func (c *StudentViewCache) InvalidateAll(ctx context.Context) {
	if !c.enabled() {
		return
	}
	if err := c.client.Incr(ctx, viewCacheGlobalGeneration).Err(); err != nil {
		c.logger.Warn().Err(err).Msg("failed to invalidate cached views")
	}
}
