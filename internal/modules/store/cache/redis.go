// Package cache keeps a read-through copy of each tenant's enabled-module set.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	id "hearth/pkg/domain"
)

const (
	setPrefix     = "hearth:modules:enabled:"
	versionPrefix = "hearth:modules:version:"
)

// RedisCache stores a tenant's enabled-module ids under one key with a TTL,
// tagged with the tenant's version counter. Invalidate bumps the counter, so
// an entry written from a read that started before the bump no longer matches
// and is treated as a miss. The TTL bounds staleness when an invalidation is lost.
type RedisCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

type entry struct {
	Version int64         `json:"v"`
	Modules []id.ModuleID `json:"m"`
}

func NewRedis(client redis.Cmdable, ttl time.Duration) *RedisCache {
	return &RedisCache{client: client, ttl: ttl}
}

// Get returns the cached set when its version is current. On a miss it
// returns the version a following Set must carry.
func (c *RedisCache) Get(ctx context.Context, tenantID id.TenantID) ([]id.ModuleID, int64, bool, error) {
	vals, err := c.client.MGet(ctx, setKey(tenantID), versionKey(tenantID)).Result()
	if err != nil {
		return nil, 0, false, fmt.Errorf("get enabled modules: %w", err)
	}
	version, err := parseVersion(vals[1])
	if err != nil {
		return nil, 0, false, err
	}
	raw, ok := vals[0].(string)
	if !ok {
		return nil, version, false, nil
	}
	var e entry
	if err := json.Unmarshal([]byte(raw), &e); err != nil {
		return nil, 0, false, fmt.Errorf("decode enabled modules: %w", err)
	}
	if e.Version != version {
		return nil, version, false, nil
	}
	return e.Modules, version, true, nil
}

func (c *RedisCache) Set(ctx context.Context, tenantID id.TenantID, version int64, modules []id.ModuleID) error {
	if modules == nil {
		modules = []id.ModuleID{}
	}
	raw, err := json.Marshal(entry{Version: version, Modules: modules})
	if err != nil {
		return fmt.Errorf("encode enabled modules: %w", err)
	}
	if err := c.client.Set(ctx, setKey(tenantID), raw, c.ttl).Err(); err != nil {
		return fmt.Errorf("set enabled modules: %w", err)
	}
	return nil
}

func (c *RedisCache) Invalidate(ctx context.Context, tenantID id.TenantID) error {
	_, err := c.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, versionKey(tenantID))
		pipe.Del(ctx, setKey(tenantID))
		return nil
	})
	if err != nil {
		return fmt.Errorf("invalidate enabled modules: %w", err)
	}
	return nil
}

func parseVersion(v any) (int64, error) {
	s, ok := v.(string)
	if !ok {
		return 0, nil
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("decode enabled modules version %q: %w", s, err)
	}
	return n, nil
}

func setKey(tenantID id.TenantID) string {
	return setPrefix + tenantID.String()
}

func versionKey(tenantID id.TenantID) string {
	return versionPrefix + tenantID.String()
}
