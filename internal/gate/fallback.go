package gate

import (
	"context"
	"strings"
	"sync"

	"coachgate/internal/cache"
	"coachgate/internal/roles"
)

// RoleCache remembers the last roles confirmed by a successful check so a
// later check can still decide when the backend is unreachable. It is never
// authoritative.
type RoleCache interface {
	SaveRoles(ctx context.Context, userID string, set roles.Set) error
	CachedRoles(ctx context.Context, userID string) (roles.Set, bool)
}

// MemoryRoleCache keeps roles in process memory.
type MemoryRoleCache struct {
	mu    sync.RWMutex
	roles map[string]roles.Set
}

// NewMemoryRoleCache creates an empty in-memory role cache.
func NewMemoryRoleCache() *MemoryRoleCache {
	return &MemoryRoleCache{roles: make(map[string]roles.Set)}
}

func (c *MemoryRoleCache) SaveRoles(_ context.Context, userID string, set roles.Set) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.roles[userID] = set
	return nil
}

func (c *MemoryRoleCache) CachedRoles(_ context.Context, userID string) (roles.Set, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	set, ok := c.roles[userID]
	return set, ok
}

const roleKeyPrefix = "gate:roles:"

// RedisRoleCache persists roles in redis as a comma separated list. Entries do
// not expire; each successful check overwrites them.
type RedisRoleCache struct {
	cache *cache.Client
}

// NewRedisRoleCache creates a role cache backed by the given client.
func NewRedisRoleCache(c *cache.Client) *RedisRoleCache {
	return &RedisRoleCache{cache: c}
}

func (c *RedisRoleCache) SaveRoles(ctx context.Context, userID string, set roles.Set) error {
	return c.cache.Set(ctx, roleKeyPrefix+userID, []byte(set.String()), 0)
}

func (c *RedisRoleCache) CachedRoles(ctx context.Context, userID string) (roles.Set, bool) {
	data, _ := c.cache.Get(ctx, roleKeyPrefix+userID)
	if data == nil {
		return 0, false
	}
	var set roles.Set
	for _, name := range strings.Split(string(data), ",") {
		r, err := roles.Parse(name)
		if err != nil {
			continue
		}
		set |= roles.NewSet(r)
	}
	if set.Empty() {
		return 0, false
	}
	return set, true
}
