package gate

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"coachgate/internal/cache"
	"coachgate/internal/roles"
)

func TestMemoryRoleCache(t *testing.T) {
	c := NewMemoryRoleCache()
	ctx := context.Background()

	_, ok := c.CachedRoles(ctx, "u1")
	assert.False(t, ok)

	require.NoError(t, c.SaveRoles(ctx, "u1", roles.NewSet(roles.Coach)))
	require.NoError(t, c.SaveRoles(ctx, "u1", roles.NewSet(roles.Customer)))

	set, ok := c.CachedRoles(ctx, "u1")
	assert.True(t, ok)
	assert.Equal(t, roles.NewSet(roles.Customer), set)
}

func TestRedisRoleCache(t *testing.T) {
	mr := miniredis.RunT(t)
	client := cache.New(mr.Addr(), "", 0, zerolog.Nop())
	defer client.Close()
	c := NewRedisRoleCache(client)
	ctx := context.Background()

	_, ok := c.CachedRoles(ctx, "u1")
	assert.False(t, ok)

	require.NoError(t, c.SaveRoles(ctx, "u1", roles.NewSet(roles.Admin, roles.Customer)))
	raw, err := mr.Get("gate:roles:u1")
	require.NoError(t, err)
	assert.Equal(t, "admin,customer", raw)
	assert.Zero(t, mr.TTL("gate:roles:u1"))

	set, ok := c.CachedRoles(ctx, "u1")
	assert.True(t, ok)
	assert.True(t, set.IsAdmin())
	assert.True(t, set.IsCustomer())
}

func TestRedisRoleCacheIgnoresGarbage(t *testing.T) {
	mr := miniredis.RunT(t)
	client := cache.New(mr.Addr(), "", 0, zerolog.Nop())
	defer client.Close()
	c := NewRedisRoleCache(client)

	require.NoError(t, mr.Set("gate:roles:u1", "owner,,root"))
	_, ok := c.CachedRoles(context.Background(), "u1")
	assert.False(t, ok)
}

func TestRedisRoleCacheUnavailable(t *testing.T) {
	mr := miniredis.RunT(t)
	client := cache.New(mr.Addr(), "", 0, zerolog.Nop())
	defer client.Close()
	c := NewRedisRoleCache(client)
	mr.Close()

	_, ok := c.CachedRoles(context.Background(), "u1")
	assert.False(t, ok)
}
