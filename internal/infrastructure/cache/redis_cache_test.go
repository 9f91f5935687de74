package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBuildUniversalOptions(t *testing.T) {
	opts, err := buildUniversalOptions("redis://:secret@localhost:6379/2")
	require.NoError(t, err)
	assert.Equal(t, []string{"localhost:6379"}, opts.Addrs)
	assert.Equal(t, "secret", opts.Password)
	assert.Equal(t, 2, opts.DB)

	opts, err = buildUniversalOptions("redis-a:6379, redis-b:6379")
	require.NoError(t, err)
	assert.Equal(t, []string{"redis-a:6379", "redis-b:6379"}, opts.Addrs)

	_, err = buildUniversalOptions(" , ")
	assert.Error(t, err)

	_, err = buildUniversalOptions("ftp://localhost")
	assert.Error(t, err)
}
