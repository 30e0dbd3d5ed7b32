package ratelimiting

import (
	"context"
	"net/url"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenBucketRateLimiter(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping test in short mode")
	}
	rateLimiter, stop := NewTokenBucketRateLimiter(1, 2)
	defer stop()

	assert.True(t, rateLimiter.Consume("api.wmata.com"))

	// Burst of 2
	assert.True(t, rateLimiter.Consume("gbfs.capitalbikeshare.com"))
	assert.True(t, rateLimiter.Consume("gbfs.capitalbikeshare.com"))
	assert.False(t, rateLimiter.Consume("gbfs.capitalbikeshare.com"))

	time.Sleep(1000 * time.Millisecond)
	runtime.Gosched()

	// Refill rate of 1
	assert.True(t, rateLimiter.Consume("gbfs.capitalbikeshare.com"))
	assert.False(t, rateLimiter.Consume("gbfs.capitalbikeshare.com"))

	assert.True(t, rateLimiter.Consume("api.wmata.com"))
	assert.True(t, rateLimiter.Consume("api.wmata.com"))
	assert.False(t, rateLimiter.Consume("api.wmata.com"))
}

func TestTokenBucketRateLimiterWait(t *testing.T) {
	t.Parallel()

	rateLimiter, stop := NewTokenBucketRateLimiter(1, 1)
	defer stop()

	require.NoError(t, rateLimiter.Wait(context.Background(), "host: api.wmata.com"))

	// The bucket is empty and the next token is a second away
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	require.Error(t, rateLimiter.Wait(ctx, "host: api.wmata.com"))

	// Other hosts have their own bucket
	require.NoError(t, rateLimiter.Wait(context.Background(), "host: gbfs.capitalbikeshare.com"))
}

func TestHostKey(t *testing.T) {
	t.Parallel()

	u, err := url.Parse("https://api.wmata.com/StationPrediction.svc/json/GetPrediction/A01")
	require.NoError(t, err)
	assert.Equal(t, "host: api.wmata.com", HostKey(u))
}
