package redisclient

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKeyNamespacing(t *testing.T) {
	assert.Equal(t, "slot:42", slotKey(42))

	// Lock names are namespaced here, callers must not pre-prefix them
	assert.Equal(t, "lock:stale-booking-sweep", lockKey("stale-booking-sweep"))
	assert.Equal(t, "lock:recurrence-expansion", lockKey("recurrence-expansion"))
}

func TestInitSlotMirrorLifetime(t *testing.T) {
	t.Skip("Integration test - requires Redis")

	client, err := NewClient("localhost:6379", "", 0)
	require.NoError(t, err)
	defer client.Close()

	ctx := context.Background()

	// A future slot is mirrored until its start
	require.NoError(t, client.InitSlot(ctx, 9001, 5, 2, time.Now().Add(time.Hour)))
	capacity, booked, err := client.GetSlotMirror(ctx, 9001)
	require.NoError(t, err)
	assert.Equal(t, 5, capacity)
	assert.Equal(t, 2, booked)

	// A slot past its start never answers from the mirror
	require.NoError(t, client.InitSlot(ctx, 9002, 5, 2, time.Now().Add(-time.Hour)))
	_, _, err = client.GetSlotMirror(ctx, 9002)
	assert.Error(t, err)

	// Re-seeding an already started slot drops a stale mirror
	require.NoError(t, client.InitSlot(ctx, 9001, 5, 2, time.Now().Add(-time.Minute)))
	_, _, err = client.GetSlotMirror(ctx, 9001)
	assert.Error(t, err)
}
