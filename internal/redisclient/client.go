package redisclient

import (
	"context"
	_ "embed"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

//go:embed scripts/book_slot.lua
var bookSlotScript string

//go:embed scripts/unbook_slot.lua
var unbookSlotScript string

// Client mirrors slot capacity for fast availability reads and caches
// idempotency keys and catalog offerings. Postgres stays the admission
// decision point; the mirror is advisory.
type Client struct {
	rdb          *redis.Client
	bookScript   *redis.Script
	unbookScript *redis.Script
}

// NewClient creates a new Redis client with Lua scripts loaded
func NewClient(addr, password string, db int) (*Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &Client{
		rdb:          rdb,
		bookScript:   redis.NewScript(bookSlotScript),
		unbookScript: redis.NewScript(unbookSlotScript),
	}, nil
}

// Close closes the Redis connection
func (c *Client) Close() error {
	return c.rdb.Close()
}

func slotKey(slotID int64) string {
	return fmt.Sprintf("slot:%d", slotID)
}

// InitSlot seeds or refreshes the capacity mirror for a slot. The mirror
// expires at the slot's start, after which reads fall through to the
// database, which knows a started slot is no longer bookable.
func (c *Client) InitSlot(ctx context.Context, slotID int64, capacity, booked int, startAt time.Time) error {
	if !startAt.After(time.Now()) {
		return c.rdb.Del(ctx, slotKey(slotID)).Err()
	}

	pipe := c.rdb.Pipeline()
	pipe.HSet(ctx, slotKey(slotID), "capacity", capacity)
	pipe.HSet(ctx, slotKey(slotID), "booked", booked)
	pipe.ExpireAt(ctx, slotKey(slotID), startAt)

	_, err := pipe.Exec(ctx)
	return err
}

// ApplyBooking applies a reservation to the mirror. Returns false when the
// mirror has no room or no entry for the slot; either way the database
// outcome already decided the reservation.
func (c *Client) ApplyBooking(ctx context.Context, slotID int64, qty int) (bool, error) {
	result, err := c.bookScript.Run(ctx, c.rdb, []string{slotKey(slotID)}, qty).Result()
	if err != nil {
		return false, fmt.Errorf("book slot script failed: %w", err)
	}

	applied, ok := result.(int64)
	if !ok {
		return false, fmt.Errorf("unexpected script result type")
	}
	return applied == 1, nil
}

// ApplyRelease applies a capacity release to the mirror.
func (c *Client) ApplyRelease(ctx context.Context, slotID int64, qty int) error {
	_, err := c.unbookScript.Run(ctx, c.rdb, []string{slotKey(slotID)}, qty).Result()
	if err != nil {
		return fmt.Errorf("unbook slot script failed: %w", err)
	}
	return nil
}

// GetSlotMirror retrieves the mirrored capacity counts for a slot.
func (c *Client) GetSlotMirror(ctx context.Context, slotID int64) (capacity, booked int, err error) {
	result, err := c.rdb.HGetAll(ctx, slotKey(slotID)).Result()
	if err != nil {
		return 0, 0, err
	}

	if len(result) == 0 {
		return 0, 0, fmt.Errorf("slot %d not mirrored", slotID)
	}

	fmt.Sscanf(result["capacity"], "%d", &capacity)
	fmt.Sscanf(result["booked"], "%d", &booked)
	return capacity, booked, nil
}

// DropSlotMirror removes a slot from the mirror (soft delete, cancellation).
func (c *Client) DropSlotMirror(ctx context.Context, slotID int64) error {
	return c.rdb.Del(ctx, slotKey(slotID)).Err()
}

// SetIdempotencyResult caches the payment id created for an idempotency key.
func (c *Client) SetIdempotencyResult(ctx context.Context, key string, paymentID int64, ttl time.Duration) error {
	return c.rdb.Set(ctx, fmt.Sprintf("idempotency:%s", key), paymentID, ttl).Err()
}

// GetIdempotencyResult returns the cached payment id for an idempotency key,
// or false when the key is unknown.
func (c *Client) GetIdempotencyResult(ctx context.Context, key string) (int64, bool, error) {
	id, err := c.rdb.Get(ctx, fmt.Sprintf("idempotency:%s", key)).Int64()
	if err == redis.Nil {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return id, true, nil
}

// CacheOffering stores a catalog offering as JSON with a TTL.
func (c *Client) CacheOffering(ctx context.Context, offeringID int64, offering interface{}, ttl time.Duration) error {
	data, err := json.Marshal(offering)
	if err != nil {
		return err
	}
	return c.rdb.Set(ctx, fmt.Sprintf("offering:%d", offeringID), data, ttl).Err()
}

// GetCachedOffering unmarshals a cached offering into dest. Returns false on
// a cache miss.
func (c *Client) GetCachedOffering(ctx context.Context, offeringID int64, dest interface{}) (bool, error) {
	data, err := c.rdb.Get(ctx, fmt.Sprintf("offering:%d", offeringID)).Bytes()
	if err == redis.Nil {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, json.Unmarshal(data, dest)
}

// lockKey namespaces a bare lock name. Callers pass the name only.
func lockKey(name string) string {
	return fmt.Sprintf("lock:%s", name)
}

// AcquireLock acquires a distributed lock
func (c *Client) AcquireLock(ctx context.Context, name string, ttl time.Duration) (bool, error) {
	return c.rdb.SetNX(ctx, lockKey(name), "1", ttl).Result()
}

// ReleaseLock releases a distributed lock
func (c *Client) ReleaseLock(ctx context.Context, name string) error {
	return c.rdb.Del(ctx, lockKey(name)).Err()
}
