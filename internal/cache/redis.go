package cache

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/redis/go-redis/v9"
)

// Cache keys. Active-shift lookups happen on every screen focus of the
// operator app, so they are the hottest read path.
const (
	stationsKey       = "prod:stations"
	activeShiftKeyFmt = "prod:active-shift:%d:%d" // lineID, shiftTypeID
)

var client *redis.Client

// Init initializes the Redis connection. The cache is optional: every
// accessor degrades to a miss when the client is nil.
func Init() error {
	// K8s sets REDIS_SERVICE_HOST and REDIS_SERVICE_PORT for services
	host := os.Getenv("REDIS_SERVICE_HOST")
	if host == "" {
		host = "redis" // fallback to service name
	}
	port := os.Getenv("REDIS_SERVICE_PORT")
	if port == "" {
		port = "6379"
	}

	client = redis.NewClient(&redis.Options{
		Addr:     host + ":" + port,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		// Close the failed client and set to nil for graceful degradation
		client.Close()
		client = nil
		return err
	}
	return nil
}

// GetCachedStations returns the cached station master data if available.
func GetCachedStations(ctx context.Context) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	data, err := client.Get(ctx, stationsKey).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// CacheStations stores station master data. Stations are immutable
// reference data; a long TTL just bounds staleness after redeploys.
func CacheStations(ctx context.Context, data []byte) {
	if client == nil {
		return
	}
	client.Set(ctx, stationsKey, data, 12*time.Hour)
}

// GetCachedActiveShift returns the cached active-shift response body.
func GetCachedActiveShift(ctx context.Context, lineID, shiftTypeID int) ([]byte, bool) {
	if client == nil {
		return nil, false
	}
	key := fmt.Sprintf(activeShiftKeyFmt, lineID, shiftTypeID)
	data, err := client.Get(ctx, key).Bytes()
	if err != nil {
		return nil, false
	}
	return data, true
}

// CacheActiveShift stores an active-shift response for a short window.
func CacheActiveShift(ctx context.Context, lineID, shiftTypeID int, data []byte) {
	if client == nil {
		return
	}
	key := fmt.Sprintf(activeShiftKeyFmt, lineID, shiftTypeID)
	client.Set(ctx, key, data, 30*time.Second)
}

// InvalidateActiveShift drops cached active-shift state after a start,
// close, or auto-close so operators never see a stale open shift.
func InvalidateActiveShift(ctx context.Context, lineID, shiftTypeID int) {
	if client == nil {
		return
	}
	key := fmt.Sprintf(activeShiftKeyFmt, lineID, shiftTypeID)
	client.Del(ctx, key)
}
