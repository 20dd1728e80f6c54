//go:build integration

package ratelimit

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

// setupRedis starts a Redis container and returns a client
func setupRedis(t *testing.T) (*redis.Client, func()) {
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections"),
	}

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start Redis container: %v", err)
	}

	endpoint, err := redisContainer.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get Redis endpoint: %v", err)
	}

	client := redis.NewClient(&redis.Options{
		Addr: endpoint,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("Failed to connect to Redis: %v", err)
	}

	cleanup := func() {
		client.Close()
		redisContainer.Terminate(ctx)
	}

	return client, cleanup
}

func TestTracker_Integration_AcquireWithinBudget(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	tracker := NewTracker(redisClient, "harvest:test:budget", 5, time.Minute, logger)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		if err := tracker.Acquire(ctx); err != nil {
			t.Fatalf("Acquire() call %d error = %v", i, err)
		}
	}

	used, err := redisClient.Get(ctx, "harvest:test:budget").Int()
	if err != nil {
		t.Fatalf("Failed to read budget key: %v", err)
	}
	if used != 5 {
		t.Errorf("budget used = %d, want 5", used)
	}
}

func TestTracker_Integration_BlocksUntilWindowRollover(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	tracker := NewTracker(redisClient, "harvest:test:rollover", 2, 300*time.Millisecond, logger)
	ctx := context.Background()

	start := time.Now()
	for i := 0; i < 3; i++ {
		if err := tracker.Acquire(ctx); err != nil {
			t.Fatalf("Acquire() call %d error = %v", i, err)
		}
	}
	elapsed := time.Since(start)

	if elapsed < 200*time.Millisecond {
		t.Errorf("3 acquisitions against limit 2 took %v, expected a window wait", elapsed)
	}
}

func TestTracker_Integration_SharedAcrossInstances(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	a := NewTracker(redisClient, "harvest:test:shared", 4, time.Minute, logger)
	b := NewTracker(redisClient, "harvest:test:shared", 4, time.Minute, logger)
	ctx := context.Background()

	if err := a.Acquire(ctx); err != nil {
		t.Fatal(err)
	}
	if err := b.Acquire(ctx); err != nil {
		t.Fatal(err)
	}

	used, err := redisClient.Get(ctx, "harvest:test:shared").Int()
	if err != nil {
		t.Fatalf("Failed to read budget key: %v", err)
	}
	if used != 2 {
		t.Errorf("budget used = %d, want 2 (both instances share one budget)", used)
	}
}

func TestTracker_Integration_AcquireCancellable(t *testing.T) {
	redisClient, cleanup := setupRedis(t)
	defer cleanup()

	logger := zerolog.New(os.Stderr).Level(zerolog.Disabled)
	tracker := NewTracker(redisClient, "harvest:test:cancel", 1, time.Minute, logger)

	if err := tracker.Acquire(context.Background()); err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	err := tracker.Acquire(ctx)
	if err == nil {
		t.Fatal("Acquire() over budget with expiring context should fail")
	}
}
