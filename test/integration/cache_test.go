package integration

import (
	"context"
	"testing"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kitbuilder587/finanalyst/internal/cache"
	rediscache "github.com/kitbuilder587/finanalyst/internal/cache/redis"
)

func TestRedisCache_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test")
	}

	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
		},
		Started: true,
	})
	if err != nil {
		t.Fatalf("start redis: %v", err)
	}
	defer container.Terminate(ctx)

	endpoint, err := container.Endpoint(ctx, "redis")
	if err != nil {
		t.Fatalf("endpoint: %v", err)
	}

	client, err := rediscache.Connect(ctx, endpoint)
	if err != nil {
		t.Fatalf("Connect() error = %v", err)
	}
	c := rediscache.New(client, "test:")
	defer c.Close()

	type entry struct {
		Symbol string
		Price  float64
	}

	if err := cache.SetJSON(ctx, c, "market:AAPL:1y", entry{"AAPL", 191.2}, time.Minute); err != nil {
		t.Fatalf("SetJSON() error = %v", err)
	}

	var got entry
	ok, err := cache.GetJSON(ctx, c, "market:AAPL:1y", &got)
	if err != nil || !ok {
		t.Fatalf("GetJSON() ok = %v, err = %v", ok, err)
	}
	if got.Price != 191.2 {
		t.Errorf("Price = %v, want 191.2", got.Price)
	}

	if err := c.Set(ctx, "short", []byte("x"), 50*time.Millisecond); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	time.Sleep(150 * time.Millisecond)
	if _, ok, _ := c.Get(ctx, "short"); ok {
		t.Error("key should expire")
	}

	if err := c.Delete(ctx, "market:AAPL:1y"); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if _, ok, _ := c.Get(ctx, "market:AAPL:1y"); ok {
		t.Error("key should be deleted")
	}
}
