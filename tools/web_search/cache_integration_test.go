package web_search_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/wayde1122/chat-box-code/tools/web_search"
	"github.com/wayde1122/chat-box-code/tools/web_search/models"
)

func TestRedisCacheRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	ctx := context.Background()

	redisC, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp"),
		},
		Started: true,
	})
	if err != nil {
		t.Skipf("redis container unavailable: %v", err)
	}
	defer func() { _ = redisC.Terminate(ctx) }()

	host, err := redisC.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := redisC.MappedPort(ctx, "6379")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	defer func() { _ = client.Close() }()

	cache := web_search.NewRedisCache(client, time.Minute)
	if _, ok, err := cache.Get(ctx, web_search.TavilyProvider, "go generics"); err != nil || ok {
		t.Fatalf("expected a miss, got ok=%v err=%v", ok, err)
	}

	want := []models.Result{{Title: "Generics", URL: "https://go.dev/doc/tutorial/generics", Snippet: "type parameters"}}
	if err := cache.Set(ctx, web_search.TavilyProvider, "go generics", want); err != nil {
		t.Fatalf("Set: %v", err)
	}
	got, ok, err := cache.Get(ctx, web_search.TavilyProvider, "Go Generics")
	if err != nil || !ok || len(got) != 1 || got[0] != want[0] {
		t.Fatalf("unexpected cached value %+v ok=%v err=%v", got, ok, err)
	}

	ttl, err := client.TTL(ctx, web_search.CacheKey(web_search.TavilyProvider, "go generics")).Result()
	if err != nil || ttl <= 0 || ttl > time.Minute {
		t.Fatalf("unexpected ttl %s (%v)", ttl, err)
	}
}
