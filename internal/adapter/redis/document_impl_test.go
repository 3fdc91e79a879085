package redis_test

import (
	"context"
	"os"
	"testing"

	goredis "github.com/redis/go-redis/v9"
	"github.com/user/blocklist-service/internal/adapter/redis"
	"github.com/user/blocklist-service/internal/repository"
	"github.com/user/blocklist-service/internal/repository/repositorytest"
)

// Requires a disposable Redis database: the document keys are deleted before each subtest.
func TestDocumentRepo_Contract(t *testing.T) {
	addr := os.Getenv("TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()

	client := goredis.NewClient(&goredis.Options{Addr: addr})
	t.Cleanup(func() { client.Close() })
	if err := client.Ping(ctx).Err(); err != nil {
		t.Fatalf("ping: %v", err)
	}

	repo := redis.NewDocumentRepo(client)
	repositorytest.Run(t, func(t *testing.T) repository.DocumentRepository {
		if err := client.Del(ctx, "blocklist:document:detected", "blocklist:document:blocked").Err(); err != nil {
			t.Fatalf("del: %v", err)
		}
		return repo
	})
}
