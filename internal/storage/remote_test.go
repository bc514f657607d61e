package storage

import (
	"context"
	"os"
	"testing"
	"time"
)

func TestRedisSubstrate(t *testing.T) {
	addr := os.Getenv("REELSHELF_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("REELSHELF_TEST_REDIS_ADDR not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv, err := OpenRedis(ctx, RedisOptions{Addr: addr, Prefix: "reelshelf-test:" + t.Name() + ":"})
	if err != nil {
		t.Fatalf("OpenRedis() error = %v", err)
	}
	defer kv.Close()

	exerciseSubstrate(t, kv)
}

func TestPostgresSubstrate(t *testing.T) {
	dsn := os.Getenv("REELSHELF_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("REELSHELF_TEST_POSTGRES_DSN not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	kv, err := OpenPostgres(ctx, dsn)
	if err != nil {
		t.Fatalf("OpenPostgres() error = %v", err)
	}
	defer kv.Close()

	exerciseSubstrate(t, kv)
}

func exerciseSubstrate(t *testing.T, kv Substrate) {
	t.Helper()
	ctx := context.Background()
	key := "catalog-" + time.Now().Format("150405.000000000")

	if _, ok, err := kv.Get(ctx, key); err != nil || ok {
		t.Fatalf("Get(missing) = ok %v, err %v", ok, err)
	}
	if err := kv.Put(ctx, key, []byte(`[]`)); err != nil {
		t.Fatalf("Put() error = %v", err)
	}

	store := newTestCatalogStore(t, kv)
	store.key = key
	store.Append(ctx, entry("a", "Alpha"))
	store.UpdateWatchTime(ctx, "a", 12)
	got := store.LoadAll(ctx)
	if len(got) != 1 || got[0].WatchTimeSeconds != 12 {
		t.Fatalf("LoadAll() = %+v", got)
	}
}
