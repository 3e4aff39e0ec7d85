package redis

import (
	"context"
	"testing"
	"time"

	"github.com/treumlabs/signalcast/pkg/config"
)

func TestOptionsFromConfigRequiresTarget(t *testing.T) {
	if _, err := optionsFromConfig(config.RedisConfig{}); err == nil {
		t.Fatal("expected error when neither URL nor address is set")
	}
}

func TestOptionsFromConfigParsesURL(t *testing.T) {
	cfg := config.RedisConfig{
		URL:         "redis://:secret@localhost:6380/3",
		PoolSize:    12,
		DialTimeout: 2 * time.Second,
	}
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("optionsFromConfig: %v", err)
	}
	if opts.Addr != "localhost:6380" {
		t.Fatalf("unexpected addr %q", opts.Addr)
	}
	if opts.DB != 3 {
		t.Fatalf("unexpected db %d", opts.DB)
	}
	if opts.PoolSize != 12 {
		t.Fatalf("expected pool size fallback applied, got %d", opts.PoolSize)
	}
}

func TestOptionsFromConfigAddressFallback(t *testing.T) {
	cfg := config.RedisConfig{Address: "redis.internal:6379", Password: "pw", DB: 1}
	opts, err := optionsFromConfig(cfg)
	if err != nil {
		t.Fatalf("optionsFromConfig: %v", err)
	}
	if opts.Addr != "redis.internal:6379" || opts.Password != "pw" || opts.DB != 1 {
		t.Fatalf("unexpected options %+v", opts)
	}
}

func TestUninitializedClientErrors(t *testing.T) {
	c := &Client{}
	if err := c.Ping(context.Background()); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
	if _, err := c.SetNX(context.Background(), "k", "v", time.Second); err == nil {
		t.Fatal("expected error from uninitialized client")
	}
}
