package di

import (
	"context"
	"errors"
	"testing"

	"github.com/YoadTamar/aws-hw2/directory"
	"github.com/YoadTamar/aws-hw2/internal/config"
)

func TestNewContainerWithDefaults(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}
	defer container.Close()

	if container.Store() == nil {
		t.Error("Container should have a non-nil record store")
	}
	if container.Cache() == nil {
		t.Error("Container should have a cache store when caching is enabled")
	}
	if container.Service() == nil || !container.Service().CacheEnabled() {
		t.Error("Service should be wired with the cache path enabled")
	}
	if container.Metrics() == nil || container.Logger() == nil {
		t.Error("Container should provide metrics and a logger")
	}
	if got := container.Config().Store.Driver; got != config.DriverMemory {
		t.Errorf("Expected memory driver, got %q", got)
	}
	if err := container.Migrate(context.Background()); err != nil {
		t.Errorf("Migrate() on memory store failed: %v", err)
	}
}

func TestNewContainer_CacheDisabled(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = config.DriverMemory
	cfg.Cache.Enabled = false

	container, err := NewContainer(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	if container.Cache() != nil {
		t.Error("Cache should be nil when disabled")
	}
	if container.Service().CacheEnabled() {
		t.Error("Service cache path should be disabled")
	}
}

func TestNewContainer_InvalidConfig(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*config.Config)
	}{
		{name: "unknown driver", modify: func(c *config.Config) { c.Store.Driver = "mongo" }},
		{name: "sql without dsn", modify: func(c *config.Config) { c.Store.Driver = config.DriverSQLite }},
		{name: "invalid cache sizing", modify: func(c *config.Config) {
			c.Store.Driver = config.DriverMemory
			c.Cache.Capacity = 0
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Default()
			tt.modify(cfg)
			if _, err := NewContainer(context.Background(), cfg, nil); err == nil {
				t.Error("Expected NewContainer() to fail")
			}
		})
	}
}

func TestContainerSingletonBehavior(t *testing.T) {
	container, err := NewContainerWithDefaults()
	if err != nil {
		t.Fatalf("NewContainerWithDefaults() failed: %v", err)
	}

	if container.Service() != container.Service() {
		t.Error("Service() should return the same instance")
	}
	if container.Cache() != container.Cache() {
		t.Error("Cache() should return the same instance")
	}
}

func TestContainer_SQLiteStore(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = config.DriverSQLite
	cfg.Store.DSN = ":memory:"

	container, err := NewContainer(context.Background(), cfg, nil)
	if err != nil {
		t.Fatalf("NewContainer() failed: %v", err)
	}
	defer func() {
		if err := container.Close(); err != nil {
			t.Errorf("Close() failed: %v", err)
		}
	}()

	ctx := context.Background()
	if err := container.Migrate(ctx); err != nil {
		t.Fatalf("Migrate() failed: %v", err)
	}

	svc := container.Service()
	if err := svc.CreateRecord(ctx, directory.Record{Name: "a", Category: "thai", Region: "eu"}); err != nil {
		t.Fatalf("CreateRecord() failed: %v", err)
	}
	if _, err := svc.SubmitRating(ctx, "a", 4); err != nil {
		t.Fatalf("SubmitRating() failed: %v", err)
	}

	stored, err := container.Store().Get(ctx, "a")
	if err != nil {
		t.Fatalf("store Get() failed: %v", err)
	}
	if stored.Rating != 4 || stored.RatingCount != 1 {
		t.Errorf("Expected rating 4 with count 1, got %+v", stored)
	}

	if err := svc.CreateRecord(ctx, directory.Record{Name: "a", Category: "thai", Region: "eu"}); !directory.IsConflict(err) {
		t.Errorf("Expected conflict on duplicate create, got %v", err)
	}
	if _, err := container.Store().Get(ctx, "missing"); !errors.Is(err, directory.ErrRecordNotFound) {
		t.Errorf("Expected ErrRecordNotFound, got %v", err)
	}
}
