package config

import (
	"testing"
	"time"
)

func TestLoadMemoryBackendDefaults(t *testing.T) {
	t.Setenv("STORAGE_BACKEND", "memory")
	t.Setenv("CACHE_BACKEND", "memory")
	t.Setenv("SESSION_TTL_MINUTES", "")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Wallet.SessionTTL() != 30*time.Minute {
		t.Fatalf("expected 30m ttl, got %s", cfg.Wallet.SessionTTL())
	}
	if cfg.Wallet.ProfileFieldMaxLen != 200 {
		t.Fatalf("expected 200 char profile limit, got %d", cfg.Wallet.ProfileFieldMaxLen)
	}
	if cfg.Wallet.StaffCodePrefix != "ALHQR" {
		t.Fatalf("unexpected prefix %q", cfg.Wallet.StaffCodePrefix)
	}
}

func TestValidateRequiresDSNForPostgres(t *testing.T) {
	cfg := &Config{
		Storage: StorageConfig{Backend: StorageBackendPostgres},
		Cache:   CacheConfig{Backend: CacheBackendMemory},
		Wallet:  DefaultWalletConfig(),
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected error without POSTGRES_DSN")
	}
	cfg.Postgres.DSN = "postgres://localhost/wallet"
	if err := cfg.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestValidateRejectsUnknownBackends(t *testing.T) {
	cfg := &Config{
		Storage: StorageConfig{Backend: "firestore"},
		Cache:   CacheConfig{Backend: CacheBackendMemory},
		Wallet:  DefaultWalletConfig(),
	}
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown storage backend error")
	}
	cfg.Storage.Backend = StorageBackendMemory
	cfg.Cache.Backend = "memcached"
	if err := cfg.Validate(); err == nil {
		t.Fatalf("expected unknown cache backend error")
	}
}
