package utils

import (
	"testing"
	"time"
)

func TestPostgresPoolConfigDefaults(t *testing.T) {
	got := PostgresPoolConfig{}.withDefaults()
	if got.MaxOpenConns != 25 || got.MaxIdleConns != 25 {
		t.Fatalf("unexpected pool sizes: %+v", got)
	}
	if got.PingTimeout != 5*time.Second {
		t.Fatalf("unexpected ping timeout: %v", got.PingTimeout)
	}
}

func TestPostgresPoolConfigKeepsExplicitValues(t *testing.T) {
	in := PostgresPoolConfig{MaxOpenConns: 3, PingTimeout: time.Second}
	got := in.withDefaults()
	if got.MaxOpenConns != 3 {
		t.Fatalf("expected explicit MaxOpenConns kept, got %d", got.MaxOpenConns)
	}
	if got.PingTimeout != time.Second {
		t.Fatalf("expected explicit PingTimeout kept, got %v", got.PingTimeout)
	}
}
