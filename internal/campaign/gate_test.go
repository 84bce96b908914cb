package campaign

import (
	"context"
	"testing"
	"time"
)

func TestGate_RequiresClientAndOrg(t *testing.T) {
	var g *Gate
	if _, err := g.Acquire(context.Background(), "org1"); err == nil {
		t.Fatalf("expected error for nil gate")
	}

	g = NewGate(nil, 2, time.Hour)
	if _, err := g.Acquire(context.Background(), "org1"); err == nil {
		t.Fatalf("expected error for nil client")
	}
	if err := g.Release(context.Background(), "org1"); err == nil {
		t.Fatalf("expected error for nil client")
	}
}

func TestGateKey(t *testing.T) {
	if got := gateKey("org1"); got != "org_campaigns:org1" {
		t.Fatalf("gateKey = %q", got)
	}
}

func TestNewGate_Defaults(t *testing.T) {
	g := NewGate(nil, 0, 0)
	if g.limit != 1 || g.ttl != time.Hour {
		t.Fatalf("defaults not applied: limit=%d ttl=%s", g.limit, g.ttl)
	}
}
