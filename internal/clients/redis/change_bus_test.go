package redis

import (
	"context"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/northwind-slim-backend/internal/domain/changes"
	"github.com/yungbote/northwind-slim-backend/internal/domain/tracking"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

func sampleNotice() changes.Notice {
	return changes.Notice{
		BatchID:     uuid.New(),
		CommittedAt: time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
		Changes: []changes.NoticeChange{{
			EntityType:       "Product",
			EntityKey:        "11",
			EntityIdentifier: uuid.New(),
			State:            tracking.Modified,
			Properties:       []string{"UnitPrice"},
		}},
	}
}

func TestNoticePayloadRoundTrip(t *testing.T) {
	in := sampleNotice()
	raw, err := EncodeNotice(in)
	if err != nil {
		t.Fatalf("EncodeNotice: %v", err)
	}
	if !strings.Contains(string(raw), `"state":2`) {
		t.Fatalf("expected numeric state in payload: %s", raw)
	}
	out, err := DecodeNotice(raw)
	if err != nil {
		t.Fatalf("DecodeNotice: %v", err)
	}
	if out.BatchID != in.BatchID || len(out.Changes) != 1 || out.Changes[0].Properties[0] != "UnitPrice" {
		t.Fatalf("unexpected notice: %+v", out)
	}
}

func TestDecodeNoticeRejectsEmpty(t *testing.T) {
	if _, err := DecodeNotice([]byte(`{"batchId":"` + uuid.NewString() + `","changes":[]}`)); err == nil {
		t.Fatalf("expected error for empty notice")
	}
	if _, err := DecodeNotice([]byte(`not json`)); err == nil {
		t.Fatalf("expected error for malformed payload")
	}
}

func TestNewChangeBusRequiresAddr(t *testing.T) {
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	if _, err := NewChangeBus(log, ChangeBusConfig{}); err == nil {
		t.Fatalf("expected missing addr error")
	}
	if _, err := NewChangeBus(nil, ChangeBusConfig{Addr: "localhost:6379"}); err == nil {
		t.Fatalf("expected missing logger error")
	}
}

func TestNoopChangeBus(t *testing.T) {
	bus := NewNoopChangeBus()
	if err := bus.Publish(context.Background(), sampleNotice()); err != nil {
		t.Fatalf("noop publish: %v", err)
	}
	if bus.Client() != nil {
		t.Fatalf("noop bus has no client")
	}
	if err := bus.Close(); err != nil {
		t.Fatalf("noop close: %v", err)
	}
}

// Runs against a live server only when REDIS_ADDR is set.
func TestChangeBusPublishSubscribe(t *testing.T) {
	addr := strings.TrimSpace(os.Getenv("REDIS_ADDR"))
	if addr == "" {
		t.Skip("REDIS_ADDR not set")
	}
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	bus, err := NewChangeBus(log, ChangeBusConfig{Addr: addr, Channel: "northwind.changes.test." + uuid.NewString()})
	if err != nil {
		t.Fatalf("NewChangeBus: %v", err)
	}
	defer bus.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	got := make(chan changes.Notice, 1)
	if err := bus.StartForwarder(ctx, func(n changes.Notice) { got <- n }); err != nil {
		t.Fatalf("StartForwarder: %v", err)
	}
	want := sampleNotice()
	if err := bus.Publish(ctx, want); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	select {
	case n := <-got:
		if n.BatchID != want.BatchID {
			t.Fatalf("batch = %s, want %s", n.BatchID, want.BatchID)
		}
	case <-ctx.Done():
		t.Fatalf("no notice received")
	}
}
