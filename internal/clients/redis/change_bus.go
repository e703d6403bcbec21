package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/yungbote/northwind-slim-backend/internal/domain/changes"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

const DefaultChangeChannel = "northwind.changes"

// ChangeBus fans committed change notices out to other processes.
type ChangeBus interface {
	Publish(ctx context.Context, n changes.Notice) error
	StartForwarder(ctx context.Context, onNotice func(n changes.Notice)) error
	// Client exposes the underlying connection for health probes; nil for
	// buses without one.
	Client() goredis.UniversalClient
	Close() error
}

type ChangeBusConfig struct {
	Addr     string
	Password string
	DB       int
	Channel  string
}

type changeBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
}

func NewChangeBus(log *logger.Logger, cfg ChangeBusConfig) (ChangeBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis addr")
	}
	ch := strings.TrimSpace(cfg.Channel)
	if ch == "" {
		ch = DefaultChangeChannel
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		Password:    cfg.Password,
		DB:          cfg.DB,
		DialTimeout: 5 * time.Second,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	return &changeBus{
		log:     log.With("service", "RedisChangeBus"),
		rdb:     rdb,
		channel: ch,
	}, nil
}

func (b *changeBus) Publish(ctx context.Context, n changes.Notice) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis change bus not initialized")
	}
	raw, err := EncodeNotice(n)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *changeBus) StartForwarder(ctx context.Context, onNotice func(n changes.Notice)) error {
	if b == nil || b.rdb == nil {
		return fmt.Errorf("redis change bus not initialized")
	}
	if onNotice == nil {
		return fmt.Errorf("onNotice callback required")
	}

	sub := b.rdb.Subscribe(ctx, b.channel)
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				n, err := DecodeNotice([]byte(m.Payload))
				if err != nil {
					b.log.Warn("bad redis change payload", "error", err)
					continue
				}
				onNotice(n)
			}
		}
	}()
	return nil
}

func (b *changeBus) Client() goredis.UniversalClient {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb
}

func (b *changeBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	return b.rdb.Close()
}

// EncodeNotice renders the wire payload published on the channel.
func EncodeNotice(n changes.Notice) ([]byte, error) {
	return json.Marshal(n)
}

func DecodeNotice(raw []byte) (changes.Notice, error) {
	var n changes.Notice
	if err := json.Unmarshal(raw, &n); err != nil {
		return changes.Notice{}, err
	}
	if len(n.Changes) == 0 {
		return changes.Notice{}, fmt.Errorf("notice %s has no changes", n.BatchID)
	}
	return n, nil
}

type noopChangeBus struct{}

// NewNoopChangeBus is used when no redis address is configured.
func NewNoopChangeBus() ChangeBus { return noopChangeBus{} }

func (noopChangeBus) Publish(context.Context, changes.Notice) error { return nil }
func (noopChangeBus) StartForwarder(context.Context, func(changes.Notice)) error {
	return nil
}
func (noopChangeBus) Client() goredis.UniversalClient { return nil }
func (noopChangeBus) Close() error                    { return nil }
