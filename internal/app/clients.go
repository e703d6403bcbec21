package app

import (
	"fmt"
	"strings"

	"github.com/yungbote/northwind-slim-backend/internal/clients/redis"
	"github.com/yungbote/northwind-slim-backend/internal/platform/logger"
)

type Clients struct {
	ChangeBus redis.ChangeBus
}

func wireClients(log *logger.Logger, cfg Config) (Clients, error) {
	log.Info("Wiring clients...")

	// Redis
	if strings.TrimSpace(cfg.RedisAddr) == "" {
		log.Info("REDIS_ADDR not set; change notices stay in process")
		return Clients{ChangeBus: redis.NewNoopChangeBus()}, nil
	}
	bus, err := redis.NewChangeBus(log, redis.ChangeBusConfig{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
		Channel:  cfg.RedisChannel,
	})
	if err != nil {
		return Clients{}, fmt.Errorf("init redis change bus: %w", err)
	}
	return Clients{ChangeBus: bus}, nil
}

func (c *Clients) Close() {
	if c == nil {
		return
	}
	if c.ChangeBus != nil {
		_ = c.ChangeBus.Close()
	}
}
