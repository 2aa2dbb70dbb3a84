package metrics

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/redis/go-redis/v9"

	"gitarg/pkg/logger"
)

// SessionCollector reports how many elicitation sessions are stored in Redis
type SessionCollector struct {
	log    *logger.Logger
	redis  *redis.Client
	prefix string

	storedSessions *prometheus.Desc
}

// NewSessionCollector creates a collector scanning keys under prefix
func NewSessionCollector(log *logger.Logger, client *redis.Client, prefix string) *SessionCollector {
	return &SessionCollector{
		log:    log,
		redis:  client,
		prefix: prefix,

		storedSessions: prometheus.NewDesc(
			"gitarg_stored_sessions",
			"Number of elicitation sessions stored in Redis",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector
func (c *SessionCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.storedSessions
}

// Collect implements prometheus.Collector
func (c *SessionCollector) Collect(ch chan<- prometheus.Metric) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var (
		cursor uint64
		count  int
	)
	for {
		keys, next, err := c.redis.Scan(ctx, cursor, c.prefix+"*", 100).Result()
		if err != nil {
			c.log.Errorw("Failed to scan elicitation sessions", "error", err)
			return
		}
		count += len(keys)
		if next == 0 {
			break
		}
		cursor = next
	}

	ch <- prometheus.MustNewConstMetric(c.storedSessions, prometheus.GaugeValue, float64(count))
}

// RegisterSessionCollector registers the collector with Prometheus
func RegisterSessionCollector(collector *SessionCollector) {
	prometheus.MustRegister(collector)
}
