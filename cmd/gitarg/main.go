package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"gitarg/internal/adapters/config"
	"gitarg/internal/adapters/errors/noop"
	"gitarg/internal/adapters/errors/sentry"
	"gitarg/internal/adapters/kafka"
	redisclient "gitarg/internal/adapters/redis"
	"gitarg/internal/consumers"
	"gitarg/internal/domain/brexit"
	"gitarg/internal/domain/factor"
	"gitarg/internal/domain/scenario"
	"gitarg/internal/domain/utility"
	"gitarg/internal/elicitation"
	"gitarg/internal/events"
	"gitarg/internal/metrics"
	"gitarg/internal/report"
	decisionservice "gitarg/internal/services/decision"
	"gitarg/pkg/errors"
	"gitarg/pkg/logger"
)

const version = "dev"

type options struct {
	input      string
	sessionID  string
	agent      string
	only       string
	save       bool
	publish    bool
	consume    bool
	topFactors int
}

func main() {
	var opts options
	flag.StringVar(&opts.input, "input", "", "session file (YAML or JSON)")
	flag.StringVar(&opts.sessionID, "session", "", "load the session with this id from redis")
	flag.StringVar(&opts.agent, "agent", "", "decision agent (default from DECISION_AGENT)")
	flag.StringVar(&opts.only, "options", "", "comma separated top-level options to evaluate")
	flag.BoolVar(&opts.save, "save", false, "store the loaded session in redis")
	flag.BoolVar(&opts.publish, "publish", false, "publish the result to kafka")
	flag.BoolVar(&opts.consume, "consume", false, "evaluate sessions requested on kafka until interrupted")
	flag.IntVar(&opts.topFactors, "top", 5, "factors listed per option")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "failed to load config:", err)
		os.Exit(2)
	}

	// Initialize logger
	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env); err != nil {
		fmt.Fprintln(os.Stderr, "failed to init logger:", err)
		os.Exit(2)
	}
	defer logger.Sync()

	log := logger.Get()
	tracker := initErrorTracker(cfg, log)
	logger.SetErrorTracker(tracker)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	code := run(ctx, cfg, opts, tracker, log)
	_ = tracker.Flush(context.Background())
	if code != 0 {
		os.Exit(code)
	}
}

func run(ctx context.Context, cfg *config.Config, opts options, tracker errors.Tracker, log *logger.Logger) int {
	reg, err := brexit.NewRegistry()
	if err != nil {
		log.Errorw("Invalid factor registry", "error", err)
		return 1
	}
	enumerator, err := decisionservice.NewEnumerator(reg, brexit.Model(), log,
		decisionservice.WithParallelism(cfg.Evaluation.Workers()))
	if err != nil {
		log.Errorw("Invalid decision model", "error", err)
		return 1
	}

	var rdb *redisclient.Client
	if cfg.Redis.Enabled() {
		if rdb, err = redisclient.NewClient(cfg.Redis); err != nil {
			log.Warnw("Redis unavailable, sessions will not be stored", "error", err)
		} else {
			defer rdb.Close()
		}
	}

	stopMetrics := serveMetrics(cfg, rdb, log)
	defer stopMetrics()

	if opts.consume {
		return consume(ctx, cfg, reg, enumerator, rdb, log)
	}

	session, err := loadSession(ctx, opts, rdb, cfg.Redis.KeyPrefix)
	if err != nil {
		log.Errorw("Failed to load session", "error", err)
		return 2
	}
	tracker.SetUser(ctx, session.ID)
	ctx = sentry.WithSession(ctx, session.ID)
	log = log.With("session_id", session.ID)

	elicited, snap, err := session.Build(reg)
	if err != nil {
		log.Errorw("Invalid session", "error", err)
		return 2
	}

	if opts.save {
		if err := saveSession(ctx, rdb, cfg, session, elicited, snap); err != nil {
			log.Errorw("Failed to store session", "error", err)
			return 1
		}
		log.Infow("Session stored", "prefix", cfg.Redis.KeyPrefix)
	}

	var publisher *events.DecisionPublisher
	if opts.publish {
		if !cfg.Kafka.Enabled() {
			log.Errorw("Publishing requested but KAFKA_BROKERS is empty")
			return 2
		}
		producer := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers, Async: cfg.Kafka.Async}, log)
		defer producer.Close()
		publisher = events.NewDecisionPublisher(producer, cfg.App.Name, log)
	}

	agent := opts.agent
	if agent == "" {
		agent = cfg.Evaluation.Agent
	}
	tracker.AddBreadcrumb(ctx, "evaluate", "decision", errors.LevelInfo, map[string]interface{}{"agent": agent})

	result, err := enumerator.Evaluate(ctx, decisionservice.Input{
		Elicited: elicited,
		Weights:  snap,
		Agent:    agent,
		Options:  splitList(opts.only),
	})
	if errors.Is(err, errors.ErrIncompleteElicitation) {
		return reportIncomplete(ctx, reg, elicited, snap, publisher, session.ID, log)
	}
	if err != nil {
		return 1
	}

	r, err := report.Build(reg, result, opts.topFactors)
	if err == nil {
		var out string
		if out, err = report.Render(r); err == nil {
			fmt.Println(out)
		}
	}
	if err != nil {
		log.Errorw("Failed to render report", "error", err)
		return 1
	}

	if publisher != nil {
		if err := publisher.PublishDecision(ctx, session.ID, result); err != nil {
			return 1
		}
	}

	if cfg.Metrics.Addr != "" {
		log.Infow("Serving metrics until interrupted", "addr", cfg.Metrics.Addr)
		<-ctx.Done()
	}
	return 0
}

// consume serves evaluation requests from kafka, publishing every outcome
func consume(ctx context.Context, cfg *config.Config, reg *factor.Registry, enumerator *decisionservice.Enumerator, rdb *redisclient.Client, log *logger.Logger) int {
	if rdb == nil || !cfg.Kafka.Enabled() {
		log.Errorw("-consume needs redis and kafka")
		return 2
	}

	producer := kafka.NewProducer(kafka.ProducerConfig{Brokers: cfg.Kafka.Brokers, Async: cfg.Kafka.Async}, log)
	defer producer.Close()

	source := kafka.NewConsumer(kafka.ConsumerConfig{
		Brokers: cfg.Kafka.Brokers,
		GroupID: cfg.Kafka.GroupID,
		Topic:   kafka.TopicEvaluationRequested,
	}, log)
	c := consumers.NewEvaluationConsumer(
		source,
		newStore(rdb, cfg.Redis.KeyPrefix),
		reg,
		enumerator,
		events.NewDecisionPublisher(producer, cfg.App.Name, log),
		cfg.Evaluation.Agent,
		log,
	)
	if err := c.Start(ctx); err != nil {
		log.Errorw("Evaluation consumer failed", "error", err)
		return 1
	}
	return 0
}

// initErrorTracker initializes error tracking (Sentry or no-op)
func initErrorTracker(cfg *config.Config, log *logger.Logger) errors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		log.Debug("Error tracking disabled")
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment, version)
	if err != nil {
		log.Warnf("Failed to initialize Sentry: %v", err)
		return noop.New()
	}

	log.Info("Error tracking initialized (Sentry)")
	return tracker
}

func loadSession(ctx context.Context, opts options, rdb *redisclient.Client, prefix string) (*elicitation.Session, error) {
	switch {
	case opts.input != "" && opts.sessionID != "":
		return nil, errors.Wrap(errors.ErrInvalidInput, "-input and -session are exclusive")
	case opts.input != "":
		return elicitation.LoadFile(opts.input)
	case opts.sessionID != "":
		if rdb == nil {
			return nil, errors.Wrap(errors.ErrUnavailable, "-session needs redis")
		}
		return newStore(rdb, prefix).Load(ctx, opts.sessionID)
	default:
		return nil, errors.Wrap(errors.ErrInvalidInput, "one of -input or -session is required")
	}
}

func saveSession(ctx context.Context, rdb *redisclient.Client, cfg *config.Config, s *elicitation.Session, elicited scenario.Scenario, snap *utility.Snapshot) error {
	if rdb == nil {
		return errors.Wrap(errors.ErrUnavailable, "-save needs redis")
	}
	s.Capture(elicited, snap)
	return newStore(rdb, cfg.Redis.KeyPrefix).Save(ctx, s)
}

func newStore(rdb *redisclient.Client, prefix string) *elicitation.RedisStore {
	return elicitation.NewRedisStore(rdb, prefix, 30*24*time.Hour)
}

// reportIncomplete prints how far elicitation got and what to enter next
func reportIncomplete(ctx context.Context, reg *factor.Registry, elicited scenario.Scenario, snap *utility.Snapshot, publisher *events.DecisionPublisher, sessionID string, log *logger.Logger) int {
	progress := utility.Progress(reg, elicited, snap)
	missing, err := utility.NextMissing(reg, elicited, snap)
	if err != nil || missing == nil {
		log.Errorw("Evaluation incomplete but nothing is missing", "error", err)
		return 1
	}

	fmt.Printf("Elicitation incomplete: %d of %d inputs entered\n", progress.Count, progress.Total)
	if missing.Kind == utility.MissingWeight {
		fmt.Printf("Next: weight %s for %s\n", missing.Item, missing.Agent)
	} else {
		fmt.Printf("Next: value of %s\n", missing.Factor)
	}

	if publisher != nil {
		if err := publisher.PublishIncomplete(ctx, sessionID, missing); err != nil {
			return 1
		}
	}
	return 3
}

func serveMetrics(cfg *config.Config, rdb *redisclient.Client, log *logger.Logger) func() {
	if cfg.Metrics.Addr == "" {
		return func() {}
	}

	metrics.Register()
	if rdb != nil {
		metrics.RegisterSessionCollector(metrics.NewSessionCollector(log, rdb.Client(), cfg.Redis.KeyPrefix))
	}

	mux := http.NewServeMux()
	mux.Handle("/metrics", metrics.Handler())
	srv := &http.Server{Addr: cfg.Metrics.Addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorw("Metrics server failed", "error", err)
		}
	}()

	return func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
