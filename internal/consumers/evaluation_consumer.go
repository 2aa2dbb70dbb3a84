package consumers

import (
	"context"
	"encoding/json"
	"time"

	kafkago "github.com/segmentio/kafka-go"

	"gitarg/internal/adapters/kafka"
	"gitarg/internal/domain/factor"
	"gitarg/internal/domain/utility"
	"gitarg/internal/elicitation"
	decisionservice "gitarg/internal/services/decision"
	"gitarg/pkg/errors"
	"gitarg/pkg/logger"
)

// EvaluationRequest asks for a stored session to be evaluated
type EvaluationRequest struct {
	SessionID string   `json:"session_id"`
	Agent     string   `json:"agent,omitempty"`
	Options   []string `json:"options,omitempty"`
}

// MessageSource yields request messages until ctx is done
type MessageSource interface {
	ReadMessageWithShutdownCheck(ctx context.Context) (kafkago.Message, error)
	Close() error
}

type Evaluator interface {
	Evaluate(ctx context.Context, in decisionservice.Input) (*decisionservice.Result, error)
}

type DecisionPublisher interface {
	PublishDecision(ctx context.Context, sessionID string, result *decisionservice.Result) error
	PublishIncomplete(ctx context.Context, sessionID string, missing *utility.MissingInput) error
}

// EvaluationConsumer evaluates stored sessions on request and publishes the outcome
type EvaluationConsumer struct {
	source       MessageSource
	store        elicitation.Store
	reg          *factor.Registry
	evaluator    Evaluator
	publisher    DecisionPublisher
	defaultAgent string
	timeout      time.Duration
	log          *logger.Logger
}

// NewEvaluationConsumer creates a consumer for kafka.TopicEvaluationRequested
func NewEvaluationConsumer(
	source MessageSource,
	store elicitation.Store,
	reg *factor.Registry,
	evaluator Evaluator,
	publisher DecisionPublisher,
	defaultAgent string,
	log *logger.Logger,
) *EvaluationConsumer {
	return &EvaluationConsumer{
		source:       source,
		store:        store,
		reg:          reg,
		evaluator:    evaluator,
		publisher:    publisher,
		defaultAgent: defaultAgent,
		timeout:      10 * time.Second,
		log:          log.Component("evaluation_consumer"),
	}
}

// Start consumes requests until ctx is cancelled
func (c *EvaluationConsumer) Start(ctx context.Context) error {
	c.log.Infow("Starting evaluation consumer", "topic", kafka.TopicEvaluationRequested)

	defer func() {
		if err := c.source.Close(); err != nil {
			c.log.Errorw("Failed to close evaluation consumer", "error", err)
		}
	}()

	for {
		msg, err := c.source.ReadMessageWithShutdownCheck(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("Evaluation consumer stopping (context cancelled)")
				return nil
			}
			c.log.Debugw("Failed to read evaluation request", "error", err)
			continue
		}

		// let the current request finish even when shutdown starts
		processCtx, cancel := context.WithTimeout(context.Background(), c.timeout)
		if err := c.handleMessage(processCtx, msg); err != nil {
			c.log.Errorw("Failed to handle evaluation request",
				"key", string(msg.Key),
				"error", err,
			)
		}
		cancel()

		if ctx.Err() != nil {
			c.log.Info("Evaluation consumer stopping after processing current request")
			return nil
		}
	}
}

func (c *EvaluationConsumer) handleMessage(ctx context.Context, msg kafkago.Message) error {
	var req EvaluationRequest
	if err := json.Unmarshal(msg.Value, &req); err != nil {
		return errors.Wrap(errors.ErrInvalidInput, "decode evaluation request: "+err.Error())
	}
	if req.SessionID == "" {
		req.SessionID = string(msg.Key)
	}
	if req.SessionID == "" {
		return errors.Wrap(errors.ErrInvalidInput, "evaluation request without session id")
	}
	if req.Agent == "" {
		req.Agent = c.defaultAgent
	}

	session, err := c.store.Load(ctx, req.SessionID)
	if err != nil {
		return err
	}
	elicited, snap, err := session.Build(c.reg)
	if err != nil {
		return errors.Wrapf(err, "session %s", req.SessionID)
	}

	result, err := c.evaluator.Evaluate(ctx, decisionservice.Input{
		Elicited: elicited,
		Weights:  snap,
		Agent:    req.Agent,
		Options:  req.Options,
	})
	if errors.Is(err, errors.ErrIncompleteElicitation) {
		missing, nerr := utility.NextMissing(c.reg, elicited, snap)
		if nerr != nil {
			return nerr
		}
		if missing == nil {
			return err
		}
		return c.publisher.PublishIncomplete(ctx, req.SessionID, missing)
	}
	if err != nil {
		return errors.Wrapf(err, "evaluate session %s", req.SessionID)
	}

	c.log.Debugw("Session evaluated", "session_id", req.SessionID, "best_option", result.BestOption)
	return c.publisher.PublishDecision(ctx, req.SessionID, result)
}
