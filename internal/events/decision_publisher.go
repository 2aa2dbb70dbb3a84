package events

import (
	"context"
	"sort"
	"time"

	"github.com/google/uuid"

	"gitarg/internal/adapters/kafka"
	"gitarg/internal/domain/utility"
	"gitarg/internal/metrics"
	decisionservice "gitarg/internal/services/decision"
	"gitarg/pkg/errors"
	"gitarg/pkg/logger"
)

// Producer is the part of the kafka producer the publisher needs
type Producer interface {
	Publish(ctx context.Context, topic string, key string, event interface{}) error
}

const (
	TypeDecisionEvaluated  = "decision.evaluated"
	TypeDecisionIncomplete = "decision.incomplete"
)

// BaseEvent carries the fields shared by every event
type BaseEvent struct {
	ID        string    `json:"id"`
	Type      string    `json:"type"`
	Source    string    `json:"source"`
	SessionID string    `json:"session_id"`
	Timestamp time.Time `json:"timestamp"`
}

// AlternativeSummary is an evaluated option without per-agent detail
type AlternativeSummary struct {
	Option string  `json:"option"`
	Value  float64 `json:"value"`
	// TopFactors are the factors contributing most to Value, by absolute size
	TopFactors []FactorContribution `json:"top_factors,omitempty"`
}

type FactorContribution struct {
	Factor string  `json:"factor"`
	Value  float64 `json:"value"`
}

// DecisionEvaluatedEvent is published after a successful evaluation
type DecisionEvaluatedEvent struct {
	BaseEvent
	Decision     string               `json:"decision"`
	Agent        string               `json:"agent"`
	BestOption   string               `json:"best_option"`
	BestValue    float64              `json:"best_value"`
	Alternatives []AlternativeSummary `json:"alternatives"`
}

// DecisionIncompleteEvent names the next input a session still has to provide
type DecisionIncompleteEvent struct {
	BaseEvent
	Kind   string `json:"kind"`
	Factor string `json:"factor"`
	Agent  string `json:"agent,omitempty"`
	Item   string `json:"item,omitempty"`
}

// DecisionPublisher publishes evaluation results to Kafka
type DecisionPublisher struct {
	producer   Producer
	source     string
	topFactors int
	log        *logger.Logger
}

// NewDecisionPublisher creates a publisher; source names the emitting application
func NewDecisionPublisher(producer Producer, source string, log *logger.Logger) *DecisionPublisher {
	return &DecisionPublisher{
		producer:   producer,
		source:     source,
		topFactors: 3,
		log:        log.Component("decision_publisher"),
	}
}

// PublishDecision publishes the result of one evaluation keyed by session
func (p *DecisionPublisher) PublishDecision(ctx context.Context, sessionID string, result *decisionservice.Result) error {
	if result == nil {
		return errors.Wrap(errors.ErrInvalidInput, "nil result")
	}

	event := DecisionEvaluatedEvent{
		BaseEvent:    p.base(TypeDecisionEvaluated, sessionID),
		Decision:     result.Decision,
		Agent:        result.Agent,
		BestOption:   result.BestOption,
		BestValue:    result.BestValue,
		Alternatives: make([]AlternativeSummary, 0, len(result.Alternatives)),
	}
	for _, alt := range result.Alternatives {
		event.Alternatives = append(event.Alternatives, AlternativeSummary{
			Option:     alt.Option,
			Value:      alt.Value,
			TopFactors: topContributions(alt.Breakdown, p.topFactors),
		})
	}

	return p.publish(ctx, kafka.TopicDecisionEvaluated, sessionID, event)
}

// PublishIncomplete publishes the next missing input of a session
func (p *DecisionPublisher) PublishIncomplete(ctx context.Context, sessionID string, missing *utility.MissingInput) error {
	if missing == nil {
		return errors.Wrap(errors.ErrInvalidInput, "nothing missing")
	}

	event := DecisionIncompleteEvent{
		BaseEvent: p.base(TypeDecisionIncomplete, sessionID),
		Kind:      string(missing.Kind),
		Factor:    missing.Factor,
		Agent:     missing.Agent,
		Item:      missing.Item,
	}
	return p.publish(ctx, kafka.TopicDecisionIncomplete, sessionID, event)
}

func (p *DecisionPublisher) base(eventType, sessionID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.NewString(),
		Type:      eventType,
		Source:    p.source,
		SessionID: sessionID,
		Timestamp: time.Now().UTC(),
	}
}

func (p *DecisionPublisher) publish(ctx context.Context, topic, key string, event interface{}) error {
	err := p.producer.Publish(ctx, topic, key, event)
	metrics.RecordEventPublished(topic, err)
	if err != nil {
		p.log.Errorw("Failed to publish event", "topic", topic, "session_id", key, "error", err)
		return errors.Wrapf(err, "publish %s", topic)
	}

	p.log.Debugw("Event published", "topic", topic, "session_id", key)
	return nil
}

// topContributions returns up to n entries of breakdown with the largest absolute value.
// Ties are ordered by factor key.
func topContributions(breakdown map[string]float64, n int) []FactorContribution {
	out := make([]FactorContribution, 0, len(breakdown))
	for k, v := range breakdown {
		if v == 0 {
			continue
		}
		out = append(out, FactorContribution{Factor: k, Value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		ai, aj := abs(out[i].Value), abs(out[j].Value)
		if ai != aj {
			return ai > aj
		}
		return out[i].Factor < out[j].Factor
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
