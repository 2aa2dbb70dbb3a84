package kafka

// Topic definitions for Kafka event streaming
const (
	// Evaluation requests, keyed by session id
	TopicEvaluationRequested = "decisions.requested"

	// Decision events
	TopicDecisionEvaluated  = "decisions.evaluated"
	TopicDecisionIncomplete = "decisions.incomplete"
)
