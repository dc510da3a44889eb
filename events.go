package fincoach

import "time"

// Pipeline lifecycle topics published on the event bus.
const (
	TopicPipelineStarted   = "pipeline.started"
	TopicStageStarted      = "stage.started"
	TopicStageCommitted    = "stage.committed"
	TopicPipelineCompleted = "pipeline.completed"
	TopicPipelineAborted   = "pipeline.aborted"
)

// Event describes a pipeline state transition.
type Event struct {
	Topic     string    `json:"topic"`
	RunID     string    `json:"run_id"`
	Pipeline  string    `json:"pipeline"`
	Stage     string    `json:"stage,omitempty"`
	Index     int       `json:"index"`
	Key       string    `json:"key,omitempty"`
	Timestamp time.Time `json:"timestamp"`

	// For aborted events
	Error string `json:"error,omitempty"`
}

// Topics lists every topic a pipeline publishes, in lifecycle order.
func Topics() []string {
	return []string{
		TopicPipelineStarted,
		TopicStageStarted,
		TopicStageCommitted,
		TopicPipelineCompleted,
		TopicPipelineAborted,
	}
}
