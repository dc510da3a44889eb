package fincoach

import (
	"context"
	"fmt"
	"time"

	"github.com/asaskevich/EventBus"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"github.com/everydev1618/fincoach/tools"
)

// Stage is one unit of work in a pipeline. Run reads what earlier stages
// committed from bb and returns the value to commit under OutputKey.
type Stage interface {
	Name() string
	OutputKey() string
	Run(ctx context.Context, input string, bb *Blackboard) (any, error)
}

// StageFunc adapts a function to the Stage interface.
type StageFunc struct {
	StageName string
	Key       string
	Fn        func(ctx context.Context, input string, bb *Blackboard) (any, error)
}

func (s StageFunc) Name() string      { return s.StageName }
func (s StageFunc) OutputKey() string { return s.Key }

func (s StageFunc) Run(ctx context.Context, input string, bb *Blackboard) (any, error) {
	return s.Fn(ctx, input, bb)
}

// StateKind enumerates pipeline states.
type StateKind int

const (
	Running StateKind = iota
	Completed
	Aborted
)

func (k StateKind) String() string {
	switch k {
	case Running:
		return "running"
	case Completed:
		return "completed"
	case Aborted:
		return "aborted"
	}
	return fmt.Sprintf("StateKind(%d)", int(k))
}

// State is the position of a pipeline run. Index is the stage being run
// (Running) or the stage that failed (Aborted).
type State struct {
	Kind  StateKind
	Index int
	Err   error
}

func (s State) String() string {
	switch s.Kind {
	case Running:
		return fmt.Sprintf("running(%d)", s.Index)
	case Aborted:
		return fmt.Sprintf("aborted(%d): %v", s.Index, s.Err)
	}
	return s.Kind.String()
}

// RunResult is the outcome of a pipeline run.
type RunResult struct {
	RunID      string
	State      State
	Blackboard *Blackboard

	// Output is the value committed by the last stage of a completed run.
	Output any

	// Err is the StageError of an aborted run.
	Err error
}

// Pipeline runs stages strictly in order over a shared blackboard.
type Pipeline struct {
	name   string
	stages []Stage
	bus    EventBus.Bus
	log    *log.Entry
	now    func() time.Time
}

// PipelineOption configures a Pipeline.
type PipelineOption func(*Pipeline)

// WithEventBus publishes lifecycle events on bus.
func WithEventBus(bus EventBus.Bus) PipelineOption {
	return func(p *Pipeline) {
		p.bus = bus
	}
}

// WithLogger sets the log entry used for transitions.
func WithLogger(l *log.Entry) PipelineOption {
	return func(p *Pipeline) {
		p.log = l
	}
}

// NewPipeline creates a pipeline named name over stages.
func NewPipeline(name string, stages []Stage, opts ...PipelineOption) *Pipeline {
	p := &Pipeline{
		name:   name,
		stages: stages,
		log:    log.NewEntry(log.StandardLogger()),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Run executes every stage in order. After stage i succeeds its output is
// committed under its output key before stage i+1 starts. The first failure
// aborts the run: later stages are not invoked and the returned error is a
// *StageError. A nil bb gets a fresh blackboard.
func (p *Pipeline) Run(ctx context.Context, input string, bb *Blackboard) (*RunResult, error) {
	if bb == nil {
		bb = NewBlackboard()
	}
	res := &RunResult{
		RunID:      uuid.New().String(),
		Blackboard: bb,
	}
	entry := p.log.WithFields(log.Fields{"run_id": res.RunID, "pipeline": p.name})

	if len(p.stages) == 0 {
		return p.abort(res, entry, 0, "", ErrEmptyPipeline)
	}

	p.publish(TopicPipelineStarted, Event{RunID: res.RunID})
	entry.WithField("stages", len(p.stages)).Debug("pipeline started")

	for i, stage := range p.stages {
		res.State = State{Kind: Running, Index: i}
		if err := ctx.Err(); err != nil {
			return p.abort(res, entry, i, stage.Name(), err)
		}

		p.publish(TopicStageStarted, Event{RunID: res.RunID, Stage: stage.Name(), Index: i})
		stageEntry := entry.WithFields(log.Fields{"stage": stage.Name(), "index": i})
		stageEntry.Debug("stage started")

		start := p.now()
		out, err := stage.Run(ctx, input, bb)
		if err != nil {
			return p.abort(res, entry, i, stage.Name(), err)
		}

		key := stage.OutputKey()
		if key != "" {
			bb.Set(key, out)
		}
		res.Output = out
		p.publish(TopicStageCommitted, Event{RunID: res.RunID, Stage: stage.Name(), Index: i, Key: key})
		stageEntry.WithFields(log.Fields{
			"key":         key,
			"duration_ms": p.now().Sub(start).Milliseconds(),
		}).Info("stage committed")
	}

	res.State = State{Kind: Completed, Index: len(p.stages)}
	p.publish(TopicPipelineCompleted, Event{RunID: res.RunID, Index: len(p.stages)})
	entry.Debug("pipeline completed")
	return res, nil
}

func (p *Pipeline) abort(res *RunResult, entry *log.Entry, index int, stage string, cause error) (*RunResult, error) {
	err := &StageError{Pipeline: p.name, Stage: stage, Index: index, Err: cause}
	res.State = State{Kind: Aborted, Index: index, Err: err}
	res.Err = err
	p.publish(TopicPipelineAborted, Event{RunID: res.RunID, Stage: stage, Index: index, Error: cause.Error()})
	entry.WithFields(log.Fields{"stage": stage, "index": index}).WithError(cause).Warn("pipeline aborted")
	return res, err
}

func (p *Pipeline) publish(topic string, ev Event) {
	if p.bus == nil {
		return
	}
	ev.Topic = topic
	ev.Pipeline = p.name
	ev.Timestamp = p.now()
	p.bus.Publish(topic, ev)
}

// AsTool exposes the pipeline as a tool taking a single "request" argument.
// Each invocation runs on a fresh blackboard and returns the last stage's
// output. An aborted run is returned as the handler error.
func (p *Pipeline) AsTool(name, description string) tools.Tool {
	return tools.Tool{
		Name:        name,
		Description: description,
		Params: map[string]tools.ParamDef{
			"request": {
				Type:        "string",
				Description: "What the user asked for, restated with any relevant details",
				Required:    true,
			},
		},
		Handler: func(ctx context.Context, args tools.Args) (tools.Result, error) {
			res, err := p.Run(ctx, args.String("request"), NewBlackboard())
			if err != nil {
				return tools.Result{}, err
			}
			return tools.Success(res.Output), nil
		},
	}
}
