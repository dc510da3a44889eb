// Package fincoach orchestrates the reasoning stages of a financial assistant.
//
// fincoach provides:
//
//   - A Blackboard through which stages of one run exchange results
//   - A sequential Pipeline executor with Running, Completed and Aborted states
//   - A ReasoningStage that drives an LLM tool loop over a tools.Registry
//   - A Router that answers one user utterance per call
//
// # Quick Start
//
// Build a pipeline from stages and run it:
//
//	p := fincoach.NewPipeline("advisory", []fincoach.Stage{
//	    &fincoach.ReasoningStage{
//	        StageName:   "profile_gatherer",
//	        Instruction: "Summarize the user's finances.",
//	        Output:      "database_result",
//	        Tools:       profileTools,
//	        Model:       model,
//	    },
//	    &fincoach.ReasoningStage{
//	        StageName:   "final_adviser",
//	        Instruction: "Give investment advice.",
//	        InputKeys:   []string{"database_result"},
//	        Output:      "advice",
//	        Model:       model,
//	    },
//	})
//
//	res, err := p.Run(ctx, "How do I reach my goal?", nil)
//	if err != nil {
//	    var stageErr *fincoach.StageError
//	    errors.As(err, &stageErr) // which stage aborted the run
//	}
//	fmt.Println(res.Output)
//
// Each stage's output is committed to the blackboard under its output key
// before the next stage starts. The first failing stage aborts the run and
// later stages are never invoked.
//
// # Routing
//
// A Router wraps a single ReasoningStage whose toolset is the capability set.
// A pipeline becomes a capability with Pipeline.AsTool:
//
//	reg.Register(advisory.AsTool("adviser_agent", "Investment advice"))
//	router := fincoach.NewRouter(&fincoach.ReasoningStage{
//	    Instruction: policy,
//	    Tools:       reg,
//	    Model:       model,
//	})
//	answer, err := router.Handle(ctx, "I spent 40 on groceries")
//
// # Events
//
// Pass WithEventBus to receive pipeline.started, stage.started,
// stage.committed, pipeline.completed and pipeline.aborted events.
package fincoach
