package advisor

import (
	"slices"

	"github.com/asaskevich/EventBus"
	log "github.com/sirupsen/logrus"

	fincoach "github.com/everydev1618/fincoach"
	"github.com/everydev1618/fincoach/llm"
	"github.com/everydev1618/fincoach/market"
	"github.com/everydev1618/fincoach/tools"
)

// Blackboard keys written by the advisory pipeline.
const (
	KeyProfile = "database_result"
	KeyMarket  = "market_data_result"
	KeyAdvice  = "advice"
)

// Deps are the collaborators the assistant is built from.
type Deps struct {
	Ledger Ledger
	Market market.Provider
	Model  llm.LLM

	// MaxIterations bounds each reasoning stage's tool loop.
	MaxIterations int

	// Bus receives pipeline lifecycle events. May be nil.
	Bus EventBus.Bus

	// Log is the base log entry. Defaults to the standard logger.
	Log *log.Entry
}

func (d Deps) pipelineOptions() []fincoach.PipelineOption {
	var opts []fincoach.PipelineOption
	if d.Bus != nil {
		opts = append(opts, fincoach.WithEventBus(d.Bus))
	}
	if d.Log != nil {
		opts = append(opts, fincoach.WithLogger(d.Log))
	}
	return opts
}

var ledgerToolNames = []string{
	ToolAddTransaction, ToolListTransactions, ToolTransactionsByType, ToolTransactionTotals,
	ToolAddGoal, ToolListGoals, ToolAddInvestment, ToolListInvestments,
}

var marketToolNames = []string{ToolQuote, ToolPriceHistory}

func (d Deps) logEntry() *log.Entry {
	if d.Log != nil {
		return d.Log
	}
	return log.NewEntry(log.StandardLogger())
}

// NewCatalog registers every tool the assistant knows about: the ledger
// tools, the profile tool and, when a market provider is set, the market
// tools. Stage toolsets are filtered from it. Each call is logged.
func NewCatalog(d Deps) (*tools.Registry, error) {
	all := append(LedgerTools(d.Ledger), ProfileTool(d.Ledger))
	if d.Market != nil {
		all = append(all, MarketTools(d.Market, nil)...)
	}

	reg := tools.NewRegistry()
	for _, t := range all {
		if err := reg.Register(t); err != nil {
			return nil, err
		}
	}
	reg.Use(tools.Logging(d.logEntry()))
	return reg, nil
}

// NewLedgerRegistry returns a registry holding the ledger tools only.
func NewLedgerRegistry(store Ledger) (*tools.Registry, error) {
	catalog, err := NewCatalog(Deps{Ledger: store})
	if err != nil {
		return nil, err
	}
	return catalog.Filter(ledgerToolNames...), nil
}

// NewAdvisoryPipeline builds profile_gatherer → market_data_agent →
// final_adviser. Each stage reads what the previous ones committed.
func NewAdvisoryPipeline(d Deps) (*fincoach.Pipeline, error) {
	catalog, err := NewCatalog(d)
	if err != nil {
		return nil, err
	}
	return newAdvisoryPipeline(d, catalog), nil
}

func newAdvisoryPipeline(d Deps, catalog *tools.Registry) *fincoach.Pipeline {
	profileTools := catalog.Filter(ToolGoalAndInvestment)
	marketTools := catalog.Filter(marketToolNames...)

	stages := []fincoach.Stage{
		&fincoach.ReasoningStage{
			StageName:     "profile_gatherer",
			Instruction:   profileInstruction,
			Output:        KeyProfile,
			Tools:         profileTools,
			Model:         d.Model,
			MaxIterations: d.MaxIterations,
		},
		&fincoach.ReasoningStage{
			StageName:     "market_data_agent",
			Instruction:   marketInstruction,
			InputKeys:     []string{KeyProfile},
			Output:        KeyMarket,
			Tools:         marketTools,
			Model:         d.Model,
			MaxIterations: d.MaxIterations,
		},
		&fincoach.ReasoningStage{
			StageName:     "final_adviser",
			Instruction:   adviserInstruction,
			InputKeys:     []string{KeyProfile, KeyMarket},
			Output:        KeyAdvice,
			Model:         d.Model,
			MaxIterations: d.MaxIterations,
		},
	}
	return fincoach.NewPipeline("advisory", stages, d.pipelineOptions()...)
}

// NewRouter builds the root router with the ledger tools, the market tools
// and the advisory pipeline in its capability set.
func NewRouter(d Deps) (*fincoach.Router, error) {
	catalog, err := NewCatalog(d)
	if err != nil {
		return nil, err
	}
	reg := catalog.Filter(slices.Concat(ledgerToolNames, marketToolNames)...)

	advisory := newAdvisoryPipeline(d, catalog)
	if err := reg.Register(advisory.AsTool(ToolAdviser,
		"Investment adviser. Gathers the user's financial profile and current market data, then recommends what to invest in.",
	)); err != nil {
		return nil, err
	}

	return fincoach.NewRouter(&fincoach.ReasoningStage{
		StageName:     "root",
		Instruction:   rootInstruction,
		Tools:         reg,
		Model:         d.Model,
		MaxIterations: d.MaxIterations,
	}, d.pipelineOptions()...), nil
}
