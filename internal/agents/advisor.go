package agents

import (
	"google.golang.org/adk/agent"
	"google.golang.org/adk/agent/llmagent"
	parallelagent "google.golang.org/adk/agent/workflowagents/parallelagent"
	sequentialagent "google.golang.org/adk/agent/workflowagents/sequentialagent"
	adkmodel "google.golang.org/adk/model"
	adktool "google.golang.org/adk/tool"

	"tradesync/internal/tools"
	"tradesync/internal/tools/shared"
	"tradesync/pkg/errors"
)

// Config selects the model serving the advisor and its research agents.
type Config struct {
	Provider  string
	Model     string
	MaxTokens int
}

// Factory builds the advisor agent tree.
type Factory struct {
	deps shared.Deps
	cfg  Config
}

// NewFactory creates an agent factory.
func NewFactory(deps shared.Deps, cfg Config) (*Factory, error) {
	if deps.Sessions == nil {
		return nil, errors.Wrap(errors.ErrInvalidInput, "session service is required")
	}
	if cfg.Model == "" {
		return nil, errors.Wrap(errors.ErrInvalidInput, "model is required")
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = 8192
	}
	return &Factory{deps: deps, cfg: cfg}, nil
}

// BuildAdvisor constructs the full pipeline: a parallel research fan-out
// followed by the advisor agent holding the trading tools. Each research
// branch writes its findings to its own output key, so the merged state
// update cannot clobber a sibling branch.
func (f *Factory) BuildAdvisor() (agent.Agent, error) {
	model := adkmodel.BasicModel{ID: f.cfg.Model, ProviderID: f.cfg.Provider, Tokens: f.cfg.MaxTokens}
	catalog := toolsByName(tools.Catalog(f.deps))

	memoryResearch, err := llmagent.New(llmagent.Config{
		Name:        "memory_research_agent",
		Description: "Recalls relevant facts from the user's past conversations",
		Model:       model,
		Tools:       pick(catalog, "search_memory"),
		Instruction: "Search the user's long-term memory for facts relevant to their latest question. Report only what you found.",
		OutputKey:   "memory_research",
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to build memory research agent")
	}

	ragResearch, err := llmagent.New(llmagent.Config{
		Name:        "rag_research_agent",
		Description: "Retrieves supporting material from the research knowledge base",
		Model:       model,
		Tools:       pick(catalog, "search_knowledge"),
		Instruction: "Search the knowledge base for material relevant to the user's latest question. Report only what you found, with sources.",
		OutputKey:   "rag_research",
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to build rag research agent")
	}

	research, err := parallelagent.New(parallelagent.Config{AgentConfig: agent.Config{
		Name:        "ParallelResearch",
		Description: "Concurrent memory and knowledge research",
		SubAgents:   []agent.Agent{memoryResearch, ragResearch},
	}})
	if err != nil {
		return nil, errors.Wrap(err, "failed to build research fan-out")
	}

	advisor, err := llmagent.New(llmagent.Config{
		Name:        "advisor_agent",
		Description: "Conversational trading advisor",
		Model:       model,
		Tools:       pick(catalog, "execute_trade", "confirm_trade", "cancel_trade"),
		Instruction: "You are a trading advisor. Use the research findings in state to answer. " +
			"Never execute a live trade without explicit user confirmation: execute_trade blocks " +
			"until the user confirms via confirm_trade.",
	})
	if err != nil {
		return nil, errors.Wrap(err, "failed to build advisor agent")
	}

	pipeline, err := sequentialagent.New(sequentialagent.Config{AgentConfig: agent.Config{
		Name:        "AdvisorPipeline",
		Description: "Research fan-out followed by the advisor",
		SubAgents:   []agent.Agent{research, advisor},
	}})
	if err != nil {
		return nil, errors.Wrap(err, "failed to build advisor pipeline")
	}

	return pipeline, nil
}

func toolsByName(all []adktool.Tool) map[string]adktool.Tool {
	byName := make(map[string]adktool.Tool, len(all))
	for _, t := range all {
		byName[t.Name()] = t
	}
	return byName
}

func pick(catalog map[string]adktool.Tool, names ...string) []adktool.Tool {
	picked := make([]adktool.Tool, 0, len(names))
	for _, name := range names {
		if t, ok := catalog[name]; ok {
			picked = append(picked, t)
		}
	}
	return picked
}
