package pipeline

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino/compose"

	"github.com/suppbot/server/internal/db"
	"github.com/suppbot/server/internal/llm"
	"github.com/suppbot/server/internal/model"
	"github.com/suppbot/server/internal/session"
	logx "github.com/suppbot/server/pkg/logger"
)

// GraphConfig holds all dependencies needed to build the chat graph.
type GraphConfig struct {
	Models       *llm.ChatModels
	Store        session.Store
	Introspector *db.Introspector
	Executor     *db.Executor
	Prompt       model.PromptConfig

	// MaxHistoryTurns bounds how many stored turns feed prompt construction.
	MaxHistoryTurns int
}

// GraphBuilder handles the construction of the chat pipeline graph.
type GraphBuilder struct {
	config *GraphConfig
	graph  *compose.Graph[model.ChatInput, *model.ChatResult]
}

// BuildGraph constructs and compiles the pipeline graph:
//
//	START -> ContextLoader -> RouterModel -> RouterParser
//	  RouterParser branches: Fallback | ConversationalAssembler |
//	                         RephraseAssembler | StandalonePass
//	  conversational: -> ConversationalModel -> ConversationalWrapper
//	  data:           -> (rephrase?) -> SQLAssembler -> SQLModel -> SQLExecutor
//	  SQLExecutor branches: QueryErrorResponder | EmptyResponder | AnswerAssembler
//	  answered:       -> AnswerModel -> AnswerParser
//	  everything:     -> Finalizer -> END
func BuildGraph(ctx context.Context, config *GraphConfig) (compose.Runnable[model.ChatInput, *model.ChatResult], error) {
	if config == nil {
		return nil, fmt.Errorf("graph config is nil")
	}
	if config.Models == nil || config.Models.SQL == nil || config.Models.Answer == nil {
		return nil, fmt.Errorf("chat models are not properly initialized")
	}
	if config.Store == nil {
		return nil, fmt.Errorf("session store is nil")
	}
	if config.Introspector == nil || config.Executor == nil {
		return nil, fmt.Errorf("database components are not properly initialized")
	}

	builder := &GraphBuilder{
		config: config,
		graph: compose.NewGraph[model.ChatInput, *model.ChatResult](
			compose.WithGenLocalState(func(ctx context.Context) *model.PipelineState {
				return &model.PipelineState{}
			}),
		),
	}

	builder.addNodes()
	builder.addEdges()

	if err := builder.addBranches(); err != nil {
		return nil, err
	}

	return builder.compile(ctx)
}

// addNodes adds all processing nodes to the graph.
func (b *GraphBuilder) addNodes() {
	cfg := b.config

	b.graph.AddLambdaNode(NodeContextLoader,
		NewContextLoaderNode(cfg.Store, cfg.Prompt, cfg.MaxHistoryTurns),
		compose.WithStatePreHandler(NewContextLoaderPreHandler()),
	)

	b.graph.AddChatModelNode(NodeRouterModel, cfg.Models.Answer,
		compose.WithStatePreHandler(NewStagePreHandler()),
		compose.WithStatePostHandler(NewStagePostHandler("router", cfg.Models.AnswerModelName)),
	)

	b.graph.AddLambdaNode(NodeRouterParser,
		NewRouterParserNode(),
		compose.WithStatePostHandler(NewRouterParserPostHandler()),
	)

	b.graph.AddLambdaNode(NodeFallback, NewFallbackNode())

	b.graph.AddLambdaNode(NodeConversationalAssembler, NewConversationalAssemblerNode(cfg.Prompt))
	b.graph.AddChatModelNode(NodeConversationalModel, cfg.Models.Answer,
		compose.WithStatePreHandler(NewStagePreHandler()),
		compose.WithStatePostHandler(NewStagePostHandler("conversational", cfg.Models.AnswerModelName)),
	)
	b.graph.AddLambdaNode(NodeConversationalWrapper, NewConversationalWrapperNode())

	b.graph.AddLambdaNode(NodeRephraseAssembler, NewRephraseAssemblerNode(cfg.Prompt))
	b.graph.AddChatModelNode(NodeRephraserModel, cfg.Models.Answer,
		compose.WithStatePreHandler(NewStagePreHandler()),
		compose.WithStatePostHandler(NewStagePostHandler("rephrase", cfg.Models.AnswerModelName)),
	)
	b.graph.AddLambdaNode(NodeRephraseParser,
		NewRephraseParserNode(),
		compose.WithStatePostHandler(NewStandaloneQuestionPostHandler()),
	)
	b.graph.AddLambdaNode(NodeStandalonePass,
		NewStandalonePassNode(),
		compose.WithStatePostHandler(NewStandaloneQuestionPostHandler()),
	)

	b.graph.AddLambdaNode(NodeSQLAssembler, NewSQLAssemblerNode(cfg.Introspector))
	b.graph.AddChatModelNode(NodeSQLModel, cfg.Models.SQL,
		compose.WithStatePreHandler(NewStagePreHandler()),
		compose.WithStatePostHandler(NewStagePostHandler("sql_generation", cfg.Models.SQLModelName)),
	)
	b.graph.AddLambdaNode(NodeSQLExecutor, NewSQLExecutorNode(cfg.Executor, cfg.Store))

	b.graph.AddLambdaNode(NodeQueryErrorResponder, NewQueryErrorResponderNode())
	b.graph.AddLambdaNode(NodeEmptyResponder, NewEmptyResponderNode())

	b.graph.AddLambdaNode(NodeAnswerAssembler, NewAnswerAssemblerNode(cfg.Prompt))
	b.graph.AddChatModelNode(NodeAnswerModel, cfg.Models.Answer,
		compose.WithStatePreHandler(NewStagePreHandler()),
		compose.WithStatePostHandler(NewStagePostHandler("answer", cfg.Models.AnswerModelName)),
	)
	b.graph.AddLambdaNode(NodeAnswerParser, NewAnswerParserNode())

	b.graph.AddLambdaNode(NodeFinalizer, NewFinalizerNode(cfg.Store))
}

// addEdges creates the main flow connections between nodes.
func (b *GraphBuilder) addEdges() {
	edges := [][2]string{
		{compose.START, NodeContextLoader},
		{NodeContextLoader, NodeRouterModel},
		{NodeRouterModel, NodeRouterParser},

		{NodeConversationalAssembler, NodeConversationalModel},
		{NodeConversationalModel, NodeConversationalWrapper},
		{NodeConversationalWrapper, NodeFinalizer},

		{NodeRephraseAssembler, NodeRephraserModel},
		{NodeRephraserModel, NodeRephraseParser},
		{NodeRephraseParser, NodeSQLAssembler},
		{NodeStandalonePass, NodeSQLAssembler},

		{NodeSQLAssembler, NodeSQLModel},
		{NodeSQLModel, NodeSQLExecutor},

		{NodeQueryErrorResponder, NodeFinalizer},
		{NodeEmptyResponder, NodeFinalizer},

		{NodeAnswerAssembler, NodeAnswerModel},
		{NodeAnswerModel, NodeAnswerParser},
		{NodeAnswerParser, NodeFinalizer},

		{NodeFallback, NodeFinalizer},

		{NodeFinalizer, compose.END},
	}

	for _, edge := range edges {
		b.graph.AddEdge(edge[0], edge[1])
	}
}

// addBranches creates conditional routing branches.
func (b *GraphBuilder) addBranches() error {
	intentBranch := compose.NewGraphBranch(
		NewIntentCondition(),
		map[string]bool{
			NodeFallback:                true,
			NodeConversationalAssembler: true,
			NodeRephraseAssembler:       true,
			NodeStandalonePass:          true,
		},
	)
	if err := b.graph.AddBranch(NodeRouterParser, intentBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding intent branch")
		return fmt.Errorf("error adding intent branch: %w", err)
	}

	executionBranch := compose.NewGraphBranch(
		NewExecutionCondition(),
		map[string]bool{
			NodeQueryErrorResponder: true,
			NodeEmptyResponder:      true,
			NodeAnswerAssembler:     true,
		},
	)
	if err := b.graph.AddBranch(NodeSQLExecutor, executionBranch); err != nil {
		logx.Error().Err(err).Msg("Error adding execution branch")
		return fmt.Errorf("error adding execution branch: %w", err)
	}

	return nil
}

// compile finalizes and compiles the graph.
func (b *GraphBuilder) compile(ctx context.Context) (compose.Runnable[model.ChatInput, *model.ChatResult], error) {
	// The longest path visits 10 nodes; 20 leaves room for branch overhead.
	runnable, err := b.graph.Compile(ctx, compose.WithMaxRunSteps(20))
	if err != nil {
		logx.Error().Err(err).Msg("Error compiling graph")
		return nil, fmt.Errorf("error compiling graph: %w", err)
	}

	logx.Debug().Msg("Graph compiled successfully")
	return runnable, nil
}
