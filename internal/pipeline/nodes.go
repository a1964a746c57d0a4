package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/google/uuid"

	"github.com/suppbot/server/internal/db"
	"github.com/suppbot/server/internal/model"
	"github.com/suppbot/server/internal/observability"
	"github.com/suppbot/server/internal/pipeline/prompts"
	"github.com/suppbot/server/internal/session"
	logx "github.com/suppbot/server/pkg/logger"
)

// Node keys.
const (
	NodeContextLoader           = "ContextLoader"
	NodeRouterModel             = "RouterModel"
	NodeRouterParser            = "RouterParser"
	NodeFallback                = "Fallback"
	NodeConversationalAssembler = "ConversationalAssembler"
	NodeConversationalModel     = "ConversationalModel"
	NodeConversationalWrapper   = "ConversationalWrapper"
	NodeRephraseAssembler       = "RephraseAssembler"
	NodeRephraserModel          = "RephraserModel"
	NodeRephraseParser          = "RephraseParser"
	NodeStandalonePass          = "StandalonePass"
	NodeSQLAssembler            = "SQLAssembler"
	NodeSQLModel                = "SQLModel"
	NodeSQLExecutor             = "SQLExecutor"
	NodeQueryErrorResponder     = "QueryErrorResponder"
	NodeEmptyResponder          = "EmptyResponder"
	NodeAnswerAssembler         = "AnswerAssembler"
	NodeAnswerModel             = "AnswerModel"
	NodeAnswerParser            = "AnswerParser"
	NodeFinalizer               = "Finalizer"
)

// NewContextLoaderPreHandler initializes per-turn state. A missing session id
// gets a fresh UUID so the caller can continue the conversation.
func NewContextLoaderPreHandler() func(context.Context, model.ChatInput, *model.PipelineState) (model.ChatInput, error) {
	return func(ctx context.Context, in model.ChatInput, s *model.PipelineState) (model.ChatInput, error) {
		if strings.TrimSpace(in.SessionID) == "" {
			in.SessionID = uuid.NewString()
			logx.Debug().Str("session_id", in.SessionID).Msg("created new session id")
		}
		s.SessionID = in.SessionID
		s.Question = strings.TrimSpace(in.Question)
		s.StartedAt = time.Now()
		return in, nil
	}
}

// NewContextLoaderNode loads the session snapshot into state and builds the
// router messages.
func NewContextLoaderNode(store session.Store, promptCfg model.PromptConfig, maxTurns int) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, input model.ChatInput) ([]*schema.Message, error) {
		snapshot, err := store.GetOrCreate(ctx, input.SessionID)
		if err != nil {
			return nil, fmt.Errorf("load session %s: %w", input.SessionID, err)
		}

		history := session.TrimTurns(snapshot.Turns, maxTurns)

		var question string
		err = compose.ProcessState(ctx, func(_ context.Context, s *model.PipelineState) error {
			s.History = history
			s.LastSQL = snapshot.LastSQL
			s.HasSQL = snapshot.HasSQL
			question = s.Question
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}
		if question == "" {
			return nil, fmt.Errorf("empty question")
		}

		systemPrompt, err := prompts.RenderRouter(ctx, promptCfg, history, question)
		if err != nil {
			return nil, fmt.Errorf("render router prompt: %w", err)
		}

		return []*schema.Message{
			schema.SystemMessage(systemPrompt),
			schema.UserMessage(question),
		}, nil
	})
}

// NewRouterParserNode interprets the router model's reply as an intent.
func NewRouterParserNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, resp *schema.Message) (string, error) {
		intent := ParseIntent(resp.Content)
		logx.Debug().Str("raw", strings.TrimSpace(resp.Content)).Str("intent", string(intent)).Msg("routed intent")
		return string(intent), nil
	})
}

// NewRouterParserPostHandler records the routed intent in state and metrics.
func NewRouterParserPostHandler() func(context.Context, string, *model.PipelineState) (string, error) {
	return func(ctx context.Context, out string, s *model.PipelineState) (string, error) {
		s.Intent = out
		observability.ObserveChatRequest(out)
		return out, nil
	}
}

// NewIntentCondition routes the classified intent to the next stage. Data
// questions go through the rephraser only when the session carries context to
// resolve against; a first question in a fresh session skips straight to SQL
// generation.
func NewIntentCondition() func(context.Context, string) (string, error) {
	return func(ctx context.Context, intent string) (string, error) {
		switch Intent(intent) {
		case IntentConversational:
			return NodeConversationalAssembler, nil
		case IntentDataQuery:
			var hasContext bool
			err := compose.ProcessState(ctx, func(_ context.Context, s *model.PipelineState) error {
				hasContext = len(s.History) > 0 || s.HasSQL
				return nil
			})
			if err != nil {
				return "", fmt.Errorf("failed to access state: %w", err)
			}
			if hasContext {
				return NodeRephraseAssembler, nil
			}
			return NodeStandalonePass, nil
		default:
			return NodeFallback, nil
		}
	}
}

// NewFallbackNode answers unrecognized messages with the fixed fallback text.
func NewFallbackNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ string) (*model.ChatResult, error) {
		return model.TextResult(model.FallbackMessage), nil
	})
}

// NewConversationalAssemblerNode builds the small-talk messages.
func NewConversationalAssemblerNode(promptCfg model.PromptConfig) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ string) ([]*schema.Message, error) {
		var history []session.Turn
		var question string
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.PipelineState) error {
			history = s.History
			question = s.Question
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		systemPrompt, err := prompts.RenderConversational(ctx, promptCfg, history, question)
		if err != nil {
			return nil, fmt.Errorf("render conversational prompt: %w", err)
		}
		return []*schema.Message{
			schema.SystemMessage(systemPrompt),
			schema.UserMessage(question),
		}, nil
	})
}

// NewConversationalWrapperNode lifts the model's free-text reply into the
// response envelope.
func NewConversationalWrapperNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, resp *schema.Message) (*model.ChatResult, error) {
		content := strings.TrimSpace(resp.Content)
		if content == "" {
			content = model.FallbackMessage
		}
		return model.TextResult(content), nil
	})
}

// NewRephraseAssemblerNode builds the context-resolution messages.
func NewRephraseAssemblerNode(promptCfg model.PromptConfig) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ string) ([]*schema.Message, error) {
		var history []session.Turn
		var lastSQL, question string
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.PipelineState) error {
			history = s.History
			lastSQL = s.LastSQL
			question = s.Question
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		systemPrompt, err := prompts.RenderRephrase(ctx, promptCfg, history, lastSQL, question)
		if err != nil {
			return nil, fmt.Errorf("render rephrase prompt: %w", err)
		}
		return []*schema.Message{
			schema.SystemMessage(systemPrompt),
			schema.UserMessage(question),
		}, nil
	})
}

// NewRephraseParserNode extracts the standalone question, falling back to the
// user's original wording when the model returns nothing usable.
func NewRephraseParserNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, resp *schema.Message) (string, error) {
		standalone := strings.TrimSpace(resp.Content)
		if standalone != "" {
			return standalone, nil
		}

		var question string
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.PipelineState) error {
			question = s.Question
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("failed to access state: %w", err)
		}
		logx.Warn().Msg("rephraser returned empty output, using original question")
		return question, nil
	})
}

// NewStandalonePassNode forwards the original question unchanged. Fresh
// sessions have no context to resolve, so rewriting would only add a model
// round-trip.
func NewStandalonePassNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ string) (string, error) {
		var question string
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.PipelineState) error {
			question = s.Question
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("failed to access state: %w", err)
		}
		return question, nil
	})
}

// NewStandaloneQuestionPostHandler records the resolved question. Attached to
// both paths that feed the SQL assembler.
func NewStandaloneQuestionPostHandler() func(context.Context, string, *model.PipelineState) (string, error) {
	return func(ctx context.Context, out string, s *model.PipelineState) (string, error) {
		s.Standalone = out
		return out, nil
	}
}

// NewSQLAssemblerNode builds the SQL generation messages from the live schema
// and the few-shot corpus.
func NewSQLAssemblerNode(introspector *db.Introspector) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, standalone string) ([]*schema.Message, error) {
		schemaText := introspector.SchemaText(ctx)

		systemPrompt, err := prompts.RenderSQL(ctx, schemaText, standalone)
		if err != nil {
			return nil, fmt.Errorf("render sql prompt: %w", err)
		}
		return []*schema.Message{
			schema.SystemMessage(systemPrompt),
			schema.UserMessage(standalone),
		}, nil
	})
}

// NewSQLExecutorNode cleans the generated statement, runs it, and remembers
// it as the session's last SQL when execution did not fail.
func NewSQLExecutorNode(executor *db.Executor, store session.Store) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, resp *schema.Message) (string, error) {
		query := sanitizeSQL(resp.Content)
		if query == "" {
			return fmt.Sprintf("%s the model produced no query.", db.ErrorPrefix), nil
		}

		var sessionID string
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.PipelineState) error {
			s.GeneratedSQL = query
			sessionID = s.SessionID
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("failed to access state: %w", err)
		}

		start := time.Now()
		result := executor.Execute(ctx, query)
		observability.ObserveStage("execution", time.Since(start))

		if !db.IsErrorResult(result) {
			if err := store.SetLastSQL(ctx, sessionID, query); err != nil {
				logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to store last SQL")
			}
		}

		err = compose.ProcessState(ctx, func(_ context.Context, s *model.PipelineState) error {
			s.QueryResult = result
			return nil
		})
		if err != nil {
			return "", fmt.Errorf("failed to access state: %w", err)
		}
		return result, nil
	})
}

// NewExecutionCondition routes on the executor's sentinel outcomes.
func NewExecutionCondition() func(context.Context, string) (string, error) {
	return func(ctx context.Context, result string) (string, error) {
		switch {
		case db.IsErrorResult(result):
			return NodeQueryErrorResponder, nil
		case db.IsEmptyResult(result):
			return NodeEmptyResponder, nil
		default:
			return NodeAnswerAssembler, nil
		}
	}
}

// NewQueryErrorResponderNode answers failed executions with the fixed
// message. The executor already logged the cause; the user never sees it.
func NewQueryErrorResponderNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ string) (*model.ChatResult, error) {
		return model.TextResult(model.QueryFailedMessage), nil
	})
}

// NewEmptyResponderNode answers structurally valid queries that matched no rows.
func NewEmptyResponderNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, _ string) (*model.ChatResult, error) {
		return model.TextResult(model.NoDataMessage), nil
	})
}

// NewAnswerAssemblerNode builds the formatting messages from the original
// question, the executed SQL and the serialized result.
func NewAnswerAssemblerNode(promptCfg model.PromptConfig) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, result string) ([]*schema.Message, error) {
		var question, sql string
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.PipelineState) error {
			question = s.Question
			sql = s.GeneratedSQL
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		systemPrompt, err := prompts.RenderAnswer(ctx, promptCfg, question, sql, result)
		if err != nil {
			return nil, fmt.Errorf("render answer prompt: %w", err)
		}
		return []*schema.Message{
			schema.SystemMessage(systemPrompt),
			schema.UserMessage(question),
		}, nil
	})
}

// NewAnswerParserNode parses the formatter's JSON reply into the response
// envelope. A reply that is not valid JSON, or that violates the shape
// invariant, is wrapped as plain text rather than retried: the raw content is
// usually a perfectly readable answer that merely ignored the format
// instructions.
func NewAnswerParserNode() *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, resp *schema.Message) (*model.ChatResult, error) {
		raw := strings.TrimSpace(resp.Content)

		var result model.ChatResult
		cleaned := stripJSONFences(raw)
		if err := json.Unmarshal([]byte(cleaned), &result); err != nil {
			return formatterFallback(raw, fmt.Errorf("unmarshal formatter output: %w", err)), nil
		}
		if err := result.Validate(); err != nil {
			return formatterFallback(raw, err), nil
		}
		return &result, nil
	})
}

func formatterFallback(raw string, cause error) *model.ChatResult {
	observability.ObserveFormatterFallback()
	logx.Warn().Err(cause).Msg("formatter output failed validation, wrapping as text")
	if raw == "" {
		return model.TextResult(model.SystemApology)
	}
	return model.TextResult(raw)
}

// NewFinalizerNode stamps response metadata and persists the turn.
func NewFinalizerNode(store session.Store) *compose.Lambda {
	return compose.InvokableLambda(func(ctx context.Context, result *model.ChatResult) (*model.ChatResult, error) {
		var sessionID, question, generatedSQL string
		var startedAt time.Time
		err := compose.ProcessState(ctx, func(_ context.Context, s *model.PipelineState) error {
			sessionID = s.SessionID
			question = s.Question
			generatedSQL = s.GeneratedSQL
			startedAt = s.StartedAt
			return nil
		})
		if err != nil {
			return nil, fmt.Errorf("failed to access state: %w", err)
		}

		result.SessionID = sessionID
		if generatedSQL != "" {
			result.GeneratedSQL = generatedSQL
		} else {
			result.GeneratedSQL = model.NoQuerySQL
		}
		result.ResponseTime = fmt.Sprintf("%.2f", time.Since(startedAt).Seconds())

		// History failures degrade context for future turns but never fail
		// the current one.
		if err := store.RecordTurn(ctx, sessionID, session.RoleUser, question); err != nil {
			logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to record user turn")
		}
		if err := store.RecordTurn(ctx, sessionID, session.RoleAssistant, result.HistorySummary()); err != nil {
			logx.Error().Err(err).Str("session_id", sessionID).Msg("failed to record assistant turn")
		}

		return result, nil
	})
}

// NewStagePreHandler marks the start of a chat-model stage.
func NewStagePreHandler() func(context.Context, []*schema.Message, *model.PipelineState) ([]*schema.Message, error) {
	return func(ctx context.Context, in []*schema.Message, s *model.PipelineState) ([]*schema.Message, error) {
		s.StageStartedAt = time.Now()
		return in, nil
	}
}

// NewStagePostHandler records stage latency and, when enabled, usage cost.
func NewStagePostHandler(stage, modelName string) func(context.Context, *schema.Message, *model.PipelineState) (*schema.Message, error) {
	return func(ctx context.Context, out *schema.Message, s *model.PipelineState) (*schema.Message, error) {
		observability.ObserveStage(stage, time.Since(s.StageStartedAt))

		if model.CostEnabled() && out != nil && out.ResponseMeta != nil && out.ResponseMeta.Usage != nil {
			pricing := model.ResolvePricing(modelName)
			inC, outC, totalC := model.ComputeCost(out.ResponseMeta.Usage, pricing)
			s.TotalCostUSD += totalC
			logx.Debug().
				Str("session_id", s.SessionID).
				Str("stage", stage).
				Str("model", modelName).
				Int("prompt_tokens", out.ResponseMeta.Usage.PromptTokens).
				Int("completion_tokens", out.ResponseMeta.Usage.CompletionTokens).
				Float64("input_cost_usd", inC).
				Float64("output_cost_usd", outC).
				Float64("total_cost_usd", s.TotalCostUSD).
				Msg("LLM usage")
		}
		return out, nil
	}
}

// sanitizeSQL strips the markdown fences models wrap around generated SQL.
func sanitizeSQL(raw string) string {
	s := strings.TrimSpace(raw)
	for _, prefix := range []string{"```sql", "```SQL", "```"} {
		if strings.HasPrefix(s, prefix) {
			s = s[len(prefix):]
			break
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}

// stripJSONFences removes a markdown code fence around a JSON document.
func stripJSONFences(raw string) string {
	s := strings.TrimSpace(raw)
	for _, prefix := range []string{"```json", "```JSON", "```"} {
		if strings.HasPrefix(s, prefix) {
			s = s[len(prefix):]
			break
		}
	}
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "```")
	return strings.TrimSpace(s)
}
