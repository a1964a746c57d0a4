// Package observers wires Eino callbacks that trace prompt rendering and
// model calls for every pipeline invocation.
package observers

import (
	"context"
	"strings"

	einocb "github.com/cloudwego/eino/callbacks"
	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"
	callbackHelper "github.com/cloudwego/eino/utils/callbacks"

	logx "github.com/suppbot/server/pkg/logger"
)

// NewAllCallbacks aggregates the prompt and model observers into one handler.
func NewAllCallbacks() einocb.Handler {
	return callbackHelper.NewHandlerHelper().
		ChatModel(newModelHandler()).
		Prompt(newPromptHandler()).
		Handler()
}

// newModelHandler logs one line per model call with the latest user content
// and the assistant reply, truncated to keep log volume sane.
func newModelHandler() *callbackHelper.ModelCallbackHandler {
	return &callbackHelper.ModelCallbackHandler{
		OnStart: func(ctx context.Context, info *einocb.RunInfo, input *model.CallbackInput) context.Context {
			event := logx.Debug().Str("node", info.Name)
			if input != nil && len(input.Messages) > 0 {
				event = event.
					Int("messages", len(input.Messages)).
					Str("user", truncate(lastUserContent(input.Messages), 200))
			}
			event.Msg("model call start")
			return ctx
		},
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *model.CallbackOutput) context.Context {
			event := logx.Debug().Str("node", info.Name)
			if output != nil && output.Message != nil {
				event = event.Str("assistant", truncate(strings.TrimSpace(output.Message.Content), 200))
			}
			event.Msg("model call end")
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().Str("node", info.Name).Err(err).Msg("model call failed")
			return ctx
		},
	}
}

// newPromptHandler logs rendered prompt sizes. The full prompt text lands in
// logs only at trace level via the model handler above.
func newPromptHandler() *callbackHelper.PromptCallbackHandler {
	return &callbackHelper.PromptCallbackHandler{
		OnEnd: func(ctx context.Context, info *einocb.RunInfo, output *prompt.CallbackOutput) context.Context {
			if output != nil {
				total := 0
				for _, m := range output.Result {
					if m != nil {
						total += len(m.Content)
					}
				}
				logx.Debug().Str("node", info.Name).Int("messages", len(output.Result)).Int("chars", total).Msg("prompt rendered")
			}
			return ctx
		},
		OnError: func(ctx context.Context, info *einocb.RunInfo, err error) context.Context {
			logx.Error().Str("node", info.Name).Err(err).Msg("prompt rendering failed")
			return ctx
		},
	}
}

func lastUserContent(msgs []*schema.Message) string {
	for i := len(msgs) - 1; i >= 0; i-- {
		m := msgs[i]
		if m == nil {
			continue
		}
		if m.Role == schema.User {
			return strings.TrimSpace(m.Content)
		}
	}
	return ""
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
