// Package prompts renders the system prompts for each pipeline stage from
// embedded templates. Rendering goes through the Eino prompt component so
// prompt callbacks fire for observers.
package prompts

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/schema"

	"github.com/suppbot/server/internal/model"
	"github.com/suppbot/server/internal/session"
)

//go:embed template/router_prompt.txt
var routerTemplate string

//go:embed template/rephrase_prompt.txt
var rephraseTemplate string

//go:embed template/sql_prompt.txt
var sqlTemplate string

//go:embed template/answer_prompt.txt
var answerTemplate string

//go:embed template/conversational_prompt.txt
var conversationalTemplate string

// RenderRouter renders the intent classification prompt.
func RenderRouter(ctx context.Context, cfg model.PromptConfig, history []session.Turn, question string) (string, error) {
	content := strings.NewReplacer(
		"{bot_name}", cfg.BotName,
		"{business_domain}", cfg.BusinessDomain,
		"{history}", FormatHistory(history),
		"{question}", question,
	).Replace(routerTemplate)
	return renderSystem(ctx, content)
}

// RenderRephrase renders the context-resolution prompt that turns a
// follow-up message into a standalone question.
func RenderRephrase(ctx context.Context, cfg model.PromptConfig, history []session.Turn, lastSQL, question string) (string, error) {
	if strings.TrimSpace(lastSQL) == "" {
		lastSQL = "(none)"
	}
	content := strings.NewReplacer(
		"{business_domain}", cfg.BusinessDomain,
		"{history}", FormatHistory(history),
		"{last_sql}", lastSQL,
		"{question}", question,
	).Replace(rephraseTemplate)
	return renderSystem(ctx, content)
}

// RenderSQL renders the SQL generation prompt with the live schema and the
// few-shot corpus.
func RenderSQL(ctx context.Context, schemaText, question string) (string, error) {
	content := strings.NewReplacer(
		"{schema}", schemaText,
		"{examples}", FormatExamples(),
		"{question}", question,
	).Replace(sqlTemplate)
	return renderSystem(ctx, content)
}

// RenderAnswer renders the formatting prompt that turns a query result into
// the structured text-or-chart reply.
func RenderAnswer(ctx context.Context, cfg model.PromptConfig, question, sql, result string) (string, error) {
	content := strings.NewReplacer(
		"{bot_name}", cfg.BotName,
		"{business_domain}", cfg.BusinessDomain,
		"{question}", question,
		"{sql}", sql,
		"{result}", result,
	).Replace(answerTemplate)
	return renderSystem(ctx, content)
}

// RenderConversational renders the small-talk prompt.
func RenderConversational(ctx context.Context, cfg model.PromptConfig, history []session.Turn, question string) (string, error) {
	content := strings.NewReplacer(
		"{bot_name}", cfg.BotName,
		"{business_domain}", cfg.BusinessDomain,
		"{history}", FormatHistory(history),
		"{question}", question,
	).Replace(conversationalTemplate)
	return renderSystem(ctx, content)
}

// FormatHistory renders session turns as the plain-text block embedded into
// prompts.
func FormatHistory(turns []session.Turn) string {
	if len(turns) == 0 {
		return "(no previous messages)"
	}
	var b strings.Builder
	for i, t := range turns {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "%s: %s", t.Role, t.Text)
	}
	return b.String()
}

// renderSystem wraps the rendered content in the Eino prompt component using
// a messages placeholder, so prompt callbacks observe the final text.
func renderSystem(ctx context.Context, content string) (string, error) {
	tpl := prompt.FromMessages(
		schema.FString,
		schema.MessagesPlaceholder("system_messages", false),
	)
	msgs, err := tpl.Format(ctx, map[string]any{
		"system_messages": []*schema.Message{schema.SystemMessage(content)},
	})
	if err != nil {
		return "", fmt.Errorf("prompt callbacks: %w", err)
	}
	if len(msgs) == 0 || msgs[0] == nil {
		return "", fmt.Errorf("prompt callbacks: empty result")
	}
	return msgs[0].Content, nil
}
