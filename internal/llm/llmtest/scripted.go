// Package llmtest provides a scripted chat model for pipeline tests.
package llmtest

import (
	"context"
	"fmt"
	"strings"
	"sync"

	einomodel "github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"
)

// Rule maps a substring of the rendered prompt to a canned reply. Rules are
// evaluated in order; the first match wins.
type Rule struct {
	Match string
	Reply string
}

// ScriptedModel implements the eino chat model interface with canned
// replies. It records every prompt it sees so tests can assert on what the
// pipeline actually sent.
type ScriptedModel struct {
	mu      sync.Mutex
	Rules   []Rule
	Default string
	Err     error
	Prompts []string
}

func (m *ScriptedModel) Generate(_ context.Context, input []*schema.Message, _ ...einomodel.Option) (*schema.Message, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.Err != nil {
		return nil, m.Err
	}

	var b strings.Builder
	for _, msg := range input {
		if msg == nil {
			continue
		}
		b.WriteString(msg.Content)
		b.WriteString("\n")
	}
	prompt := b.String()
	m.Prompts = append(m.Prompts, prompt)

	for _, rule := range m.Rules {
		if strings.Contains(prompt, rule.Match) {
			return schema.AssistantMessage(rule.Reply, nil), nil
		}
	}
	if m.Default != "" {
		return schema.AssistantMessage(m.Default, nil), nil
	}
	return nil, fmt.Errorf("scripted model has no reply for prompt: %.120s", prompt)
}

func (m *ScriptedModel) Stream(ctx context.Context, input []*schema.Message, opts ...einomodel.Option) (*schema.StreamReader[*schema.Message], error) {
	out, err := m.Generate(ctx, input, opts...)
	if err != nil {
		return nil, err
	}
	return schema.StreamReaderFromArray([]*schema.Message{out}), nil
}

// CallCount returns how many completions were requested.
func (m *ScriptedModel) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Prompts)
}

var _ einomodel.BaseChatModel = (*ScriptedModel)(nil)
