package prompts

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/suppbot/server/internal/model"
	"github.com/suppbot/server/internal/session"
)

var testPromptCfg = model.PromptConfig{
	BotName:        "SuppBot",
	BusinessDomain: "logistics operations",
}

func TestFormatHistory(t *testing.T) {
	assert.Equal(t, "(no previous messages)", FormatHistory(nil))

	turns := []session.Turn{
		{Role: session.RoleUser, Text: "How many operations?"},
		{Role: session.RoleAssistant, Text: "There are 42."},
	}
	assert.Equal(t, "user: How many operations?\nassistant: There are 42.", FormatHistory(turns))
}

func TestRenderRouter(t *testing.T) {
	out, err := RenderRouter(context.Background(), testPromptCfg, nil, "hello there")
	require.NoError(t, err)

	assert.Contains(t, out, "SuppBot")
	assert.Contains(t, out, "logistics operations")
	assert.Contains(t, out, "database_query")
	assert.Contains(t, out, "casual_conversation")
	assert.Contains(t, out, "hello there")
	assert.NotContains(t, out, "{bot_name}")
	assert.NotContains(t, out, "{history}")
}

func TestRenderRephrase(t *testing.T) {
	turns := []session.Turn{{Role: session.RoleUser, Text: "How many cancelled operations?"}}

	out, err := RenderRephrase(context.Background(), testPromptCfg, turns, "SELECT COUNT(*) FROM operacoes_logisticas", "And in transit?")
	require.NoError(t, err)
	assert.Contains(t, out, "How many cancelled operations?")
	assert.Contains(t, out, "SELECT COUNT(*) FROM operacoes_logisticas")
	assert.Contains(t, out, "And in transit?")

	out, err = RenderRephrase(context.Background(), testPromptCfg, nil, "", "standalone question")
	require.NoError(t, err)
	assert.Contains(t, out, "(none)")
}

func TestRenderSQL(t *testing.T) {
	schemaText := "Table: operacoes_logisticas\nColumns: id (integer)"

	out, err := RenderSQL(context.Background(), schemaText, "How many operations?")
	require.NoError(t, err)

	assert.Contains(t, out, schemaText)
	assert.Contains(t, out, "How many operations?")
	// Few-shot corpus is embedded in full.
	assert.Contains(t, out, "How many operations were cancelled?")
	assert.Contains(t, out, "status = 'CANCELADO'")
	assert.Contains(t, out, "JOIN clientes")
	// Date-arithmetic average and the follow-up shape that reuses a prior
	// entity resolution as a WHERE subquery.
	assert.Contains(t, out, "AVG(data_entrega_realizada - data_emissao) AS prazo_medio")
	assert.Contains(t, out, "cliente_id = (SELECT o.cliente_id FROM operacoes_logisticas o GROUP BY o.cliente_id ORDER BY SUM(o.valor_mercadoria) DESC LIMIT 1)")
	assert.NotContains(t, out, "{examples}")
}

func TestRenderAnswer(t *testing.T) {
	out, err := RenderAnswer(context.Background(), testPromptCfg,
		"How many operations?",
		"SELECT COUNT(*) FROM operacoes_logisticas",
		`[{"count": 42}]`)
	require.NoError(t, err)

	assert.Contains(t, out, `"type": "text"`)
	assert.Contains(t, out, `"type": "chart"`)
	assert.Contains(t, out, "SELECT COUNT(*) FROM operacoes_logisticas")
	assert.Contains(t, out, `[{"count": 42}]`)
}

func TestRenderConversational(t *testing.T) {
	out, err := RenderConversational(context.Background(), testPromptCfg, nil, "hi!")
	require.NoError(t, err)
	assert.Contains(t, out, "SuppBot")
	assert.Contains(t, out, "hi!")
}

func TestFormatExamplesCoversCorpus(t *testing.T) {
	out := FormatExamples()
	for _, ex := range defaultExamples {
		assert.Contains(t, out, ex.Question)
		assert.Contains(t, out, ex.SQL)
	}
}
