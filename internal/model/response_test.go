package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chartResult() *ChatResult {
	return &ChatResult{
		Type:       ResponseChart,
		ChartType:  ChartBar,
		Title:      "Operations by status",
		Data:       []map[string]any{{"status": "ENTREGUE", "total": 10}},
		XAxis:      "status",
		YAxis:      []string{"total"},
		YAxisLabel: "Operations",
	}
}

func TestChatResultValidate(t *testing.T) {
	t.Run("valid text", func(t *testing.T) {
		require.NoError(t, TextResult("hello").Validate())
	})

	t.Run("valid chart", func(t *testing.T) {
		require.NoError(t, chartResult().Validate())
	})

	t.Run("text without content", func(t *testing.T) {
		assert.Error(t, TextResult("  ").Validate())
	})

	t.Run("text carrying chart fields", func(t *testing.T) {
		r := TextResult("hello")
		r.ChartType = ChartPie
		assert.Error(t, r.Validate())
	})

	t.Run("chart carrying text content", func(t *testing.T) {
		r := chartResult()
		r.Content = "also text"
		assert.Error(t, r.Validate())
	})

	t.Run("chart with invalid chart type", func(t *testing.T) {
		r := chartResult()
		r.ChartType = "scatter"
		assert.Error(t, r.Validate())
	})

	t.Run("chart without data", func(t *testing.T) {
		r := chartResult()
		r.Data = nil
		assert.Error(t, r.Validate())
	})

	t.Run("chart without axes", func(t *testing.T) {
		r := chartResult()
		r.XAxis = ""
		assert.Error(t, r.Validate())
	})

	t.Run("unknown type", func(t *testing.T) {
		assert.Error(t, (&ChatResult{Type: "table"}).Validate())
	})
}

func TestHistorySummary(t *testing.T) {
	assert.Equal(t, "42 operations", TextResult("42 operations").HistorySummary())
	assert.Equal(t, "I generated a chart about 'Operations by status'.", chartResult().HistorySummary())
}
