package model

import (
	"fmt"
	"strings"
)

// ResponseType discriminates the two response shapes the pipeline can emit.
type ResponseType string

const (
	ResponseText  ResponseType = "text"
	ResponseChart ResponseType = "chart"
)

// Chart types the formatter is allowed to pick.
const (
	ChartBar  = "bar"
	ChartLine = "line"
	ChartPie  = "pie"
)

// Fixed user-facing messages. Internal failure detail never reaches these.
const (
	FallbackMessage    = "Sorry, I didn't understand your question. I can help with logistics data or answer greetings. Please rephrase."
	NoDataMessage      = "No information found for that request."
	QueryFailedMessage = "I couldn't find that in the database. Please try rephrasing your question."
	SystemApology      = "Sorry, an unexpected error occurred while processing your request."
)

// NoQuerySQL fills the generated_sql field on turns that never touch the database.
const NoQuerySQL = "-- no query needed"

// ChatInput is the public input of one pipeline invocation.
type ChatInput struct {
	SessionID string `json:"session_id"`
	Question  string `json:"question"`
}

// ChatResult is the structured response returned for every turn.
// Exactly one of the two shapes is populated: Content for text responses,
// the chart fields for chart responses. Type tells which.
type ChatResult struct {
	Type ResponseType `json:"type"`

	// Text shape
	Content string `json:"content,omitempty"`

	// Chart shape
	ChartType  string           `json:"chart_type,omitempty"`
	Title      string           `json:"title,omitempty"`
	Data       []map[string]any `json:"data,omitempty"`
	XAxis      string           `json:"x_axis,omitempty"`
	YAxis      []string         `json:"y_axis,omitempty"`
	YAxisLabel string           `json:"y_axis_label,omitempty"`

	// Pipeline metadata, present on every turn.
	GeneratedSQL string `json:"generated_sql"`
	ResponseTime string `json:"response_time"`
	SessionID    string `json:"session_id"`
}

// TextResult builds a text-shaped result.
func TextResult(content string) *ChatResult {
	return &ChatResult{Type: ResponseText, Content: content}
}

// Validate enforces the tagged-union invariant: exactly one shape populated.
func (r *ChatResult) Validate() error {
	switch r.Type {
	case ResponseText:
		if strings.TrimSpace(r.Content) == "" {
			return fmt.Errorf("text response with empty content")
		}
		if r.ChartType != "" || r.Title != "" || len(r.Data) > 0 || r.XAxis != "" || len(r.YAxis) > 0 {
			return fmt.Errorf("text response carries chart fields")
		}
	case ResponseChart:
		if r.Content != "" {
			return fmt.Errorf("chart response carries text content")
		}
		switch r.ChartType {
		case ChartBar, ChartLine, ChartPie:
		default:
			return fmt.Errorf("invalid chart_type %q", r.ChartType)
		}
		if strings.TrimSpace(r.Title) == "" {
			return fmt.Errorf("chart response without title")
		}
		if len(r.Data) == 0 {
			return fmt.Errorf("chart response without data")
		}
		if r.XAxis == "" || len(r.YAxis) == 0 {
			return fmt.Errorf("chart response without axis mapping")
		}
	default:
		return fmt.Errorf("unknown response type %q", r.Type)
	}
	return nil
}

// HistorySummary derives the string appended to session history for this
// turn, so future prompts read naturally instead of embedding raw JSON.
func (r *ChatResult) HistorySummary() string {
	if r.Type == ResponseChart {
		return fmt.Sprintf("I generated a chart about '%s'.", r.Title)
	}
	return r.Content
}
