package llm

import (
	"context"
	"fmt"

	"github.com/cloudwego/eino-ext/components/model/gemini"
	einomodel "github.com/cloudwego/eino/components/model"
	"google.golang.org/genai"

	"github.com/suppbot/server/internal/model"
	logx "github.com/suppbot/server/pkg/logger"
)

// Config holds the configuration for chat model creation.
type Config struct {
	APIKey       string
	BaseURL      string
	SQLConfig    *model.SQLModelConfig
	AnswerConfig *model.AnswerModelConfig
}

// ChatModels holds the two logical model instances the pipeline needs: a
// deterministic one for SQL generation and a relaxed one for routing,
// rewriting and answer composition. Fields are interfaces so tests can
// substitute scripted models.
type ChatModels struct {
	SQL             einomodel.BaseChatModel
	Answer          einomodel.BaseChatModel
	SQLModelName    string
	AnswerModelName string
}

// NewChatModels creates both chat models against a shared Gemini client.
func NewChatModels(ctx context.Context, config Config) (*ChatModels, error) {
	clientCfg := &genai.ClientConfig{
		APIKey:  config.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if config.BaseURL != "" {
		clientCfg.HTTPOptions.BaseURL = config.BaseURL
	}

	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Gemini client")
		return nil, fmt.Errorf("error creating Gemini client: %w", err)
	}

	sqlModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.SQLConfig.Model,
		Temperature: &config.SQLConfig.Temperature,
		MaxTokens:   &config.SQLConfig.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating SQL model")
		return nil, fmt.Errorf("error creating SQL model: %w", err)
	}

	answerModel, err := gemini.NewChatModel(ctx, &gemini.Config{
		Client:      client,
		Model:       config.AnswerConfig.Model,
		Temperature: &config.AnswerConfig.Temperature,
		MaxTokens:   &config.AnswerConfig.MaxTokens,
	})
	if err != nil {
		logx.Error().Err(err).Msg("Error creating Answer model")
		return nil, fmt.Errorf("error creating Answer model: %w", err)
	}

	return &ChatModels{
		SQL:             sqlModel,
		Answer:          answerModel,
		SQLModelName:    config.SQLConfig.Model,
		AnswerModelName: config.AnswerConfig.Model,
	}, nil
}
