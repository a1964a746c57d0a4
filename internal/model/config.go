package model

import "fmt"

// ================ Config ================

type DatabaseConfig struct {
	Host         string `envconfig:"DB_HOST" default:"localhost"`
	Port         int    `envconfig:"DB_PORT" default:"5432"`
	Name         string `envconfig:"DB_NAME" default:"suppbot"`
	User         string `envconfig:"DB_USER" default:"postgres"`
	Password     string `envconfig:"DB_PASS" default:""`
	SSLMode      string `envconfig:"DB_SSLMODE" default:"disable"`
	MaxOpenConns int    `envconfig:"DB_MAX_OPEN_CONNS" default:"10"`
	MaxIdleConns int    `envconfig:"DB_MAX_IDLE_CONNS" default:"5"`
}

// DSN renders the connection string for the pgx stdlib driver.
func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

// SQLModelConfig configures the deterministic model used for SQL generation.
// Temperature stays at 0 so the same prompt yields the same query.
type SQLModelConfig struct {
	Model       string  `envconfig:"SQL_MODEL" default:"gemini-2.5-flash"`
	MaxTokens   int     `envconfig:"SQL_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"SQL_TEMPERATURE" default:"0"`
}

// AnswerModelConfig configures the relaxed model used for routing,
// rewriting and natural-language answers.
type AnswerModelConfig struct {
	Model       string  `envconfig:"ANSWER_MODEL" default:"gemini-2.5-flash-lite"`
	MaxTokens   int     `envconfig:"ANSWER_MAX_TOKENS" default:"2000"`
	Temperature float32 `envconfig:"ANSWER_TEMPERATURE" default:"0.3"`
}

type ConversationConfig struct {
	// Backend selects the session store driver: "memory" or "redis".
	Backend string `envconfig:"SESSION_BACKEND" default:"memory"`
	TTL     string `envconfig:"SESSION_TTL" default:"15m"`
	History struct {
		// MaxTurns bounds how many recent turns feed prompt construction.
		// Older turns stay stored; the trim is a view-time operation.
		MaxTurns int `envconfig:"CONVERSATION_HISTORY_MAX_TURNS" default:"6"`
	}
}

type PipelineConfig struct {
	// RowLimit is appended to unbounded SELECTs before execution.
	RowLimit       int    `envconfig:"PIPELINE_ROW_LIMIT" default:"100"`
	RequestTimeout string `envconfig:"PIPELINE_REQUEST_TIMEOUT" default:"60s"`
}

type ServerConfig struct {
	Addr            string `envconfig:"HTTP_ADDR" default:":8080"`
	Environment     string `envconfig:"APP_ENV" default:"development"`
	ShutdownTimeout string `envconfig:"HTTP_SHUTDOWN_TIMEOUT" default:"10s"`
}

type PromptConfig struct {
	BotName        string `envconfig:"PROMPT_BOT_NAME" default:"SuppBot"`
	BusinessDomain string `envconfig:"PROMPT_BUSINESS_DOMAIN" default:"logistics operations"`
}
