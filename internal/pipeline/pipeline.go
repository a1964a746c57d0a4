// Package pipeline implements the chat turn as a compiled Eino graph: intent
// routing, follow-up resolution, SQL generation, safe execution, and answer
// formatting.
package pipeline

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/cloudwego/eino/compose"
	"github.com/google/uuid"

	"github.com/suppbot/server/internal/model"
	"github.com/suppbot/server/internal/pipeline/observers"
	logx "github.com/suppbot/server/pkg/logger"
)

const DefaultRequestTimeout = 60 * time.Second

// Pipeline is the public boundary of the chat graph. Ask never returns an
// error: every internal failure degrades to a fixed apology so callers always
// get a well-formed result.
type Pipeline struct {
	runnable compose.Runnable[model.ChatInput, *model.ChatResult]
	timeout  time.Duration

	mu    sync.Mutex
	locks map[string]*sync.Mutex
}

// New compiles the graph and returns the ready pipeline.
func New(ctx context.Context, config *GraphConfig, timeout time.Duration) (*Pipeline, error) {
	runnable, err := BuildGraph(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("build chat graph: %w", err)
	}
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}
	return &Pipeline{
		runnable: runnable,
		timeout:  timeout,
		locks:    make(map[string]*sync.Mutex),
	}, nil
}

// Ask runs one turn. Turns within the same session run serially so history
// and last-SQL updates cannot interleave; different sessions run in parallel.
func (p *Pipeline) Ask(ctx context.Context, in model.ChatInput) *model.ChatResult {
	if strings.TrimSpace(in.SessionID) == "" {
		in.SessionID = uuid.NewString()
	}
	in.Question = strings.TrimSpace(in.Question)

	lock := p.sessionLock(in.SessionID)
	lock.Lock()
	defer lock.Unlock()

	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()

	started := time.Now()
	out, err := p.runnable.Invoke(ctx, in, compose.WithCallbacks(observers.NewAllCallbacks()))
	if err != nil || out == nil {
		logx.Error().Err(err).Str("session_id", in.SessionID).Msg("pipeline invocation failed")
		return apologyResult(in.SessionID, started)
	}
	return out
}

func apologyResult(sessionID string, started time.Time) *model.ChatResult {
	result := model.TextResult(model.SystemApology)
	result.SessionID = sessionID
	result.GeneratedSQL = model.NoQuerySQL
	result.ResponseTime = fmt.Sprintf("%.2f", time.Since(started).Seconds())
	return result
}

// sessionLock returns the mutex guarding a session, creating it on first use.
// Locks are never evicted; one mutex per session id seen by this process is
// cheap enough.
func (p *Pipeline) sessionLock(sessionID string) *sync.Mutex {
	p.mu.Lock()
	defer p.mu.Unlock()
	lock, ok := p.locks[sessionID]
	if !ok {
		lock = &sync.Mutex{}
		p.locks[sessionID] = lock
	}
	return lock
}
