package llm

import (
	"context"
	"log/slog"
	"time"

	"github.com/hazyhaar/adcheck/internal/idgen"
)

// Call is one entry of the model call log.
type Call struct {
	ID           string
	CheckID      string
	Operation    string
	Provider     string
	Model        string
	InputTokens  int
	OutputTokens int
	CostUSD      float64
	Duration     time.Duration
	Err          string
	CreatedAt    time.Time
}

// CallSink persists call log entries.
type CallSink interface {
	RecordCall(ctx context.Context, c Call) error
}

// Recorder wraps a Client and logs every call, successful or not, to a
// CallSink. Sink failures are logged and never fail the call.
type Recorder struct {
	next     Client
	sink     CallSink
	provider string
	model    string
	logger   *slog.Logger
	newID    idgen.Generator
}

// NewRecorder wraps next. provider and model label the log rows.
func NewRecorder(next Client, sink CallSink, provider, model string, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{
		next:     next,
		sink:     sink,
		provider: provider,
		model:    model,
		logger:   logger,
		newID:    idgen.CallID,
	}
}

func (r *Recorder) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	resp, err := r.next.Complete(ctx, req)

	c := Call{
		ID:        r.newID(),
		CheckID:   CheckIDFromContext(ctx),
		Operation: req.Operation,
		Provider:  r.provider,
		Model:     r.model,
		Duration:  time.Since(start),
		CreatedAt: start,
	}
	if err != nil {
		c.Err = err.Error()
	} else {
		if resp.Model != "" {
			c.Model = resp.Model
		}
		c.InputTokens = resp.Usage.InputTokens
		c.OutputTokens = resp.Usage.OutputTokens
		c.CostUSD = resp.Usage.CostUSD
	}

	// The call outcome is already decided; a cancelled ctx must not drop the log row.
	if serr := r.sink.RecordCall(context.WithoutCancel(ctx), c); serr != nil {
		r.logger.Warn("llm: record call failed", "operation", c.Operation, "error", serr)
	}
	r.logger.Debug("llm: call", "operation", c.Operation, "model", c.Model,
		"input_tokens", c.InputTokens, "output_tokens", c.OutputTokens,
		"cost_usd", c.CostUSD, "duration_ms", c.Duration.Milliseconds(), "error", c.Err)
	return resp, err
}
