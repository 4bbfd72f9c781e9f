package submit

import (
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

// Envelope is the record stored or published for one successful final
// submission.
type Envelope struct {
	ID          string         `json:"id"`
	Flow        string         `json:"flow,omitempty"`
	Values      map[string]any `json:"values"`
	SubmittedAt time.Time      `json:"submitted_at"`
}

// SinkOption configures the database and broker sinks.
type SinkOption func(*sinkConfig)

type sinkConfig struct {
	flow   string
	table  string
	dollar bool
	logger *slog.Logger
	now    func() time.Time
	newID  func() string
}

func newSinkConfig(options []SinkOption) sinkConfig {
	cfg := sinkConfig{
		table:  "submissions",
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		now:    time.Now,
		newID:  uuid.NewString,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(&cfg)
	}
	return cfg
}

// WithFlowName tags every envelope with the flow it came from.
func WithFlowName(name string) SinkOption {
	return func(cfg *sinkConfig) {
		cfg.flow = name
	}
}

// WithSinkLogger sets the logger used for sink outcomes.
func WithSinkLogger(logger *slog.Logger) SinkOption {
	return func(cfg *sinkConfig) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithClock overrides the timestamp source.
func WithClock(now func() time.Time) SinkOption {
	return func(cfg *sinkConfig) {
		if now != nil {
			cfg.now = now
		}
	}
}

// WithIDGenerator overrides the envelope id source (default random UUIDs).
func WithIDGenerator(fn func() string) SinkOption {
	return func(cfg *sinkConfig) {
		if fn != nil {
			cfg.newID = fn
		}
	}
}

func (cfg sinkConfig) envelope(values map[string]any) Envelope {
	return Envelope{
		ID:          cfg.newID(),
		Flow:        cfg.flow,
		Values:      values,
		SubmittedAt: cfg.now().UTC(),
	}
}
