// Package describe generates human-readable column descriptions.
//
// Describers are optional collaborators of the pipeline. A describer that
// cannot answer returns ErrUnavailable and the column keeps an empty
// description.
package describe

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/leapstack-labs/leapmodel/pkg/core"
)

// ErrUnavailable signals that a describer cannot produce descriptions.
var ErrUnavailable = errors.New("describer unavailable")

// Describer returns a description for one column.
type Describer interface {
	Describe(ctx context.Context, table string, col core.ColumnProfile) (string, error)
}

// Backend names.
const (
	BackendNone      = "none"
	BackendHeuristic = "heuristic"
	BackendOllama    = "ollama"
)

// Config selects and configures a describer backend.
type Config struct {
	Backend  string
	Endpoint string
	Model    string
	Timeout  time.Duration
}

// New returns the describer for cfg, or nil when descriptions are disabled.
func New(cfg Config) (Describer, error) {
	switch strings.ToLower(cfg.Backend) {
	case "", BackendNone:
		return nil, nil
	case BackendHeuristic:
		return NewHeuristic(), nil
	case BackendOllama:
		return NewOllama(cfg.Endpoint, cfg.Model, cfg.Timeout), nil
	default:
		return nil, fmt.Errorf("unknown describe backend %q (want none, heuristic or ollama)", cfg.Backend)
	}
}

// summary is the plain column summary shared by prompts and fallbacks.
func summary(table string, col core.ColumnProfile) string {
	s := fmt.Sprintf("Column %q of table %q. Type guess: %s.", col.Name, table, col.Type)
	if len(col.Samples) > 0 {
		s += " Samples: " + strings.Join(col.Samples, ", ") + "."
	}
	return s
}
