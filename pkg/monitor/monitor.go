// Package monitor runs analysis cycles: snapshot, match, build and annotate.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
	"go.uber.org/zap"

	"github.com/srodi/memon/pkg/collector/snapshot"
	"github.com/srodi/memon/pkg/match"
	"github.com/srodi/memon/pkg/tree"
)

// ErrNoMatch is returned by Analyze when the term selects no process.
var ErrNoMatch = errors.New("no processes found")

// totalMemory reports physical memory for percentage columns; overridden in tests.
var totalMemory = func(ctx context.Context) (uint64, error) {
	vm, err := mem.VirtualMemoryWithContext(ctx)
	if err != nil {
		return 0, err
	}
	return vm.Total, nil
}

// Result is the outcome of one cycle.
type Result struct {
	Term        string
	Taken       time.Time
	Matched     int // processes matched by name, before root collapsing
	Forest      tree.Forest
	SystemBytes uint64 // 0 when physical memory could not be read
}

// Monitor ties a snapshot source to a matcher.
type Monitor struct {
	source  snapshot.Source
	matcher *match.Matcher
	logger  *zap.SugaredLogger
	now     func() time.Time
}

// New returns a Monitor. A nil matcher uses the default strategies and a nil
// logger discards output.
func New(source snapshot.Source, matcher *match.Matcher, logger *zap.SugaredLogger) *Monitor {
	if matcher == nil {
		matcher = match.New()
	}
	if logger == nil {
		logger = zap.NewNop().Sugar()
	}
	return &Monitor{source: source, matcher: matcher, logger: logger, now: time.Now}
}

// Analyze takes a fresh snapshot and returns the annotated forest for term.
// Trees are only built when at least one root matched.
func (m *Monitor) Analyze(ctx context.Context, term string) (*Result, error) {
	taken := m.now()
	records, err := m.source.Snapshot(ctx)
	if err != nil {
		return nil, fmt.Errorf("snapshot: %w", err)
	}

	matched := m.matcher.Matches(records, term)
	roots := match.Roots(records, matched)
	m.logger.Debugw("matched processes", "term", term, "records", len(records), "matched", len(matched), "roots", len(roots))
	if len(roots) == 0 {
		return nil, fmt.Errorf("%w matching %q", ErrNoMatch, term)
	}

	forest := tree.Annotate(tree.Build(records, roots))
	res := &Result{
		Term:    term,
		Taken:   taken,
		Matched: len(matched),
		Forest:  forest,
	}
	if total, err := totalMemory(ctx); err != nil {
		m.logger.Debugw("reading physical memory", "error", err)
	} else {
		res.SystemBytes = total
	}
	return res, nil
}
