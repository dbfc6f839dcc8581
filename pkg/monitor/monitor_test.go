package monitor

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"

	"github.com/srodi/memon/pkg/collector/snapshot"
	"github.com/srodi/memon/pkg/types"
)

func stubTotalMemory(t *testing.T, total uint64, err error) {
	t.Helper()
	prev := totalMemory
	totalMemory = func(context.Context) (uint64, error) { return total, err }
	t.Cleanup(func() { totalMemory = prev })
}

func chromeRecords() snapshot.Static {
	return snapshot.Static{
		{PID: 1, Name: "chrome", RSSBytes: 100},
		{PID: 2, PPID: 1, Name: "chrome", RSSBytes: 300},
		{PID: 3, PPID: 1, Name: "chrome", RSSBytes: 200},
		{PID: 4, Name: "bash", RSSBytes: 50},
	}
}

type failingSource struct{ err error }

func (f failingSource) Snapshot(context.Context) ([]types.ProcessRecord, error) {
	return nil, f.err
}

type countingSource struct {
	calls   int
	records []types.ProcessRecord
}

func (c *countingSource) Snapshot(context.Context) ([]types.ProcessRecord, error) {
	c.calls++
	return c.records, nil
}

func TestAnalyzeBuildsRankedForest(t *testing.T) {
	stubTotalMemory(t, 4096, nil)
	m := New(chromeRecords(), nil, nil)
	fixed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	m.now = func() time.Time { return fixed }

	res, err := m.Analyze(context.Background(), "Chrome")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.Term != "Chrome" || res.Matched != 3 || !res.Taken.Equal(fixed) || res.SystemBytes != 4096 {
		t.Fatalf("unexpected result header: %+v", res)
	}
	if len(res.Forest) != 1 || res.Forest[0].PID != 1 {
		t.Fatalf("expected a single tree rooted at pid 1, got %d trees", len(res.Forest))
	}
	if err := res.Forest.Verify(); err != nil {
		t.Fatalf("forest invariants: %v", err)
	}
	var ranked []int
	for _, n := range res.Forest.Ranked() {
		ranked = append(ranked, n.PID)
	}
	if diff := cmp.Diff([]int{2, 3, 1}, ranked); diff != "" {
		t.Fatalf("rank order (-want +got):\n%s", diff)
	}
	if res.Forest.TotalBytes() != 600 {
		t.Fatalf("expected 600 bytes total, got %d", res.Forest.TotalBytes())
	}
}

func TestAnalyzeNoMatch(t *testing.T) {
	stubTotalMemory(t, 0, nil)
	_, err := New(chromeRecords(), nil, nil).Analyze(context.Background(), "nonexistent")
	if !errors.Is(err, ErrNoMatch) {
		t.Fatalf("expected ErrNoMatch, got %v", err)
	}
}

func TestAnalyzeSnapshotFailure(t *testing.T) {
	_, err := New(failingSource{err: snapshot.ErrUnavailable}, nil, nil).Analyze(context.Background(), "chrome")
	if !errors.Is(err, snapshot.ErrUnavailable) {
		t.Fatalf("expected ErrUnavailable, got %v", err)
	}
}

func TestAnalyzeToleratesUnknownSystemMemory(t *testing.T) {
	stubTotalMemory(t, 0, errors.New("no meminfo"))
	res, err := New(chromeRecords(), nil, nil).Analyze(context.Background(), "bash")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if res.SystemBytes != 0 {
		t.Fatalf("expected unknown system memory, got %d", res.SystemBytes)
	}
}

func TestAnalyzeTakesFreshSnapshotEachCycle(t *testing.T) {
	stubTotalMemory(t, 0, nil)
	src := &countingSource{records: chromeRecords()}
	m := New(src, nil, nil)
	first, err := m.Analyze(context.Background(), "chrome")
	if err != nil {
		t.Fatalf("first cycle: %v", err)
	}
	src.records = []types.ProcessRecord{{PID: 9, Name: "chrome", RSSBytes: 1}}
	second, err := m.Analyze(context.Background(), "chrome")
	if err != nil {
		t.Fatalf("second cycle: %v", err)
	}
	if src.calls != 2 {
		t.Fatalf("expected two snapshots, got %d", src.calls)
	}
	if first.Forest[0].PID != 1 || second.Forest[0].PID != 9 || second.Forest.Count() != 1 {
		t.Fatalf("cycles should not share state: %v / %v", first.Forest.Nodes(), second.Forest.Nodes())
	}
}

func TestAnalyzeSelfParent(t *testing.T) {
	stubTotalMemory(t, 0, nil)
	src := snapshot.Static{{PID: 5, PPID: 5, Name: "weird", RSSBytes: 7}}
	res, err := New(src, nil, nil).Analyze(context.Background(), "weird")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if got := res.Forest.Nodes(); len(got) != 1 || got[0].Rank != 1 || got[0].SubtreeBytes != 7 {
		t.Fatalf("unexpected self-parent forest: %+v", got)
	}
}

func TestWatchRejectsNonPositiveInterval(t *testing.T) {
	for _, d := range []time.Duration{0, -time.Second} {
		called := false
		err := Watch(context.Background(), d, func(context.Context) error {
			called = true
			return nil
		})
		if !errors.Is(err, ErrInvalidInterval) {
			t.Fatalf("interval %v: expected ErrInvalidInterval, got %v", d, err)
		}
		if called {
			t.Fatalf("interval %v: cycle must not run", d)
		}
	}
}

func TestWatchRunsImmediatelyAndRepeats(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var runs atomic.Int32
	err := Watch(ctx, time.Millisecond, func(cycleCtx context.Context) error {
		if cycleCtx.Err() != nil {
			t.Errorf("cycle context should not carry cancellation")
		}
		if runs.Add(1) == 3 {
			cancel()
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if got := runs.Load(); got != 3 {
		t.Fatalf("expected the loop to stop after the cancelling cycle, got %d runs", got)
	}
}

func TestWatchFirstCycleIsNotDelayed(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	start := time.Now()
	var elapsed time.Duration
	err := Watch(ctx, time.Hour, func(context.Context) error {
		elapsed = time.Since(start)
		cancel()
		return nil
	})
	if err != nil {
		t.Fatalf("Watch: %v", err)
	}
	if elapsed > time.Minute {
		t.Fatalf("first cycle waited for the interval")
	}
}

func TestWatchStopsOnCycleError(t *testing.T) {
	boom := errors.New("boom")
	runs := 0
	err := Watch(context.Background(), time.Millisecond, func(context.Context) error {
		runs++
		if runs == 2 {
			return boom
		}
		return nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected cycle error, got %v", err)
	}
	if runs != 2 {
		t.Fatalf("expected two runs, got %d", runs)
	}
}

func TestWatchCompletesCycleInFlight(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	finished := false
	err := Watch(ctx, time.Millisecond, func(cycleCtx context.Context) error {
		cancel()
		select {
		case <-cycleCtx.Done():
			t.Errorf("cycle context cancelled mid-cycle")
		default:
		}
		finished = true
		return nil
	})
	if err != nil || !finished {
		t.Fatalf("expected a completed cycle and clean stop, err=%v finished=%t", err, finished)
	}
}
