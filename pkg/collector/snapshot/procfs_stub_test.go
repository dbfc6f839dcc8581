//go:build !linux

package snapshot

import (
	"context"
	"errors"
	"testing"
)

func TestProcfsStubBehavior(t *testing.T) {
	if _, err := NewProcfs(DefaultProcMount, nil); !errors.Is(err, errUnsupported) {
		t.Fatalf("expected errUnsupported, got %v", err)
	}

	var p Procfs
	if records, err := p.Snapshot(context.Background()); err != errUnsupported || records != nil {
		t.Fatalf("snapshot should fail with errUnsupported, got records=%v err=%v", records, err)
	}

	if _, err := New(KindProcfs, nil); !errors.Is(err, errUnsupported) {
		t.Fatalf("explicit procfs source should fail off linux, got %v", err)
	}
}
