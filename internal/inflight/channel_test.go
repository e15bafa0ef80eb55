package inflight

import (
	"context"
	"errors"
	"fmt"
	"testing"
)

func TestStart_CancelsPrevious(t *testing.T) {
	ch := New("layer")
	first := ch.Start(context.Background())
	second := ch.Start(context.Background())

	if first.Context().Err() == nil {
		t.Fatalf("first ticket context should be cancelled")
	}
	if second.Context().Err() != nil {
		t.Fatalf("second ticket context should be live")
	}
	if first.Current() {
		t.Fatalf("first ticket must not be current")
	}
	if !second.Current() {
		t.Fatalf("second ticket must be current")
	}
}

func TestCancel_InvalidatesWithoutNewTicket(t *testing.T) {
	ch := New("region")
	tk := ch.Start(context.Background())
	ch.Cancel()
	if tk.Current() {
		t.Fatalf("ticket must not be current after Cancel")
	}
	if tk.Context().Err() == nil {
		t.Fatalf("ticket context should be cancelled")
	}
	ch.Cancel() // idempotent
}

func TestChannels_AreIndependent(t *testing.T) {
	layer, region := New("layer"), New("region")
	lt := layer.Start(context.Background())
	rt := region.Start(context.Background())
	region.Start(context.Background())

	if !lt.Current() || lt.Context().Err() != nil {
		t.Fatalf("layer ticket affected by region channel")
	}
	if rt.Current() {
		t.Fatalf("region ticket should be superseded")
	}
}

func TestDone_ReleasesOnlyCurrent(t *testing.T) {
	ch := New("search")
	old := ch.Start(context.Background())
	cur := ch.Start(context.Background())
	old.Done()
	if cur.Context().Err() != nil {
		t.Fatalf("stale Done must not cancel the current ticket")
	}
	cur.Done()
	if cur.Context().Err() == nil {
		t.Fatalf("Done on the current ticket releases its context")
	}
}

func TestIsCancelled(t *testing.T) {
	if !IsCancelled(fmt.Errorf("do request: %w", context.Canceled)) {
		t.Fatalf("wrapped context.Canceled should be a cancellation")
	}
	if IsCancelled(errors.New("boom")) || IsCancelled(context.DeadlineExceeded) {
		t.Fatalf("other errors are real failures")
	}
}
