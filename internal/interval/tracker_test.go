package interval

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/mariusgiger/feesim-stream/internal/ports"
)

type stubFeed struct {
	events chan ports.BlockHashEvent
}

func (s *stubFeed) Subscribe(ctx context.Context) (<-chan ports.BlockHashEvent, error) {
	return s.events, nil
}

func TestTrackerEmitsElapsedTimeBetweenRealEvents(t *testing.T) {
	feed := &stubFeed{events: make(chan ports.BlockHashEvent, 4)}
	tracker := NewTracker(feed, nil, nil)

	sub, unsubscribe := tracker.Intervals()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tracker.Run(ctx)

	base := time.Unix(0, 0)
	feed.events <- ports.BlockHashEvent{Hash: "", At: base} // open signal, ignored
	feed.events <- ports.BlockHashEvent{Hash: "a", At: base}
	feed.events <- ports.BlockHashEvent{Hash: "b", At: base.Add(90 * time.Second)}

	select {
	case ibi := <-sub:
		require.Equal(t, 90*time.Second, ibi)
	case <-time.After(time.Second):
		t.Fatal("expected an interval to be published")
	}
}

func TestTrackerSkipsFirstRealEvent(t *testing.T) {
	feed := &stubFeed{events: make(chan ports.BlockHashEvent, 2)}
	tracker := NewTracker(feed, nil, nil)

	sub, unsubscribe := tracker.Intervals()
	defer unsubscribe()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go tracker.Run(ctx)

	feed.events <- ports.BlockHashEvent{Hash: "a", At: time.Now()}

	select {
	case ibi := <-sub:
		t.Fatalf("expected no interval from a single event, got %v", ibi)
	case <-time.After(50 * time.Millisecond):
	}
}
