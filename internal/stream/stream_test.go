package stream

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestBroadcasterFanOut(t *testing.T) {
	b := NewBroadcaster[int]()
	ch1, cancel1 := b.Subscribe()
	ch2, cancel2 := b.Subscribe()
	defer cancel1()
	defer cancel2()

	b.Publish(1)
	assert.Equal(t, 1, <-ch1)
	assert.Equal(t, 1, <-ch2)
}

func TestBroadcasterLateSubscriberGetsLatest(t *testing.T) {
	b := NewBroadcaster[int]()
	b.Publish(42)

	ch, cancel := b.Subscribe()
	defer cancel()
	assert.Equal(t, 42, <-ch)
}

func TestBroadcasterDropsStaleForSlowSubscriber(t *testing.T) {
	b := NewBroadcaster[int]()
	ch, cancel := b.Subscribe()
	defer cancel()

	b.Publish(1)
	b.Publish(2)
	b.Publish(3)

	got := <-ch
	assert.Equal(t, 3, got, "slow subscriber should see only the latest value")
}

func TestBroadcasterCloseClosesChannels(t *testing.T) {
	b := NewBroadcaster[int]()
	ch, cancel := b.Subscribe()
	defer cancel()
	b.Close()

	_, ok := <-ch
	assert.False(t, ok)
}

func TestDistinctUntilChanged(t *testing.T) {
	in := make(chan int, 4)
	in <- 1
	in <- 1
	in <- 2
	in <- 2
	close(in)

	out, cancel := DistinctUntilChanged(in, func(a, b int) bool { return a == b })
	defer cancel()

	var got []int
	for v := range out {
		got = append(got, v)
	}
	assert.Equal(t, []int{1, 2}, got)
}

func TestTimeWindowEvictsStaleEntries(t *testing.T) {
	w := NewTimeWindow[float64](100 * time.Millisecond)
	base := time.Now()
	w.Add(base, 10)
	w.Add(base.Add(50*time.Millisecond), 20)

	sum := w.Sum(base.Add(120*time.Millisecond), func(v float64) float64 { return v })
	assert.Equal(t, 20.0, sum, "the first entry should have fallen outside the window")
}

func TestCountWindowRetainsLastN(t *testing.T) {
	w := NewCountWindow[int](2)
	w.Add(1)
	w.Add(2)
	w.Add(3)

	require.Equal(t, []int{2, 3}, w.Items())
}
