package coordination

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fakeClock(seq ...time.Time) func() time.Time {
	i := 0
	return func() time.Time {
		t := seq[i]
		if i < len(seq)-1 {
			i++
		}
		return t
	}
}

func TestRebalanceTimerAveragesOverWindow(t *testing.T) {
	base := time.Unix(0, 0)
	timer := NewRebalanceTimer(3)
	timer.now = fakeClock(
		base, base.Add(10*time.Millisecond),
		base.Add(10*time.Millisecond), base.Add(30*time.Millisecond),
	)

	timer.Start()
	d1 := timer.Stop()
	require.Equal(t, 10*time.Millisecond, d1)

	timer.Start()
	d2 := timer.Stop()
	require.Equal(t, 20*time.Millisecond, d2)

	avg, ok := timer.Average()
	require.True(t, ok)
	require.Equal(t, 15*time.Millisecond, avg)
}

func TestRebalanceTimerStopWithoutStartIsNoop(t *testing.T) {
	timer := NewRebalanceTimer(3)
	require.Equal(t, time.Duration(0), timer.Stop())
	_, ok := timer.Average()
	require.False(t, ok)
}

func TestRebalanceTimerWrapsWindowKeepingOnlyRecentSamples(t *testing.T) {
	base := time.Unix(0, 0)
	timer := NewRebalanceTimer(2)

	durations := []time.Duration{5 * time.Millisecond, 7 * time.Millisecond, 100 * time.Millisecond}
	at := base
	for _, d := range durations {
		start := at
		at = at.Add(d)
		stop := at
		timer.now = fakeClock(start, stop)
		timer.Start()
		timer.Stop()
	}

	avg, ok := timer.Average()
	require.True(t, ok)
	require.Equal(t, (7*time.Millisecond+100*time.Millisecond)/2, avg,
		"window size 2 keeps only the two most recent samples")
}

func TestDefaultRebalanceWindowUsedWhenNonPositive(t *testing.T) {
	timer := NewRebalanceTimer(0)
	require.Len(t, timer.window, DefaultRebalanceWindow)
}
