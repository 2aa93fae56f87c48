package timeutil

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestRealClock(t *testing.T) {
	var c Clock = RealClock{}
	before := time.Now()
	assert.False(t, c.Now().Before(before))
	assert.GreaterOrEqual(t, c.Since(before), time.Duration(0))

	tk := c.NewTicker(time.Millisecond)
	defer tk.Stop()
	select {
	case <-tk.C():
	case <-time.After(time.Second):
		t.Fatal("real ticker never fired")
	}
}

func TestMockClock_AdvanceAndSince(t *testing.T) {
	start := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	c := NewMockClock(start)
	assert.Equal(t, start, c.Now())

	c.Advance(90 * time.Second)
	assert.Equal(t, start.Add(90*time.Second), c.Now())
	assert.Equal(t, 90*time.Second, c.Since(start))

	c.Set(start)
	assert.Equal(t, start, c.Now())
}

func TestMockTicker_FiresOnDeadline(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	tk := c.NewTicker(500 * time.Millisecond)
	<-c.TickerCreated()

	c.Advance(400 * time.Millisecond)
	select {
	case <-tk.C():
		t.Fatal("ticked before its period")
	default:
	}

	c.Advance(100 * time.Millisecond)
	select {
	case got := <-tk.C():
		assert.Equal(t, time.Unix(0, 0).Add(500*time.Millisecond), got)
	default:
		t.Fatal("expected a tick")
	}

	tk.Stop()
	c.Advance(time.Second)
	select {
	case <-tk.C():
		t.Fatal("stopped ticker fired")
	default:
	}
}

func TestMockTicker_TriggerDropsWhenFull(t *testing.T) {
	c := NewMockClock(time.Unix(0, 0))
	tk := c.NewTicker(time.Second).(*MockTicker)
	tk.Trigger(time.Unix(1, 0))
	tk.Trigger(time.Unix(2, 0))
	assert.Equal(t, time.Unix(1, 0), <-tk.C())
}
