package clock

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2025, 3, 10, 1, 0, 0, 0, time.UTC)

func TestFake_NowStandsStill(t *testing.T) {
	c := Fake(epoch)
	assert.Equal(t, epoch, c.Now())

	c.Advance(90 * time.Minute)
	assert.Equal(t, epoch.Add(90*time.Minute), c.Now())
}

func TestFake_AfterFiresOnAdvance(t *testing.T) {
	c := Fake(epoch)
	ch := c.After(time.Hour)
	require.Equal(t, 1, c.PendingCount())

	c.Advance(59 * time.Minute)
	select {
	case <-ch:
		t.Fatal("fired early")
	default:
	}

	c.Advance(time.Minute)
	select {
	case got := <-ch:
		assert.Equal(t, epoch.Add(time.Hour), got)
	default:
		t.Fatal("did not fire")
	}
	assert.Equal(t, 0, c.PendingCount())
}

func TestFake_AfterNonPositiveFiresImmediately(t *testing.T) {
	c := Fake(epoch)
	select {
	case got := <-c.After(0):
		assert.Equal(t, epoch, got)
	default:
		t.Fatal("did not fire")
	}
}

func TestFake_WaitForWaiters(t *testing.T) {
	c := Fake(epoch)

	done := make(chan struct{})
	go func() {
		c.WaitForWaiters(1)
		close(done)
	}()

	c.After(time.Second)
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("WaitForWaiters did not return")
	}
}

func TestFake_SetBackwardsPanics(t *testing.T) {
	c := Fake(epoch)
	assert.Panics(t, func() { c.Set(epoch.Add(-time.Hour)) })
}

func TestReal(t *testing.T) {
	before := time.Now()
	assert.False(t, Real().Now().Before(before))
}
