package main

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/google/go-cmp/cmp"

	"github.com/reach-rig/reach/pkg/loadcell"
)

// tickerClock reports when a ticker is created so the test only advances
// the mock once something is listening.
type tickerClock struct {
	*clock.Mock
	created chan struct{}
}

func (c *tickerClock) Ticker(d time.Duration) *clock.Ticker {
	t := c.Mock.Ticker(d)
	close(c.created)
	return t
}

func TestPrintForces_TicksOnClock(t *testing.T) {
	clk := &tickerClock{Mock: clock.NewMock(), created: make(chan struct{})}
	latest := func() []loadcell.Reading {
		return []loadcell.Reading{
			{Channel: 0, Force: 1.5},
			{Channel: 3, Force: -0.25},
		}
	}

	done := make(chan struct{})
	go func() {
		<-clk.created
		for {
			select {
			case <-done:
				return
			default:
				clk.Add(500 * time.Millisecond)
			}
		}
	}()

	var buf bytes.Buffer
	printForces(context.Background(), &buf, latest, clk, 500*time.Millisecond, 2)
	close(done)

	line := "LC1   1.5000   LC4  -0.2500\n"
	if diff := cmp.Diff(line+line, buf.String()); diff != "" {
		t.Errorf("output mismatch (-want +got):\n%s", diff)
	}
}

func TestPrintForces_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var buf bytes.Buffer
	printForces(ctx, &buf, func() []loadcell.Reading { return nil }, clock.NewMock(), time.Second, 0)
	if buf.Len() != 0 {
		t.Errorf("wrote %q after cancel", buf.String())
	}
}
