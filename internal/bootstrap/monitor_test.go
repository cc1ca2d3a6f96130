package bootstrap

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestWatchProcessShutsDownAfterHostExit(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var ticks atomic.Int32
	running := func() bool { return ticks.Add(1) < 3 }

	go watchProcess(ctx, cancel, 5*time.Millisecond, running, zerolog.Nop())

	select {
	case <-ctx.Done():
	case <-time.After(2 * time.Second):
		t.Fatal("context was not cancelled after host exit")
	}
}

func TestWatchProcessWaitsForFirstSighting(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	running := func() bool { return false }
	go watchProcess(ctx, cancel, 5*time.Millisecond, running, zerolog.Nop())

	time.Sleep(100 * time.Millisecond)
	assert.NoError(t, ctx.Err(), "never-seen host must not trigger shutdown")
}
