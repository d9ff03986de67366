package ratelimit

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestWaitAllowsWithinRate(t *testing.T) {
	l := New("test", 100)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	require.NoError(t, l.Wait(ctx))
	require.Equal(t, "test", l.Name())
}

func TestWaitHonorsCancelledContext(t *testing.T) {
	l := New("slow", 1)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	// Drain the initial burst so the next wait must block.
	_ = l.Wait(context.Background())

	err := l.Wait(ctx)
	require.Error(t, err)
	require.Contains(t, err.Error(), "slow")
}
