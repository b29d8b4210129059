package cputime_test

import (
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"codeberg.org/mutker/poolctl/cputime"
)

func TestWallSource(t *testing.T) {
	src := cputime.WallSource{}

	d, ok := src.ThreadTime()
	assert.False(t, ok, "Expected the wall fallback to report no thread time")
	assert.Zero(t, d)
	assert.False(t, src.Precise())
}

func TestDefaultSource(t *testing.T) {
	src := cputime.Default()
	require.NotNil(t, src)

	if runtime.GOOS != "linux" {
		assert.False(t, src.Precise())
		return
	}

	assert.True(t, src.Precise(), "Expected a thread clock on linux")

	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	before, ok := src.ThreadTime()
	require.True(t, ok)

	// Burn some CPU so the thread clock has something to advance by.
	x := 0
	for i := 0; i < 1_000_000; i++ {
		x += i % 7
	}
	_ = x

	after, ok := src.ThreadTime()
	require.True(t, ok)
	assert.GreaterOrEqual(t, after, before, "Expected the thread clock to be monotonic")
	assert.Less(t, after-before, time.Minute, "Expected a plausible CPU time delta")
}
