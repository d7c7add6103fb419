package retropal

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCoordinator() *Coordinator {
	return NewCoordinator(NewEngine(testLogger()), time.Millisecond, testLogger())
}

func quickRequest() Request {
	return Request{
		Pixels:  solidBuffer(1, 1, 182, 0, 0),
		Profile: Profile{Name: "test", TargetColors: 4},
	}
}

func TestCoordinatorSingleFlight(t *testing.T) {
	t.Parallel()

	c := testCoordinator()

	gate := make(chan struct{})
	blocked := quickRequest()
	blocked.Progress = func(int) { <-gate }

	keyA := c.Submit("a", blocked)
	keyB := c.Submit("b", quickRequest())
	keyC := c.Submit("c", quickRequest())
	close(gate)

	// a reports first, then exactly one more run for c; b was superseded
	// while a was in flight
	first := <-c.Outcomes()
	assert.Equal(t, keyA, first.Key)
	require.NotNil(t, first.Result)

	second := <-c.Outcomes()
	assert.Equal(t, keyC, second.Key)
	assert.NotEqual(t, keyB, second.Key)

	c.Close()
	_, ok := <-c.Outcomes()
	assert.False(t, ok)
}

func TestCoordinatorIdleSubmitSupersedesPending(t *testing.T) {
	t.Parallel()

	c := NewCoordinator(NewEngine(testLogger()), 50*time.Millisecond, testLogger())

	gate := make(chan struct{})
	blocked := quickRequest()
	blocked.Progress = func(int) { <-gate }

	keyA := c.Submit("a", blocked)
	keyB := c.Submit("b", quickRequest())
	close(gate)

	first := <-c.Outcomes()
	assert.Equal(t, keyA, first.Key)

	// b is waiting out the debounce; a fresh request must replace it,
	// not run after it
	time.Sleep(20 * time.Millisecond)
	resized := quickRequest()
	resized.TargetWidth = 2
	keyC := c.Submit("c", resized)

	second := <-c.Outcomes()
	assert.Equal(t, keyC, second.Key)
	assert.NotEqual(t, keyB, second.Key)

	c.Close()
	_, ok := <-c.Outcomes()
	assert.False(t, ok, "superseded request still ran")
}

func TestCoordinatorRepeatIsNoOp(t *testing.T) {
	t.Parallel()

	c := testCoordinator()
	defer c.Close()

	key := c.Submit("a", quickRequest())
	out := <-c.Outcomes()
	assert.Equal(t, key, out.Key)

	// Same key again right after completing: nothing should run, so the
	// next outcome belongs to b
	assert.Equal(t, key, c.Submit("a", quickRequest()))
	c.Submit("b", quickRequest())

	out = <-c.Outcomes()
	assert.NotEqual(t, key, out.Key)
	assert.Equal(t, "b", out.ID)
}

func TestCoordinatorForceReruns(t *testing.T) {
	t.Parallel()

	c := testCoordinator()
	defer c.Close()

	key := c.Submit("a", quickRequest())
	out := <-c.Outcomes()
	assert.Equal(t, key, out.Key)

	forced := quickRequest()
	forced.Force = true
	forcedKey := c.Submit("a", forced)
	assert.NotEqual(t, key, forcedKey)

	out = <-c.Outcomes()
	assert.Equal(t, forcedKey, out.Key)
	require.NotNil(t, out.Result)
}

func TestCoordinatorKeyFields(t *testing.T) {
	t.Parallel()

	c := testCoordinator()
	defer c.Close()

	base := quickRequest()

	resized := base
	resized.TargetWidth = 32

	other := base
	other.Profile = Profile{Name: "other", TargetColors: 4}

	keys := []uint64{
		c.key("a", base),
		c.key("b", base),
		c.key("a", resized),
		c.key("a", other),
	}
	for i, k := range keys {
		for j := i + 1; j < len(keys); j++ {
			assert.NotEqual(t, k, keys[j], "keys %d and %d collide", i, j)
		}
	}

	assert.Equal(t, c.key("a", base), c.key("a", base))
}

func TestCoordinatorCapturesPanic(t *testing.T) {
	t.Parallel()

	c := testCoordinator()
	defer c.Close()

	req := quickRequest()
	req.Progress = func(int) { panic("boom") }

	c.Submit("a", req)

	out := <-c.Outcomes()
	require.NotNil(t, out.Failure)
	assert.Nil(t, out.Result)
	assert.Contains(t, out.Failure.Message, "boom")
	assert.NotEmpty(t, out.Failure.Stack)
}

func TestCoordinatorReportsErrors(t *testing.T) {
	t.Parallel()

	c := testCoordinator()
	defer c.Close()

	c.Submit("a", Request{Profile: Profile{Name: "empty", TargetColors: 4}})

	out := <-c.Outcomes()
	require.NotNil(t, out.Failure)
	assert.Contains(t, out.Failure.Message, "no pixel buffer")
	assert.Empty(t, out.Failure.Stack)
}
