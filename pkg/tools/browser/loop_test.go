package browser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestLoopRunsTasksInOrder(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := newLoop()
	var got []int
	for i := 0; i < 5; i++ {
		i := i
		assert.True(t, l.do(func() { got = append(got, i) }))
	}
	l.stop()

	assert.Equal(t, []int{0, 1, 2, 3, 4}, got)
}

func TestLoopPanicReachesCaller(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := newLoop()
	defer l.stop()

	assert.PanicsWithValue(t, "driver exploded", func() {
		l.do(func() { panic("driver exploded") })
	})

	// The loop survives a panicking task.
	ran := false
	assert.True(t, l.do(func() { ran = true }))
	assert.True(t, ran)
}

func TestLoopRejectsTasksAfterStop(t *testing.T) {
	defer goleak.VerifyNone(t)

	l := newLoop()
	l.stop()
	l.stop()

	ran := false
	assert.False(t, l.do(func() { ran = true }))
	assert.False(t, ran)
}
