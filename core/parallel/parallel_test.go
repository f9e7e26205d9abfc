package parallel

import (
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestParallelize_CoversEveryItemOnce(t *testing.T) {
	const n = 1000
	var hits [n]int32
	Parallelize(n, func(start, end int) {
		for i := start; i < end; i++ {
			atomic.AddInt32(&hits[i], 1)
		}
	})
	for i, h := range hits {
		assert.Equal(t, int32(1), h, "item %d", i)
	}
}

func TestParallelize_Zero(t *testing.T) {
	called := false
	Parallelize(0, func(start, end int) { called = true })
	assert.False(t, called)
}

func TestParallelizeWithThreshold_Sequential(t *testing.T) {
	var calls int32
	ParallelizeWithThreshold(5, 10, func(start, end int) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, 0, start)
		assert.Equal(t, 5, end)
	})
	assert.Equal(t, int32(1), calls)
}

func TestParallelizeErr(t *testing.T) {
	boom := errors.New("boom")
	err := ParallelizeErr(10, 5, func(start, end int) error {
		if start >= 4 {
			return errors.New("later")
		}
		if start >= 2 {
			return boom
		}
		return nil
	})
	assert.Equal(t, boom, err, "the lowest failing range wins")

	assert.NoError(t, ParallelizeErr(3, 8, func(start, end int) error { return nil }))
}
