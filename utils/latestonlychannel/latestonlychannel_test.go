package latestonlychannel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWrapBlocksWhenEmpty(t *testing.T) {
	inputCh := make(chan int)
	outputCh := Wrap(context.Background(), inputCh)

	select {
	case <-outputCh:
		t.Fatalf("should have blocked")
	case <-time.After(10 * time.Millisecond):
	}

	close(inputCh)
	_, ok := <-outputCh
	assert.False(t, ok)
}

func TestWrapSingle(t *testing.T) {
	inputCh := make(chan int)
	outputCh := Wrap(context.Background(), inputCh)

	inputCh <- 1
	assert.Equal(t, 1, <-outputCh)

	inputCh <- 2
	assert.Equal(t, 2, <-outputCh)

	close(inputCh)
	_, ok := <-outputCh
	assert.False(t, ok)
}

func TestWrapKeepsLatest(t *testing.T) {
	inputCh := make(chan int)
	outputCh := Wrap(context.Background(), inputCh)

	// unbuffered sends complete only once the pipe has taken the value, so
	// all three have been seen before the first read
	inputCh <- 1
	inputCh <- 2
	inputCh <- 3
	assert.Equal(t, 3, <-outputCh)

	inputCh <- 4
	inputCh <- 5
	close(inputCh)

	// the pending value survives the input closing
	assert.Equal(t, 5, <-outputCh)
	_, ok := <-outputCh
	assert.False(t, ok)
}

func TestWrapStopsOnContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	inputCh := make(chan int)
	outputCh := Wrap(ctx, inputCh)

	inputCh <- 1
	cancel()

	timeout := time.After(5 * time.Second)
	for {
		select {
		case _, ok := <-outputCh:
			if !ok {
				return
			}
		case <-timeout:
			require.FailNow(t, "output was not closed after cancel")
		}
	}
}
