package worker_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/shpitdev/seomerge/pkg/pipeline/worker"
)

func TestProcessAll_KeepsSubmissionOrder(t *testing.T) {
	t.Parallel()

	fn := func(_ context.Context, name string) (string, error) {
		if name == "a.csv" {
			time.Sleep(20 * time.Millisecond)
		}
		return name + ":ok", nil
	}

	out, err := worker.ProcessAll(context.Background(), []string{"a.csv", "b.csv", "c.csv"}, fn, worker.Options{Workers: 3})
	require.NoError(t, err)
	require.Len(t, out, 3)
	for i, want := range []string{"a.csv:ok", "b.csv:ok", "c.csv:ok"} {
		assert.Equal(t, i, out[i].Index)
		assert.Equal(t, want, out[i].Output)
		assert.NoError(t, out[i].Err)
	}
}

func TestProcessAll_PartialOutputRecordsErrors(t *testing.T) {
	t.Parallel()

	fn := func(_ context.Context, name string) (string, error) {
		if name == "broken.csv" {
			return "", errors.New("malformed")
		}
		return name, nil
	}

	out, err := worker.ProcessAll(context.Background(), []string{"good.csv", "broken.csv"}, fn, worker.Options{
		Workers:       2,
		FailurePolicy: worker.FailurePolicyPartialOutput,
	})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.NoError(t, out[0].Err)
	assert.EqualError(t, out[1].Err, "malformed")
}

func TestProcessAll_BoundsConcurrency(t *testing.T) {
	t.Parallel()

	var inFlight, peak atomic.Int32
	fn := func(_ context.Context, _ int) (int, error) {
		n := inFlight.Add(1)
		for {
			p := peak.Load()
			if n <= p || peak.CompareAndSwap(p, n) {
				break
			}
		}
		time.Sleep(5 * time.Millisecond)
		inFlight.Add(-1)
		return 0, nil
	}

	items := make([]int, 12)
	_, err := worker.ProcessAll(context.Background(), items, fn, worker.Options{Workers: 3})
	require.NoError(t, err)
	assert.LessOrEqual(t, peak.Load(), int32(3))
}

func TestProcessAll_FailFastStops(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	calls := 0

	fn := func(_ context.Context, name string) (string, error) {
		mu.Lock()
		calls++
		mu.Unlock()

		if name == "bad.csv" {
			return "", errors.New("boom")
		}
		t.Errorf("unexpected call for %q", name)
		return "", nil
	}

	out, err := worker.ProcessAll(context.Background(), []string{"bad.csv", "good.csv"}, fn, worker.Options{
		Workers:       1,
		FailurePolicy: worker.FailurePolicyFailFast,
	})
	require.EqualError(t, err, "boom")
	assert.Nil(t, out)

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestProcessAll_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := worker.ProcessAll(ctx, []string{"a.csv"}, func(_ context.Context, s string) (string, error) {
		return s, nil
	}, worker.Options{Workers: 1})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestProcessAllWithCallback_CompletesInCompletionOrder(t *testing.T) {
	t.Parallel()

	releaseSlow := make(chan struct{})
	startedSlow := make(chan struct{})

	fn := func(_ context.Context, name string) (string, error) {
		if name == "slow.csv" {
			close(startedSlow)
			<-releaseSlow
		}
		return name, nil
	}

	var seen []string
	doneErr := make(chan error, 1)
	go func() {
		_, err := worker.ProcessAllWithCallback(
			context.Background(),
			[]string{"slow.csv", "fast.csv"},
			fn,
			func(res worker.Result[string, string]) error {
				seen = append(seen, res.Input)
				if res.Input == "fast.csv" {
					close(releaseSlow)
				}
				return nil
			},
			worker.Options{Workers: 2},
		)
		doneErr <- err
	}()

	select {
	case <-startedSlow:
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for slow task to start")
	}

	select {
	case err := <-doneErr:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for completion")
	}

	assert.Equal(t, []string{"fast.csv", "slow.csv"}, seen)
}

func TestProcessAllWithCallback_CallbackErrorStopsRun(t *testing.T) {
	t.Parallel()

	callbackErr := errors.New("callback failed")
	_, err := worker.ProcessAllWithCallback(
		context.Background(),
		[]string{"a.csv"},
		func(_ context.Context, name string) (string, error) {
			return name, nil
		},
		func(worker.Result[string, string]) error {
			return callbackErr
		},
		worker.Options{Workers: 1},
	)
	assert.ErrorIs(t, err, callbackErr)
}
