package worker

import (
	"context"
	"fmt"
	"runtime"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewPool_Concurrency(t *testing.T) {
	tests := []struct {
		name string
		in   int
		want int
	}{
		{"zero uses cpus", 0, runtime.NumCPU()},
		{"negative uses cpus", -1, runtime.NumCPU()},
		{"explicit", 4, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewPool[string, int](tt.in).Concurrency())
		})
	}
}

func TestProcess_Empty(t *testing.T) {
	p := NewPool[string, string](2)
	results := p.Process(context.Background(), nil, func(_ context.Context, s string) (string, error) {
		return s, nil
	})
	assert.Nil(t, results)
}

func TestProcess_PreservesOrder(t *testing.T) {
	p := NewPool[string, string](4)
	items := []string{"docs/a.md", "docs/b.md", "docs/c.md", "docs/d.md", "docs/e.md", "docs/f.md"}

	results := p.Process(context.Background(), items, func(_ context.Context, s string) (string, error) {
		return "parsed:" + s, nil
	})

	require.Len(t, results, len(items))
	for i, r := range results {
		assert.NoError(t, r.Err)
		assert.Equal(t, i, r.Index)
		assert.Equal(t, "parsed:"+items[i], r.Value)
	}
}

func TestProcess_CapturesErrors(t *testing.T) {
	p := NewPool[string, int](2)
	items := []string{"ok", "fail", "ok", "fail"}

	results := p.Process(context.Background(), items, func(_ context.Context, s string) (int, error) {
		if s == "fail" {
			return 0, fmt.Errorf("failed on %s", s)
		}
		return 1, nil
	})

	require.Len(t, results, 4)
	assert.NoError(t, results[0].Err)
	assert.Equal(t, 1, results[0].Value)
	assert.Error(t, results[1].Err)
	assert.NoError(t, results[2].Err)
	assert.Error(t, results[3].Err)
}

func TestProcess_RunsConcurrently(t *testing.T) {
	p := NewPool[int, int](4)
	items := make([]int, 20)
	for i := range items {
		items[i] = i
	}

	var current, peak int64
	results := p.Process(context.Background(), items, func(_ context.Context, n int) (int, error) {
		c := atomic.AddInt64(&current, 1)
		for {
			old := atomic.LoadInt64(&peak)
			if c <= old || atomic.CompareAndSwapInt64(&peak, old, c) {
				break
			}
		}
		time.Sleep(10 * time.Millisecond)
		atomic.AddInt64(&current, -1)
		return n * 2, nil
	})

	require.Len(t, results, 20)
	assert.Equal(t, 38, results[19].Value)
	assert.GreaterOrEqual(t, atomic.LoadInt64(&peak), int64(2))
	assert.LessOrEqual(t, atomic.LoadInt64(&peak), int64(4))
}

func TestProcess_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	var calls int64
	p := NewPool[string, string](2)
	results := p.Process(ctx, []string{"a", "b", "c"}, func(_ context.Context, s string) (string, error) {
		atomic.AddInt64(&calls, 1)
		return s, nil
	})

	require.Len(t, results, 3)
	for _, r := range results {
		assert.ErrorIs(t, r.Err, context.Canceled)
	}
	assert.Zero(t, atomic.LoadInt64(&calls))
}

func BenchmarkPoolProcess(b *testing.B) {
	items := make([]string, 100)
	for i := range items {
		items[i] = fmt.Sprintf("item-%d", i)
	}
	b.ResetTimer()
	for range b.N {
		p := NewPool[string, string](4)
		_ = p.Process(context.Background(), items, func(_ context.Context, s string) (string, error) {
			return s + "-done", nil
		})
	}
}
