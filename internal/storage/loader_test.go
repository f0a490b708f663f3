package storage

import (
	"bytes"
	"context"
	"errors"
	"log"
	"strings"
	"testing"
)

func rowsOf(n int) [][]any {
	rows := make([][]any, n)
	for i := range rows {
		rows[i] = []any{int64(i), "x"}
	}
	return rows
}

// TestWriteBatches_Basic verifies rows are grouped into fixed-size batches in
// order and the total equals the sum of successful copyFn returns.
func TestWriteBatches_Basic(t *testing.T) {
	t.Parallel()

	var sizes []int
	var seen []int64
	copyFn := func(_ context.Context, cols []string, rows [][]any) (int64, error) {
		if len(cols) != 2 {
			t.Errorf("columns = %v", cols)
		}
		sizes = append(sizes, len(rows))
		for _, r := range rows {
			seen = append(seen, r[0].(int64))
		}
		return int64(len(rows)), nil
	}

	var logs bytes.Buffer
	total, err := WriteBatches(context.Background(), log.New(&logs, "", 0), nil, []string{"c1", "c2"}, rowsOf(7), 3, copyFn)
	if err != nil {
		t.Fatalf("WriteBatches error: %v", err)
	}
	if total != 7 {
		t.Fatalf("total rows %d, want 7", total)
	}
	if len(sizes) != 3 || sizes[0] != 3 || sizes[1] != 3 || sizes[2] != 1 {
		t.Fatalf("batch sizes %v, want [3 3 1]", sizes)
	}
	for i, v := range seen {
		if v != int64(i) {
			t.Fatalf("row order broken at %d: %d", i, v)
		}
	}
	if got := strings.Count(logs.String(), "batch #"); got != 3 {
		t.Fatalf("progress lines = %d, want 3", got)
	}
}

// TestWriteBatches_ErrorPropagation ensures the first copy error is returned
// and no later batch is attempted.
func TestWriteBatches_ErrorPropagation(t *testing.T) {
	t.Parallel()

	wantErr := errors.New("copy failed")
	var batches int
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		batches++
		if batches == 2 {
			return 0, wantErr
		}
		return int64(len(rows)), nil
	}

	total, err := WriteBatches(context.Background(), log.New(&bytes.Buffer{}, "", 0), nil, []string{"c"}, rowsOf(5), 2, copyFn)
	if !errors.Is(err, wantErr) {
		t.Fatalf("want error %v, got %v", wantErr, err)
	}
	if total != 2 {
		t.Fatalf("total rows %d, want 2", total)
	}
	if batches != 2 {
		t.Fatalf("batches %d, want 2", batches)
	}
}

func TestWriteBatches_InvalidArgs(t *testing.T) {
	t.Parallel()

	noop := func(context.Context, []string, [][]any) (int64, error) { return 0, nil }
	if _, err := WriteBatches(context.Background(), nil, nil, nil, nil, 0, noop); err == nil {
		t.Fatal("expected error for batchSize 0")
	}
	if _, err := WriteBatches(context.Background(), nil, nil, nil, nil, 1, nil); err == nil {
		t.Fatal("expected error for nil copyFn")
	}
}

// TestWriteBatches_ContextCanceled checks nothing is written once ctx is done.
func TestWriteBatches_ContextCanceled(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	copyFn := func(context.Context, []string, [][]any) (int64, error) {
		called = true
		return 0, nil
	}
	_, err := WriteBatches(ctx, nil, nil, []string{"c"}, rowsOf(3), 2, copyFn)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if called {
		t.Fatal("copyFn called after cancel")
	}
}

func TestWriteBatches_Empty(t *testing.T) {
	t.Parallel()

	total, err := WriteBatches(context.Background(), nil, nil, []string{"c"}, nil, 10, func(context.Context, []string, [][]any) (int64, error) {
		t.Error("copyFn called for empty input")
		return 0, nil
	})
	if err != nil || total != 0 {
		t.Fatalf("total=%d err=%v, want 0 nil", total, err)
	}
}

// TestWriteBatches_OnBatch checks the callback fires once per committed batch
// with that batch's row count, and not for a failed one.
func TestWriteBatches_OnBatch(t *testing.T) {
	t.Parallel()

	var got []int64
	calls := 0
	copyFn := func(_ context.Context, _ []string, rows [][]any) (int64, error) {
		calls++
		if calls == 4 {
			return 0, errors.New("boom")
		}
		return int64(len(rows)), nil
	}

	_, err := WriteBatches(context.Background(), log.New(&bytes.Buffer{}, "", 0), func(n int64) {
		got = append(got, n)
	}, []string{"c"}, rowsOf(10), 3, copyFn)
	if err == nil {
		t.Fatal("expected error from fourth batch")
	}
	if len(got) != 3 || got[0] != 3 || got[1] != 3 || got[2] != 3 {
		t.Fatalf("onBatch rows = %v, want [3 3 3]", got)
	}
}
