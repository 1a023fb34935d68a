package storage

import (
	"errors"
	"io"
	"testing"
)

func fakeLines(rows [][]string, iterErr error) (*Lines, *int) {
	i := -1
	closed := 0
	return NewLines(
		func() bool { i++; return i < len(rows) },
		func() ([]string, error) { return rows[i], nil },
		func() error { return iterErr },
		func() error { closed++; return nil },
	), &closed
}

func TestLines_JoinsColumns(t *testing.T) {
	t.Parallel()

	l, closed := fakeLines([][]string{{"1", "Ann"}, {"2", ""}}, nil)
	for _, want := range []string{"1\tAnn", "2\t"} {
		got, err := l.NextLine()
		if err != nil || got != want {
			t.Fatalf("NextLine() = %q, %v; want %q", got, err, want)
		}
	}
	if _, err := l.NextLine(); err != io.EOF {
		t.Fatalf("NextLine() at end = %v, want io.EOF", err)
	}
	if *closed != 1 {
		t.Fatalf("closed = %d after exhaustion, want 1", *closed)
	}
	l.Close()
	if *closed != 1 {
		t.Fatalf("Close() after exhaustion closed again")
	}
}

func TestLines_IterationError(t *testing.T) {
	t.Parallel()

	boom := errors.New("connection reset")
	l, closed := fakeLines(nil, boom)
	if _, err := l.NextLine(); !errors.Is(err, boom) {
		t.Fatalf("NextLine() = %v, want %v", err, boom)
	}
	if *closed != 1 {
		t.Fatalf("cursor not closed after error")
	}
}
