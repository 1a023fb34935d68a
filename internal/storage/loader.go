package storage

import (
	"context"
	"fmt"
	"log"
	"time"
)

// CopyFn abstracts a backend's bulk insert. It inserts rows (aligned to
// columns) and returns how many were written. Repository.CopyFrom has this
// shape.
type CopyFn func(ctx context.Context, columns []string, rows [][]any) (int64, error)

// LoadStats summarises a LoadBatches run.
type LoadStats struct {
	Rows    int64 // rows reported written by CopyFn
	Batches int64 // successful CopyFn calls
}

// LoadBatches drains rows from in, groups them into batches of batchSize and
// calls copyFn once per non-empty batch. It returns when in is closed, on the
// first copy error, or when ctx is done; Rows always includes what earlier
// batches wrote.
//
// A progress line is logged to logger after every successful batch; a nil
// logger uses the standard logger.
func LoadBatches(
	ctx context.Context,
	columns []string,
	in <-chan []any,
	batchSize int,
	copyFn CopyFn,
	logger *log.Logger,
) (LoadStats, error) {
	var st LoadStats
	if batchSize <= 0 {
		return st, fmt.Errorf("batchSize must be > 0")
	}
	if copyFn == nil {
		return st, fmt.Errorf("copyFn must not be nil")
	}
	if logger == nil {
		logger = log.Default()
	}

	var (
		batch     = make([][]any, 0, batchSize)
		start     = time.Now()
		lastFlush = start
		lastRows  int64
	)

	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		n, err := copyFn(ctx, columns, batch)
		st.Rows += n
		batch = batch[:0]
		if err != nil {
			logger.Printf("loader: copy failed written=%d total=%d err=%v", n, st.Rows, err)
			return err
		}

		st.Batches++
		now := time.Now()
		since := now.Sub(lastFlush)
		rps := float64(0)
		if since > 0 {
			rps = float64(st.Rows-lastRows) / since.Seconds()
		}
		logger.Printf("loader: batch #%d rps=%.0f written=%d total=%d elapsed=%s",
			st.Batches, rps, n, st.Rows, now.Sub(start).Truncate(time.Millisecond))
		lastFlush = now
		lastRows = st.Rows
		return nil
	}

	for {
		select {
		case <-ctx.Done():
			return st, ctx.Err()

		case row, ok := <-in:
			if !ok {
				if err := flush(); err != nil {
					return st, err
				}
				return st, nil
			}
			batch = append(batch, row)
			if len(batch) >= batchSize {
				if err := flush(); err != nil {
					return st, err
				}
			}
		}
	}
}
