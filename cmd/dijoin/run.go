package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strconv"
	"time"

	"golang.org/x/sync/errgroup"

	"ditools/internal/config"
	"ditools/internal/delimited"
	"ditools/internal/join"
	"ditools/internal/metrics"
	"ditools/internal/storage"
)

// Defaults used when neither the job file nor the environment sets a value.
const (
	defaultWorkers   = 1
	defaultBatchSize = 1000
)

// newRepositoryFn is the storage factory; tests replace it.
var newRepositoryFn = storage.New

// runJobs runs every job in f, at most Runtime.Workers at a time. The first
// failing job cancels the ones still running.
func runJobs(ctx context.Context, f config.File, verbose bool) error {
	rt := f.Runtime
	rt.Workers = pickInt(rt.Workers, getenvInt("DITOOLS_WORKERS", defaultWorkers))
	rt.BatchSize = pickInt(rt.BatchSize, getenvInt("DITOOLS_BATCH_SIZE", defaultBatchSize))
	if verbose {
		log.Printf("runtime: jobs=%d workers=%d batch=%d", len(f.Jobs), rt.Workers, rt.BatchSize)
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(rt.Workers)
	for _, job := range f.Jobs {
		g.Go(func() error {
			if err := runJob(ctx, job, rt); err != nil {
				return fmt.Errorf("job %s: %w", job.Name, err)
			}
			return nil
		})
	}
	return g.Wait()
}

// jobStats is what one job run reports.
type jobStats struct {
	joined, dropped, skipped int64
	written                  int64
}

func runJob(ctx context.Context, job config.Job, rt config.Runtime) error {
	start := time.Now()
	st, err := joinJob(ctx, job, rt)
	metrics.RecordStep(job.Name, "run", err, time.Since(start))
	if err != nil {
		return err
	}

	metrics.RecordRows(job.Name, metrics.RowsRead, st.joined+st.dropped)
	metrics.RecordRows(job.Name, metrics.RowsJoined, st.joined)
	metrics.RecordRows(job.Name, metrics.RowsDropped, st.dropped)
	metrics.RecordRows(job.Name, metrics.RowsSkipped, st.skipped)
	metrics.RecordRows(job.Name, metrics.RowsWritten, st.written)
	log.Printf("job %s: joined=%d dropped=%d skipped=%d written=%d elapsed=%s",
		job.Name, st.joined, st.dropped, st.skipped, st.written, time.Since(start).Truncate(time.Millisecond))
	return nil
}

func joinJob(ctx context.Context, job config.Job, rt config.Runtime) (st jobStats, err error) {
	openStart := time.Now()
	readers, err := openSources(ctx, job)
	metrics.RecordStep(job.Name, "open", err, time.Since(openStart))
	if err != nil {
		return st, err
	}
	defer func() {
		for _, r := range readers {
			st.skipped += int64(r.Skipped())
		}
	}()

	secondaries := make([]join.Source, 0, len(readers)-1)
	for _, r := range readers[1:] {
		secondaries = append(secondaries, join.FromReader(r))
	}

	indexStart := time.Now()
	j, err := join.New(join.FromReader(readers[0]), secondaries, job.KeyColumns)
	metrics.RecordStep(job.Name, "index", err, time.Since(indexStart))
	if err != nil {
		return st, err
	}
	defer j.Close()

	out, err := openSink(ctx, job, rt)
	if err != nil {
		return st, err
	}

	writeStart := time.Now()
	for rec := range j.All() {
		if err = out.Write(rec); err != nil {
			break
		}
	}
	if err == nil {
		err = j.Err()
	}
	written, cerr := out.Close()
	st.written = written
	if err == nil {
		err = cerr
	}
	metrics.RecordStep(job.Name, "write", err, time.Since(writeStart))

	st.joined = int64(j.Emitted())
	st.dropped = int64(j.Dropped())
	return st, err
}

// openSources opens the primary followed by every secondary. On failure the
// readers already opened are closed.
func openSources(ctx context.Context, job config.Job) ([]*delimited.Reader, error) {
	srcs := append([]config.Source{job.Primary}, job.Secondaries...)
	readers := make([]*delimited.Reader, 0, len(srcs))
	for i, s := range srcs {
		r, err := openSource(ctx, s)
		if err != nil {
			for _, o := range readers {
				o.Close()
			}
			name := "primary"
			if i > 0 {
				name = fmt.Sprintf("secondary %d", i-1)
			}
			return nil, fmt.Errorf("open %s: %w", name, err)
		}
		readers = append(readers, r)
	}
	return readers, nil
}

func openSource(ctx context.Context, s config.Source) (*delimited.Reader, error) {
	opt := delimited.OptionsFrom(s.Options)
	switch s.Kind {
	case config.SourceDicted:
		return delimited.Open(ctx, s.Dict, s.Data, opt)
	case config.SourceHeader:
		return delimited.OpenWithHeader(ctx, s.Data, opt)
	case config.SourceDB:
		return openDBSource(ctx, s, opt)
	}
	return nil, fmt.Errorf("unsupported source kind=%s", s.Kind)
}

// openDBSource runs the source query and reads its rows through the
// dictionary. Result columns are joined with storage.FieldSeparator, so that
// is the delimiter whatever the options say.
func openDBSource(ctx context.Context, s config.Source, opt delimited.Options) (*delimited.Reader, error) {
	dict, err := delimited.LoadDict(ctx, s.Dict, opt)
	if err != nil {
		return nil, err
	}
	repo, err := newRepositoryFn(ctx, storage.Config{Kind: s.DB.Kind, DSN: s.DB.DSN})
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	lines, err := repo.Query(ctx, s.DB.Query)
	if err != nil {
		repo.Close()
		return nil, err
	}
	opt.Delimiter = storage.FieldSeparator
	return delimited.New(dict, &repoLines{Lines: lines, repo: repo}, opt), nil
}

// repoLines closes the repository together with its result lines.
type repoLines struct {
	*storage.Lines
	repo storage.Repository
}

func (l *repoLines) Close() error {
	err := l.Lines.Close()
	l.repo.Close()
	return err
}

func getenvInt(k string, def int) int {
	if v := os.Getenv(k); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			return n
		}
		log.Printf("ignoring %s=%q: not a positive integer", k, v)
	}
	return def
}

func pickInt(a, b int) int {
	if a > 0 {
		return a
	}
	return b
}
