package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"sync"

	"ditools/internal/codec"
	"ditools/internal/config"
	"ditools/internal/join"
	"ditools/internal/metrics"
	"ditools/internal/storage"
)

// sink receives joined records. Close reports how many were written.
type sink interface {
	Write(rec join.Record) error
	Close() (int64, error)
}

// stdout is shared by jobs running at once; every line goes out in a single
// Write so lines from different jobs never interleave.
var stdout io.Writer = &lockedWriter{w: os.Stdout}

type lockedWriter struct {
	mu sync.Mutex
	w  io.Writer
}

func (l *lockedWriter) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.w.Write(p)
}

func openSink(ctx context.Context, job config.Job, rt config.Runtime) (sink, error) {
	o := job.Output
	switch o.Kind {
	case config.OutputTSV:
		lo, err := openLines(o.Path)
		if err != nil {
			return nil, err
		}
		s := &tsvSink{lineOutput: lo, columns: o.Columns}
		if err := s.writeLine(strings.Join(o.Columns, "\t")); err != nil {
			lo.Close()
			return nil, err
		}
		s.n = 0
		return s, nil
	case config.OutputEncoded:
		lo, err := openLines(o.Path)
		if err != nil {
			return nil, err
		}
		return &encodedSink{lineOutput: lo}, nil
	case config.OutputDB:
		return openDBSink(ctx, job, rt)
	}
	return nil, fmt.Errorf("unsupported output kind=%s", o.Kind)
}

// lineOutput writes newline-terminated lines to a file or stdout.
type lineOutput struct {
	w    io.Writer
	buf  *bufio.Writer
	f    *os.File
	n    int64
	line []byte
}

// openLines opens path for writing; "" and "-" mean stdout.
func openLines(path string) (*lineOutput, error) {
	if path == "" || path == "-" {
		return &lineOutput{w: stdout}, nil
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create output: %w", err)
	}
	buf := bufio.NewWriterSize(f, 1<<16)
	return &lineOutput{w: buf, buf: buf, f: f}, nil
}

func (o *lineOutput) writeLine(s string) error {
	o.line = append(append(o.line[:0], s...), '\n')
	if _, err := o.w.Write(o.line); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	o.n++
	return nil
}

func (o *lineOutput) Close() (int64, error) {
	if o.f == nil {
		return o.n, nil
	}
	err := o.buf.Flush()
	if cerr := o.f.Close(); err == nil {
		err = cerr
	}
	if err != nil {
		return o.n, fmt.Errorf("close output: %w", err)
	}
	return o.n, nil
}

// tsvSink writes a header line of the output columns, then one tab-separated
// line per record in column order.
type tsvSink struct {
	*lineOutput
	columns []string
	fields  []string
}

func (s *tsvSink) Write(rec join.Record) error {
	s.fields = s.fields[:0]
	for _, c := range s.columns {
		v, err := rec.Get(c)
		if err != nil {
			return fmt.Errorf("output column %q: %w", c, err)
		}
		s.fields = append(s.fields, v)
	}
	return s.writeLine(strings.Join(s.fields, "\t"))
}

// encodedSink writes each record as one encoded map of strings.
type encodedSink struct {
	*lineOutput
}

func (s *encodedSink) Write(rec join.Record) error {
	line, err := encodeRecord(rec)
	if err != nil {
		return err
	}
	return s.writeLine(line)
}

func encodeRecord(rec join.Record) (string, error) {
	m := make(map[string]codec.Value, len(rec))
	for k, v := range rec {
		m[k] = codec.Str(v)
	}
	return codec.Encode(codec.StrMap(m))
}

// dbSink hands rows to storage.LoadBatches running in its own goroutine.
type dbSink struct {
	job     string
	repo    storage.Repository
	columns []string
	cancel  context.CancelFunc

	in   chan []any
	done chan struct{}

	// set by the loader goroutine before done is closed
	stats storage.LoadStats
	err   error
}

func openDBSink(ctx context.Context, job config.Job, rt config.Runtime) (*dbSink, error) {
	o := job.Output
	cfg := storage.Config{Kind: o.DB.Kind, DSN: o.DB.DSN, Table: o.DB.Table, Columns: o.Columns}
	repo, err := newRepositoryFn(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("init repo: %w", err)
	}
	if o.DB.CreateTable {
		if err := storage.EnsureTable(ctx, repo, cfg); err != nil {
			repo.Close()
			return nil, fmt.Errorf("apply DDL: %w", err)
		}
		log.Printf("job %s: table ensured: %s", job.Name, o.DB.Table)
	}

	ctx, cancel := context.WithCancel(ctx)
	s := &dbSink{
		job:     job.Name,
		repo:    repo,
		columns: o.Columns,
		cancel:  cancel,
		in:      make(chan []any, rt.BatchSize),
		done:    make(chan struct{}),
	}
	go func() {
		defer close(s.done)
		s.stats, s.err = storage.LoadBatches(ctx, o.Columns, s.in, rt.BatchSize, repo.CopyFrom, nil)
		if s.err != nil {
			cancel()
		}
	}()
	return s, nil
}

func (s *dbSink) Write(rec join.Record) error {
	row := make([]any, len(s.columns))
	for i, c := range s.columns {
		v, err := rec.Get(c)
		if err != nil {
			return fmt.Errorf("output column %q: %w", c, err)
		}
		row[i] = v
	}
	select {
	case s.in <- row:
		return nil
	case <-s.done:
		if s.err != nil {
			return s.err
		}
		return fmt.Errorf("loader stopped")
	}
}

// Close waits for the loader to write what is buffered.
func (s *dbSink) Close() (int64, error) {
	close(s.in)
	<-s.done
	s.cancel()
	s.repo.Close()
	metrics.RecordBatches(s.job, s.stats.Batches)
	return s.stats.Rows, s.err
}
