package delimited

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"iter"
	"strings"

	"ditools/internal/coldict"
	"ditools/internal/datasource"
	"ditools/internal/datasource/file"
	"ditools/internal/datasource/httpds"
)

// LineSource yields lines one at a time. NextLine returns io.EOF (and no
// line) once input is exhausted. Trailing "\r\n" on a line is allowed.
type LineSource interface {
	NextLine() (string, error)
}

// LineFunc adapts a function to LineSource.
type LineFunc func() (string, error)

// NextLine calls f.
func (f LineFunc) NextLine() (string, error) { return f() }

// Lines returns a LineSource over a fixed slice of lines.
func Lines(lines ...string) LineSource {
	i := 0
	return LineFunc(func() (string, error) {
		if i >= len(lines) {
			return "", io.EOF
		}
		i++
		return lines[i-1], nil
	})
}

// bufLines reads '\n'-terminated lines; a final line without newline is
// still returned.
type bufLines struct{ br *bufio.Reader }

func (b bufLines) NextLine() (string, error) {
	line, err := b.br.ReadString('\n')
	if err == io.EOF && line != "" {
		return line, nil
	}
	return line, err
}

// Reader iterates the well-formed rows of a delimited source. It is
// forward-only and not safe for concurrent use; reopen the source to read it
// again.
type Reader struct {
	dict   *coldict.Dict
	src    LineSource
	closer io.Closer

	strip bool
	delim string

	cur     *Accessor
	lineNo  int
	skipped int
	done    bool
	err     error
}

// New reads lines from src through dict. If src implements io.Closer it is
// closed when the reader finishes or is closed.
func New(dict *coldict.Dict, src LineSource, opt Options) *Reader {
	r := &Reader{
		dict:  dict,
		src:   src,
		strip: opt.Strip,
		delim: opt.delimiter(),
	}
	if c, ok := src.(io.Closer); ok {
		r.closer = c
	}
	return r
}

// Open reads the data file at dataPath through the dictionary file at
// dictPath.
func Open(ctx context.Context, dictPath, dataPath string, opt Options) (*Reader, error) {
	dict, err := loadDict(ctx, dictPath, opt)
	if err != nil {
		return nil, err
	}
	br, closer, err := openData(ctx, dataPath, opt)
	if err != nil {
		return nil, err
	}
	r := New(dict, bufLines{br: br}, opt)
	r.closer = closer
	return r, nil
}

// OpenWithHeader reads the data file at dataPath whose first line holds the
// column names.
func OpenWithHeader(ctx context.Context, dataPath string, opt Options) (*Reader, error) {
	br, closer, err := openData(ctx, dataPath, opt)
	if err != nil {
		return nil, err
	}
	header, err := br.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		closer.Close()
		return nil, fmt.Errorf("read header %s: %w", dataPath, err)
	}
	r := New(coldict.FromHeader(header, opt.delimiter()), bufLines{br: br}, opt)
	r.closer = closer
	return r, nil
}

// LoadDict reads the dictionary at path, which may be a local file or an
// http(s) URL.
func LoadDict(ctx context.Context, path string, opt Options) (*coldict.Dict, error) {
	return loadDict(ctx, path, opt)
}

func loadDict(ctx context.Context, path string, opt Options) (*coldict.Dict, error) {
	if !httpds.IsURL(path) {
		p, err := datasource.ResolvePath(opt.Resolver, path)
		if err != nil {
			return nil, err
		}
		return coldict.Load(p)
	}
	rc, err := sourceFor(path, opt).Open(ctx)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	b, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("coldict: read %s: %w", path, err)
	}
	return coldict.Parse(string(b)), nil
}

// sourceFor picks the byte source for a file name: http(s) URLs are fetched,
// everything else is a local file.
func sourceFor(path string, opt Options) datasource.Source {
	if httpds.IsURL(path) {
		return httpds.NewRemote(opt.HTTP, path)
	}
	return file.NewLocal(path).WithResolver(opt.Resolver)
}

func openData(ctx context.Context, path string, opt Options) (*bufio.Reader, io.Closer, error) {
	rc, err := sourceFor(path, opt).Open(ctx)
	if err != nil {
		return nil, nil, err
	}
	dr, err := decodeReader(rc, opt.Encoding)
	if err != nil {
		rc.Close()
		return nil, nil, err
	}
	return bufio.NewReader(dr), rc, nil
}

// Next advances to the next well-formed row. It returns false at the first
// empty line, at end of input, or on a read error (see Err).
func (r *Reader) Next() bool {
	if r.done {
		return false
	}
	for {
		line, err := r.src.NextLine()
		if err != nil {
			if !errors.Is(err, io.EOF) {
				r.err = fmt.Errorf("delimited: after line %d: %w", r.lineNo, err)
			}
			r.finish()
			return false
		}
		line = strings.TrimRight(line, "\r\n")
		if line == "" {
			r.finish()
			return false
		}
		r.lineNo++

		fields := strings.Split(line, r.delim)
		if r.strip {
			for i, f := range fields {
				fields[i] = strings.TrimSpace(f)
			}
		}
		if len(fields) != r.dict.Len() {
			r.skipped++
			continue
		}
		r.cur = &Accessor{dict: r.dict, fields: fields}
		return true
	}
}

// Row returns the current row; nil before the first Next or after the end.
func (r *Reader) Row() *Accessor { return r.cur }

// Err returns the first read or close error, if any.
func (r *Reader) Err() error { return r.err }

// All ranges over the remaining rows. Check Err afterwards.
func (r *Reader) All() iter.Seq[*Accessor] {
	return func(yield func(*Accessor) bool) {
		for r.Next() {
			if !yield(r.cur) {
				return
			}
		}
	}
}

// Dict returns the dictionary rows are read through.
func (r *Reader) Dict() *coldict.Dict { return r.dict }

// LineNo returns the number of non-empty lines consumed so far, including
// skipped ones.
func (r *Reader) LineNo() int { return r.lineNo }

// Skipped returns how many lines were dropped for having the wrong number of
// fields.
func (r *Reader) Skipped() int { return r.skipped }

// Close releases the underlying source. It is safe to call more than once and
// after the reader has finished on its own.
func (r *Reader) Close() error {
	r.done = true
	r.cur = nil
	if r.closer == nil {
		return nil
	}
	err := r.closer.Close()
	r.closer = nil
	return err
}

func (r *Reader) finish() {
	if err := r.Close(); err != nil && r.err == nil {
		r.err = fmt.Errorf("delimited: close: %w", err)
	}
}
