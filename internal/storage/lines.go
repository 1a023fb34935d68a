package storage

import (
	"database/sql"
	"fmt"
	"io"
	"strings"
)

// FieldSeparator joins the columns of a result row into one line.
const FieldSeparator = "\t"

// Lines turns a query result into a stream of lines: every row becomes its
// columns, rendered as text and joined by FieldSeparator. NULL renders as the
// empty string. A row whose line is empty ends a delimited reader, exactly
// like a blank line in a file.
//
// Lines satisfies delimited.LineSource and io.Closer.
type Lines struct {
	next  func() bool
	scan  func() ([]string, error)
	err   func() error
	close func() error

	done bool
}

// NewLines builds Lines from cursor callbacks. Backends without database/sql
// use it to wrap their native row types.
func NewLines(next func() bool, scan func() ([]string, error), errFn func() error, closeFn func() error) *Lines {
	return &Lines{next: next, scan: scan, err: errFn, close: closeFn}
}

// SQLLines wraps rows from database/sql.
func SQLLines(rows *sql.Rows) (*Lines, error) {
	cols, err := rows.Columns()
	if err != nil {
		rows.Close()
		return nil, fmt.Errorf("columns: %w", err)
	}
	vals := make([]sql.NullString, len(cols))
	ptrs := make([]any, len(cols))
	for i := range vals {
		ptrs[i] = &vals[i]
	}
	scan := func() ([]string, error) {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}
		out := make([]string, len(vals))
		for i, v := range vals {
			out[i] = v.String
		}
		return out, nil
	}
	return NewLines(rows.Next, scan, rows.Err, rows.Close), nil
}

// NextLine returns the next row as a line, or io.EOF after the last one.
func (l *Lines) NextLine() (string, error) {
	if l.done {
		return "", io.EOF
	}
	if !l.next() {
		err := l.err()
		l.Close()
		if err != nil {
			return "", err
		}
		return "", io.EOF
	}
	fields, err := l.scan()
	if err != nil {
		return "", fmt.Errorf("scan: %w", err)
	}
	return strings.Join(fields, FieldSeparator), nil
}

// Close releases the cursor. It is safe to call more than once.
func (l *Lines) Close() error {
	if l.done {
		return nil
	}
	l.done = true
	if l.close == nil {
		return nil
	}
	return l.close()
}
