package delimited

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"ditools/internal/coldict"
	"ditools/internal/config"
	"ditools/internal/datasource"
)

func writeFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	if err := os.WriteFile(p, []byte(contents), 0o644); err != nil {
		t.Fatalf("WriteFile(%s): %v", name, err)
	}
	return p
}

// collectNames drains r and returns the "name" column of every row.
func collectNames(t *testing.T, r *Reader) []string {
	t.Helper()
	var out []string
	for r.Next() {
		v, err := r.Row().Get("name")
		if err != nil {
			t.Fatalf("Get(name): %v", err)
		}
		out = append(out, v)
	}
	if err := r.Err(); err != nil {
		t.Fatalf("Err(): %v", err)
	}
	return out
}

func TestReader_CaseInsensitiveLookup(t *testing.T) {
	t.Parallel()

	r := New(coldict.New("name", "age"), Lines("Alice\t30"), Options{})
	if !r.Next() {
		t.Fatalf("Next() = false, want a row")
	}
	row := r.Row()
	if v, err := row.Get("Name"); err != nil || v != "Alice" {
		t.Fatalf("Get(Name) = %q, %v; want Alice", v, err)
	}
	if v, err := row.Get("AGE"); err != nil || v != "30" {
		t.Fatalf("Get(AGE) = %q, %v; want 30", v, err)
	}
	if v, err := row.At(1); err != nil || v != "30" {
		t.Fatalf("At(1) = %q, %v; want 30", v, err)
	}
	if r.Next() {
		t.Fatalf("Next() = true after last line")
	}
}

func TestReader_SkipsRaggedAndStopsAtBlank(t *testing.T) {
	t.Parallel()

	r := New(coldict.New("name", "age"), Lines("Alice\t30\n", "Bob\t40\tX\n", "\n", "Carol\t50\n"), Options{})
	got := collectNames(t, r)
	if want := []string{"Alice"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}
	if r.Skipped() != 1 {
		t.Fatalf("Skipped() = %d, want 1", r.Skipped())
	}
	if r.LineNo() != 2 {
		t.Fatalf("LineNo() = %d, want 2", r.LineNo())
	}
	if r.Row() != nil {
		t.Fatalf("Row() after end = %v, want nil", r.Row())
	}
}

func TestReader_Strip(t *testing.T) {
	t.Parallel()

	lines := []string{" Alice \t 30\r\n"}
	plain := New(coldict.New("name", "age"), Lines(lines...), Options{})
	if got := collectNames(t, plain); got[0] != " Alice " {
		t.Fatalf("without strip = %q, want untouched field", got[0])
	}
	stripped := New(coldict.New("name", "age"), Lines(lines...), Options{Strip: true})
	if got := collectNames(t, stripped); got[0] != "Alice" {
		t.Fatalf("with strip = %q, want Alice", got[0])
	}
}

func TestReader_CustomDelimiter(t *testing.T) {
	t.Parallel()
	r := New(coldict.New("name", "age"), Lines("Alice|30"), Options{Delimiter: "|"})
	if got := collectNames(t, r); !reflect.DeepEqual(got, []string{"Alice"}) {
		t.Fatalf("rows = %v", got)
	}
}

type closingSource struct {
	LineSource
	closed int
}

func (c *closingSource) Close() error { c.closed++; return nil }

func TestReader_ClosesSource(t *testing.T) {
	t.Parallel()

	t.Run("exhausted", func(t *testing.T) {
		src := &closingSource{LineSource: Lines("a\t1")}
		r := New(coldict.New("name", "age"), src, Options{})
		collectNames(t, r)
		if src.closed != 1 {
			t.Fatalf("closed = %d, want 1", src.closed)
		}
		if err := r.Close(); err != nil || src.closed != 1 {
			t.Fatalf("second Close() = %v, closed = %d", err, src.closed)
		}
	})

	t.Run("early_break", func(t *testing.T) {
		src := &closingSource{LineSource: Lines("a\t1", "b\t2", "c\t3")}
		r := New(coldict.New("name", "age"), src, Options{})
		for row := range r.All() {
			if v, _ := row.Get("name"); v == "b" {
				break
			}
		}
		if src.closed != 0 {
			t.Fatalf("closed before Close() = %d", src.closed)
		}
		r.Close()
		if src.closed != 1 {
			t.Fatalf("closed = %d, want 1", src.closed)
		}
		if r.Next() {
			t.Fatalf("Next() after Close() = true")
		}
	})
}

func TestReader_SourceError(t *testing.T) {
	t.Parallel()

	boom := errors.New("cursor lost")
	calls := 0
	src := LineFunc(func() (string, error) {
		calls++
		if calls == 1 {
			return "a\t1", nil
		}
		return "", boom
	})
	r := New(coldict.New("name", "age"), src, Options{})
	if !r.Next() {
		t.Fatalf("first Next() = false")
	}
	if r.Next() {
		t.Fatalf("second Next() = true")
	}
	if !errors.Is(r.Err(), boom) {
		t.Fatalf("Err() = %v, want %v", r.Err(), boom)
	}
}

func TestOpen_DictAndData(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dic := writeFile(t, dir, "people.dic", "Type:variable(\t)\nName:string\nAge:int\n\n")
	dat := writeFile(t, dir, "people.txt", "Alice\t30\nBob\t40\tX\r\nCarol\t50")

	r, err := Open(context.Background(), dic, dat, Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	if got, want := collectNames(t, r), []string{"Alice", "Carol"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}
}

func TestOpen_Errors(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dic := writeFile(t, dir, "x.dic", "Name=\"a\"\n")
	dat := writeFile(t, dir, "x.txt", "1\n")

	if _, err := Open(context.Background(), filepath.Join(dir, "none.dic"), dat, Options{}); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing dict error = %v, want ErrNotExist", err)
	}
	if _, err := Open(context.Background(), dic, filepath.Join(dir, "none.txt"), Options{}); !errors.Is(err, os.ErrNotExist) {
		t.Fatalf("missing data error = %v, want ErrNotExist", err)
	}
	if _, err := Open(context.Background(), dic, dat, Options{Encoding: "no-such-charset"}); err == nil {
		t.Fatalf("unknown encoding error = nil")
	}
}

func TestOpen_ResolvesRelativeNames(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	writeFile(t, dir, "Segment_LU.dic", "Name=\"name\"\n")
	writeFile(t, dir, "SEGMENT_LU.TXT", "north\nsouth\n")
	actual := map[string]string{
		"segment_lu.dic": filepath.Join(dir, "Segment_LU.dic"),
		"segment_lu.txt": filepath.Join(dir, "SEGMENT_LU.TXT"),
	}
	opt := Options{Resolver: datasource.ResolverFunc(func(name string) (string, error) {
		if p, ok := actual[name]; ok {
			return p, nil
		}
		return "", os.ErrNotExist
	})}

	r, err := Open(context.Background(), "segment_lu.dic", "segment_lu.txt", opt)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	if got, want := collectNames(t, r), []string{"north", "south"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}
}

func TestOpen_OverHTTP(t *testing.T) {
	t.Parallel()

	files := map[string]string{
		"/people.dic": "Name=\"name\"\nName=\"age\"\n",
		"/people.txt": "Alice\t30\nBob\n",
		"/header.txt": "name\tage\nCarol\t50\n",
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, ok := files[r.URL.Path]
		if !ok {
			http.NotFound(w, r)
			return
		}
		io.WriteString(w, body)
	}))
	defer srv.Close()

	r, err := Open(context.Background(), srv.URL+"/people.dic", srv.URL+"/people.txt", Options{})
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer r.Close()
	if got, want := collectNames(t, r), []string{"Alice"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}

	h, err := OpenWithHeader(context.Background(), srv.URL+"/header.txt", Options{})
	if err != nil {
		t.Fatalf("OpenWithHeader: %v", err)
	}
	defer h.Close()
	if got, want := collectNames(t, h), []string{"Carol"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}

	if _, err := Open(context.Background(), srv.URL+"/none.dic", srv.URL+"/people.txt", Options{}); err == nil {
		t.Fatalf("missing remote dict error = nil")
	}
}

func TestOpenWithHeader(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	dat := writeFile(t, dir, "people.txt", "Name\tCity\nAlice\tOslo\nBob\n\nCarol\tRome\n")

	r, err := OpenWithHeader(context.Background(), dat, Options{})
	if err != nil {
		t.Fatalf("OpenWithHeader: %v", err)
	}
	defer r.Close()
	if got, want := r.Dict().Names(), []string{"name", "city"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("header = %v, want %v", got, want)
	}
	if got, want := collectNames(t, r), []string{"Alice"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("rows = %v, want %v", got, want)
	}
}

func TestOpenWithHeader_Encoding(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	// "José" in ISO-8859-1.
	dat := writeFile(t, dir, "latin1.txt", "name\tage\nJos\xe9\t41\n")

	r, err := OpenWithHeader(context.Background(), dat, OptionsFrom(config.Options{"encoding": "latin1"}))
	if err != nil {
		t.Fatalf("OpenWithHeader: %v", err)
	}
	defer r.Close()
	if got := collectNames(t, r); !reflect.DeepEqual(got, []string{"José"}) {
		t.Fatalf("rows = %q, want [José]", got)
	}
}

func TestOptionsFrom(t *testing.T) {
	t.Parallel()

	got := OptionsFrom(config.Options{"strip": true, "delimiter": ";", "encoding": "windows-1252"})
	if got.HTTP == nil {
		t.Fatalf("OptionsFrom HTTP client = nil")
	}
	got.HTTP = nil
	want := Options{Strip: true, Delimiter: ";", Encoding: "windows-1252"}
	if !reflect.DeepEqual(got, want) {
		t.Fatalf("OptionsFrom = %#v, want %#v", got, want)
	}
	if d := OptionsFrom(config.Options{}); d.delimiter() != "\t" || d.Strip {
		t.Fatalf("defaults = %#v", d)
	}
}

var _ io.Closer = (*closingSource)(nil)
