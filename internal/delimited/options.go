package delimited

import (
	"fmt"
	"io"
	"strings"

	"golang.org/x/text/encoding/ianaindex"
	"golang.org/x/text/transform"

	"ditools/internal/config"
	"ditools/internal/datasource"
	"ditools/internal/datasource/httpds"
)

// DefaultDelimiter separates fields unless Options.Delimiter says otherwise.
const DefaultDelimiter = "\t"

// Options tune how lines are split and how files are opened.
type Options struct {
	// Strip trims surrounding whitespace from every field.
	Strip bool

	// Delimiter separates fields; empty means DefaultDelimiter.
	Delimiter string

	// Encoding names the character set of data files (IANA name or alias,
	// e.g. "windows-1252", "latin1"). Empty means bytes are used as-is.
	Encoding string

	// Resolver, when set, maps relative dictionary and data file names to
	// actual paths before they are opened.
	Resolver datasource.Resolver

	// HTTP fetches http(s) file names; nil uses a default client.
	HTTP *httpds.Client
}

// OptionsFrom reads reader options from a config options bag:
//
//	strip (bool), delimiter (string), encoding (string),
//	http_retries (int), insecure_skip_verify (bool)
func OptionsFrom(o config.Options) Options {
	return Options{
		Strip:     o.Bool("strip", false),
		Delimiter: o.String("delimiter", DefaultDelimiter),
		Encoding:  o.String("encoding", ""),
		HTTP: httpds.NewClient(httpds.Config{
			MaxRetries:         o.Int("http_retries", 2),
			InsecureSkipVerify: o.Bool("insecure_skip_verify", false),
		}),
	}
}

func (o Options) delimiter() string {
	if o.Delimiter == "" {
		return DefaultDelimiter
	}
	return o.Delimiter
}

// decodeReader wraps r so bytes in the named charset come out as UTF-8.
func decodeReader(r io.Reader, name string) (io.Reader, error) {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "utf-8") || strings.EqualFold(name, "utf8") {
		return r, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil {
		return nil, fmt.Errorf("encoding %q: %w", name, err)
	}
	if enc == nil {
		return nil, fmt.Errorf("encoding %q: not supported", name)
	}
	return transform.NewReader(r, enc.NewDecoder()), nil
}
