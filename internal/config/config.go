// Package config defines the JSON job file consumed by cmd/dijoin. A file
// lists one or more join jobs; each names a primary delimited source, the
// secondary sources it is joined against, the key columns, and where joined
// records go.
//
// Example (trimmed):
//
//	{
//	  "jobs": [{
//	    "name": "orders_with_customers",
//	    "primary":     { "kind": "dicted", "dict": "orders.dic", "data": "orders.txt" },
//	    "secondaries": [{ "kind": "header", "data": "customers.txt", "options": { "strip": true } }],
//	    "key_columns": ["customer_id"],
//	    "output": { "kind": "tsv", "path": "-", "columns": ["order_id", "customer_id", "city"] }
//	  }],
//	  "runtime": { "workers": 2, "batch_size": 1000 }
//	}
package config

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// Source kinds.
const (
	SourceDicted = "dicted" // dictionary file + data file
	SourceHeader = "header" // data file whose first line is the header
	SourceDB     = "db"     // dictionary file + lines returned by a database query
)

// Output kinds.
const (
	OutputTSV     = "tsv"     // delimited text in Output.Columns order
	OutputEncoded = "encoded" // one codec-encoded map per line
	OutputDB      = "db"      // batched inserts into Output.DB.Table
)

// File is the top-level object of a job file.
type File struct {
	Jobs    []Job   `json:"jobs"`
	Runtime Runtime `json:"runtime"`
}

// Runtime controls how many jobs run at once and insert batch sizes.
type Runtime struct {
	Workers   int `json:"workers"`
	BatchSize int `json:"batch_size"`
}

// Job describes one join.
type Job struct {
	// Name labels log lines and metrics.
	Name string `json:"name"`

	Primary     Source   `json:"primary"`
	Secondaries []Source `json:"secondaries"`

	// KeyColumns are the column names every source is joined on.
	KeyColumns []string `json:"key_columns"`

	Output Output `json:"output"`
}

// Source describes one delimited row source.
type Source struct {
	// Kind is one of SourceDicted, SourceHeader, SourceDB.
	Kind string `json:"kind"`

	// Dict is the column dictionary file (dicted, db).
	Dict string `json:"dict"`

	// Data is the data file (dicted, header).
	Data string `json:"data"`

	// Options is interpreted by the delimited reader:
	//   strip (bool), delimiter (string), encoding (string)
	Options Options `json:"options"`

	// DB carries the connection and query for the db kind.
	DB DB `json:"db"`
}

// DB names a storage backend and what to read from or write to it.
type DB struct {
	// Kind selects the registered backend: sqlite, postgres, mysql, mssql.
	Kind string `json:"kind"`
	DSN  string `json:"dsn"`

	// Query returns one tab-delimited text column per row (sources only).
	Query string `json:"query"`

	// Table receives joined records (outputs only).
	Table string `json:"table"`

	// CreateTable issues CREATE TABLE IF NOT EXISTS with every output
	// column typed as text before loading (outputs only).
	CreateTable bool `json:"create_table"`
}

// Output describes where joined records are written.
type Output struct {
	// Kind is one of OutputTSV, OutputEncoded, OutputDB.
	Kind string `json:"kind"`

	// Path is the output file; empty or "-" means stdout (tsv, encoded).
	Path string `json:"path"`

	// Columns orders the fields written (tsv, db).
	Columns []string `json:"columns"`

	DB DB `json:"db"`
}

// Load reads and decodes the job file at path.
func Load(path string) (File, error) {
	f, err := os.Open(path)
	if err != nil {
		return File{}, fmt.Errorf("open config: %w", err)
	}
	defer f.Close()
	return Decode(f)
}

// Decode decodes a job file from r.
func Decode(r io.Reader) (File, error) {
	var f File
	if err := json.NewDecoder(r).Decode(&f); err != nil {
		return File{}, fmt.Errorf("decode config: %w", err)
	}
	return f, nil
}

// Options is a small helper to fetch typed values from arbitrary JSON maps.
// It performs only minimal type coercion and returns provided defaults when a
// key is absent or of an unexpected type.
type Options map[string]any

// String returns the string value for key or def if key is missing or not a string.
func (o Options) String(key, def string) string {
	if v, ok := o[key]; ok {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return def
}

// Bool returns the bool value for key or def if key is missing or not a bool.
func (o Options) Bool(key string, def bool) bool {
	if v, ok := o[key]; ok {
		if b, ok := v.(bool); ok {
			return b
		}
	}
	return def
}

// Int returns the int value for key or def. JSON numbers are decoded as
// float64 by encoding/json, so this method accepts float64 and casts to int.
func (o Options) Int(key string, def int) int {
	if v, ok := o[key]; ok {
		switch n := v.(type) {
		case float64:
			return int(n)
		case int:
			return n
		}
	}
	return def
}

// UnmarshalJSON decodes a missing or null "options" object to an empty,
// non-nil Options map.
func (o *Options) UnmarshalJSON(b []byte) error {
	var tmp map[string]any
	if len(b) == 0 || string(b) == "null" {
		*o = Options{}
		return nil
	}
	if err := json.Unmarshal(b, &tmp); err != nil {
		return err
	}
	*o = Options(tmp)
	return nil
}
