package config

import (
	"fmt"
	"strings"
)

// IssueSeverity represents the severity of a configuration issue.
type IssueSeverity string

const (
	// SeverityError blocks execution.
	SeverityError IssueSeverity = "error"
	// SeverityWarning is surfaced to users but does not block execution.
	SeverityWarning IssueSeverity = "warning"
)

// Issue describes a single validation finding.
//
// Path is a dotted path into the config (e.g. "jobs[0].primary.dict",
// "jobs[1].output.db.table"). Message is human-readable.
type Issue struct {
	Severity IssueSeverity
	Path     string
	Message  string
}

// Error implements the error interface so an Issue can be treated as a single
// error in contexts that expect error.
func (i Issue) Error() string {
	return fmt.Sprintf("%s at %s: %s", i.Severity, i.Path, i.Message)
}

// HasErrors reports whether any issue has SeverityError.
func HasErrors(issues []Issue) bool {
	for _, iss := range issues {
		if iss.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Validate performs static checks over a decoded job file. It does not touch
// the filesystem or databases and does not mutate f.
func Validate(f File) []Issue {
	var issues []Issue
	if len(f.Jobs) == 0 {
		issues = append(issues, Issue{SeverityError, "jobs", "at least one job is required"})
	}

	seen := make(map[string]int, len(f.Jobs))
	for i, j := range f.Jobs {
		prefix := fmt.Sprintf("jobs[%d]", i)
		name := strings.TrimSpace(j.Name)
		if name == "" {
			issues = append(issues, Issue{SeverityError, prefix + ".name", "name must not be empty; it labels logs and metrics"})
		} else if prev, dup := seen[name]; dup {
			issues = append(issues, Issue{SeverityError, prefix + ".name",
				fmt.Sprintf("duplicate job name %q (also jobs[%d])", name, prev)})
		} else {
			seen[name] = i
		}
		issues = append(issues, validateJob(prefix, j)...)
	}

	issues = append(issues, validateRuntime(f.Runtime)...)
	return issues
}

func validateJob(prefix string, j Job) []Issue {
	var issues []Issue

	if len(j.KeyColumns) == 0 {
		issues = append(issues, Issue{SeverityError, prefix + ".key_columns", "at least one key column is required"})
	}
	for i, c := range j.KeyColumns {
		if strings.TrimSpace(c) == "" {
			issues = append(issues, Issue{SeverityError, fmt.Sprintf("%s.key_columns[%d]", prefix, i), "key column must not be empty"})
		}
	}

	issues = append(issues, validateSource(prefix+".primary", j.Primary)...)
	if len(j.Secondaries) == 0 {
		issues = append(issues, Issue{SeverityWarning, prefix + ".secondaries",
			"no secondary sources; every primary row will be emitted unchanged"})
	}
	for i, s := range j.Secondaries {
		issues = append(issues, validateSource(fmt.Sprintf("%s.secondaries[%d]", prefix, i), s)...)
	}
	issues = append(issues, validateOutput(prefix+".output", j.Output)...)
	return issues
}

func validateSource(path string, s Source) []Issue {
	var issues []Issue
	switch s.Kind {
	case SourceDicted:
		issues = appendRequired(issues, path+".dict", s.Dict)
		issues = appendRequired(issues, path+".data", s.Data)
	case SourceHeader:
		issues = appendRequired(issues, path+".data", s.Data)
		if s.Dict != "" {
			issues = append(issues, Issue{SeverityWarning, path + ".dict", "ignored for header sources; the first data line names the columns"})
		}
	case SourceDB:
		issues = appendRequired(issues, path+".dict", s.Dict)
		issues = appendRequired(issues, path+".db.kind", s.DB.Kind)
		issues = appendRequired(issues, path+".db.dsn", s.DB.DSN)
		issues = appendRequired(issues, path+".db.query", s.DB.Query)
		if s.DB.CreateTable {
			issues = append(issues, Issue{SeverityWarning, path + ".db.create_table", "ignored for db sources; only outputs create tables"})
		}
	case "":
		issues = append(issues, Issue{SeverityError, path + ".kind", "kind must not be empty"})
	default:
		issues = append(issues, Issue{SeverityError, path + ".kind",
			fmt.Sprintf("unknown source kind %q; want %s, %s or %s", s.Kind, SourceDicted, SourceHeader, SourceDB)})
	}

	if d := s.Options.String("delimiter", "\t"); d == "" {
		issues = append(issues, Issue{SeverityError, path + ".options.delimiter", "delimiter must not be empty"})
	}
	return issues
}

func validateOutput(path string, o Output) []Issue {
	var issues []Issue
	switch o.Kind {
	case OutputTSV:
		if len(o.Columns) == 0 {
			issues = append(issues, Issue{SeverityError, path + ".columns", "tsv output needs columns to fix field order"})
		}
	case OutputEncoded:
		if len(o.Columns) > 0 {
			issues = append(issues, Issue{SeverityWarning, path + ".columns", "encoded output writes whole records; columns are ignored"})
		}
	case OutputDB:
		issues = appendRequired(issues, path+".db.kind", o.DB.Kind)
		issues = appendRequired(issues, path+".db.dsn", o.DB.DSN)
		issues = appendRequired(issues, path+".db.table", o.DB.Table)
		if len(o.Columns) == 0 {
			issues = append(issues, Issue{SeverityError, path + ".columns", "db output needs at least one destination column"})
		}
	case "":
		issues = append(issues, Issue{SeverityError, path + ".kind", "kind must not be empty"})
	default:
		issues = append(issues, Issue{SeverityError, path + ".kind",
			fmt.Sprintf("unknown output kind %q; want %s, %s or %s", o.Kind, OutputTSV, OutputEncoded, OutputDB)})
	}
	return issues
}

func validateRuntime(r Runtime) []Issue {
	var issues []Issue
	if r.Workers < 0 {
		issues = append(issues, Issue{SeverityError, "runtime.workers", "workers must not be negative"})
	}
	if r.BatchSize < 0 {
		issues = append(issues, Issue{SeverityError, "runtime.batch_size", "batch_size must not be negative"})
	}
	return issues
}

func appendRequired(issues []Issue, path, v string) []Issue {
	if strings.TrimSpace(v) == "" {
		return append(issues, Issue{SeverityError, path, "must not be empty"})
	}
	return issues
}
