package coldict

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
)

func TestParse(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name  string
		text  string
		names []string
		index map[string]int
	}{
		{
			name:  "legacy",
			text:  "Type:variable(\t)\nName:string\nAge:int\n\nIgnored:int\n",
			names: []string{"name", "age"},
			index: map[string]int{"name": 0, "age": 1},
		},
		{
			name:  "legacy_crlf",
			text:  "Type:variable(\t)\r\nCity:string\r\nZIP\r\n",
			names: []string{"city", "zip"},
			index: map[string]int{"city": 0, "zip": 1},
		},
		{
			name:  "legacy_no_trailing_blank",
			text:  "Type:variable(\t)\nA:x",
			names: []string{"a"},
			index: map[string]int{"a": 0},
		},
		{
			name: "attributes",
			text: "[Columns]\n  Name=\"Customer ID\"\nType=string\nName=\"Total\"\nName=\n\nName='Region'\n",
			names: []string{"customer id", "total", "", "region"},
			index: map[string]int{"customer id": 0, "total": 1, "": 2, "region": 3},
		},
		{
			name:  "attributes_short_value_keeps_position",
			text:  "Name=x\nName=\"a\"\nName=\"b\"\n",
			names: []string{"", "a", "b"},
			index: map[string]int{"": 0, "a": 1, "b": 2},
		},
		{
			name:  "attributes_repeated_name",
			text:  "Name=\"a\"\nName=\"b\"\nName=\"A\"\n",
			names: []string{"a", "b"},
			index: map[string]int{"a": 2, "b": 1},
		},
		{
			name:  "empty",
			text:  "",
			names: []string{},
			index: map[string]int{},
		},
		{
			name:  "unrecognized",
			text:  "just some text\nwithout columns\n",
			names: []string{},
			index: map[string]int{},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			d := Parse(tc.text)
			if got := d.Names(); !reflect.DeepEqual(got, tc.names) {
				t.Fatalf("Names() = %#v, want %#v", got, tc.names)
			}
			if d.Len() != len(tc.index) {
				t.Fatalf("Len() = %d, want %d", d.Len(), len(tc.index))
			}
			for n, want := range tc.index {
				if got, ok := d.Index(n); !ok || got != want {
					t.Fatalf("Index(%q) = %d, %v; want %d", n, got, ok, want)
				}
			}
		})
	}
}

func TestIndex_FoldsCase(t *testing.T) {
	t.Parallel()
	d := New("Name", "AGE")
	if i, ok := d.Index("nAmE"); !ok || i != 0 {
		t.Fatalf("Index(nAmE) = %d, %v", i, ok)
	}
	if i, ok := d.Index("age"); !ok || i != 1 {
		t.Fatalf("Index(age) = %d, %v", i, ok)
	}
	if _, ok := d.Index("missing"); ok {
		t.Fatalf("Index(missing) ok = true")
	}
	if got := d.String(); got != "{name:0, age:1}" {
		t.Fatalf("String() = %q", got)
	}
}

func TestFromHeader(t *testing.T) {
	t.Parallel()
	d := FromHeader("ID\tFirst Name\tCity\r\n", "\t")
	if got, want := d.Names(), []string{"id", "first name", "city"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("Names() = %#v, want %#v", got, want)
	}
}

func TestLoad(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "people.dic")
	if err := os.WriteFile(path, []byte("Name=\"name\"\nName=\"age\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	d, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if d.Len() != 2 {
		t.Fatalf("Len() = %d, want 2", d.Len())
	}

	if _, err := Load(filepath.Join(t.TempDir(), "missing.dic")); err == nil {
		t.Fatalf("Load(missing) error = nil")
	}
}
