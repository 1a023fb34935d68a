package codec

import (
	"fmt"
	"strconv"
	"strings"
)

// maxDepth bounds container nesting so hostile input cannot exhaust the stack.
const maxDepth = 1000

// DecodeError describes malformed input and where it was found.
type DecodeError struct {
	Offset  int // byte offset into the input
	Message string
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("codec: malformed input at offset %d: %s", e.Offset, e.Message)
}

// Unwrap lets errors.Is(err, ErrMalformed) match.
func (e *DecodeError) Unwrap() error { return ErrMalformed }

// Decode parses exactly one encoded value. Input left over after the value
// is an error, as is any grammar violation; no partial value is returned.
func Decode(s string) (Value, error) {
	d := &decoder{s: s}
	v, err := d.value(0)
	if err != nil {
		return Value{}, err
	}
	if d.pos != len(d.s) {
		return Value{}, d.errorf("%d trailing bytes after value", len(d.s)-d.pos)
	}
	return v, nil
}

type decoder struct {
	s   string
	pos int
}

func (d *decoder) errorf(format string, args ...any) error {
	return &DecodeError{Offset: d.pos, Message: fmt.Sprintf(format, args...)}
}

func (d *decoder) value(depth int) (Value, error) {
	if depth > maxDepth {
		return Value{}, d.errorf("nesting deeper than %d", maxDepth)
	}
	if strings.HasPrefix(d.s[d.pos:], "None") {
		d.pos += 4
		return Null(), nil
	}
	if d.pos >= len(d.s) {
		return Value{}, d.errorf("unexpected end of input")
	}
	switch tag := d.s[d.pos]; tag {
	case 'i':
		return d.integer()
	case 'd':
		return d.float()
	case 's':
		return d.str()
	case 'L', 'T', 'S':
		return d.sequence(tag, depth)
	case 'D':
		return d.mapping(depth)
	default:
		return Value{}, d.errorf("unknown tag %q", tag)
	}
}

// number consumes the text after a numeric tag: an optional '-' directly
// after the tag, then characters accepted by ok.
func (d *decoder) number(ok func(byte) bool) (string, error) {
	d.pos++ // tag
	start := d.pos
	if d.pos < len(d.s) && d.s[d.pos] == '-' {
		d.pos++
	}
	digits := d.pos
	for d.pos < len(d.s) && ok(d.s[d.pos]) {
		d.pos++
	}
	if d.pos == digits {
		return "", d.errorf("number without digits")
	}
	return d.s[start:d.pos], nil
}

func (d *decoder) integer() (Value, error) {
	start := d.pos
	text, err := d.number(isDigit)
	if err != nil {
		return Value{}, err
	}
	n, err := strconv.ParseInt(text, 10, 64)
	if err != nil {
		return Value{}, &DecodeError{Offset: start, Message: fmt.Sprintf("bad integer %q", text)}
	}
	return Int(n), nil
}

func (d *decoder) float() (Value, error) {
	start := d.pos
	text, err := d.number(func(c byte) bool { return isDigit(c) || c == '.' })
	if err != nil {
		return Value{}, err
	}
	f, err := strconv.ParseFloat(text, 64)
	if err != nil {
		return Value{}, &DecodeError{Offset: start, Message: fmt.Sprintf("bad float %q", text)}
	}
	return Float(f), nil
}

func (d *decoder) str() (Value, error) {
	start := d.pos
	if d.pos+1 >= len(d.s) || d.s[d.pos+1] != '\'' {
		return Value{}, d.errorf("string tag without opening quote")
	}
	var b strings.Builder
	for i := d.pos + 2; i < len(d.s); i++ {
		switch c := d.s[i]; c {
		case '\\':
			if i+1 >= len(d.s) {
				return Value{}, &DecodeError{Offset: start, Message: "unterminated string"}
			}
			i++
			b.WriteByte(d.s[i])
		case '\'':
			d.pos = i + 1
			return Str(b.String()), nil
		default:
			b.WriteByte(c)
		}
	}
	return Value{}, &DecodeError{Offset: start, Message: "unterminated string"}
}

// open consumes "<tag>(" and reports the offset of the tag.
func (d *decoder) open() (int, error) {
	start := d.pos
	if d.pos+1 >= len(d.s) || d.s[d.pos+1] != '(' {
		return start, d.errorf("container tag %q without '('", d.s[d.pos])
	}
	d.pos += 2
	return start, nil
}

// closed reports whether the container has ended, consuming the ')'.
func (d *decoder) closed(start int) (bool, error) {
	if d.pos >= len(d.s) {
		return false, &DecodeError{Offset: start, Message: "unterminated container"}
	}
	if d.s[d.pos] == ')' {
		d.pos++
		return true, nil
	}
	return false, nil
}

func (d *decoder) sequence(tag byte, depth int) (Value, error) {
	start, err := d.open()
	if err != nil {
		return Value{}, err
	}
	var items []Value
	for {
		done, err := d.closed(start)
		if err != nil {
			return Value{}, err
		}
		if done {
			break
		}
		it, err := d.value(depth + 1)
		if err != nil {
			return Value{}, err
		}
		items = append(items, it)
	}
	switch tag {
	case 'T':
		return Tuple(items...), nil
	case 'S':
		return Set(items...), nil
	default:
		if items == nil {
			items = []Value{}
		}
		return List(items...), nil
	}
}

func (d *decoder) mapping(depth int) (Value, error) {
	start, err := d.open()
	if err != nil {
		return Value{}, err
	}
	var entries []Entry
	for {
		done, err := d.closed(start)
		if err != nil {
			return Value{}, err
		}
		if done {
			break
		}
		k, err := d.value(depth + 1)
		if err != nil {
			return Value{}, err
		}
		if d.pos >= len(d.s) {
			return Value{}, &DecodeError{Offset: start, Message: "unterminated container"}
		}
		v, err := d.value(depth + 1)
		if err != nil {
			return Value{}, err
		}
		entries = append(entries, Entry{Key: k, Value: v})
	}
	return Map(entries...), nil
}

func isDigit(c byte) bool { return c >= '0' && c <= '9' }
