// Command dicodec converts between JSON lines and encoded value lines.
//
//	dicodec < values.jsonl > values.enc
//	dicodec -decode < values.enc > values.jsonl
//
// Every input line holds one document; empty lines are copied through.
package main

import (
	"bufio"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"ditools/internal/codec"
)

func main() {
	decode := flag.Bool("decode", false, "read encoded lines and write JSON lines")
	keepGoing := flag.Bool("k", false, "log bad lines and continue instead of stopping")
	flag.Parse()

	in := io.Reader(os.Stdin)
	if flag.NArg() > 0 {
		f, err := os.Open(flag.Arg(0))
		if err != nil {
			log.Fatalf("open input: %v", err)
		}
		defer f.Close()
		in = f
	}

	w := bufio.NewWriter(os.Stdout)
	bad, err := convert(in, w, *decode, *keepGoing)
	if ferr := w.Flush(); err == nil {
		err = ferr
	}
	if err != nil {
		log.Fatalf("%v", err)
	}
	if bad > 0 {
		log.Printf("%d line(s) could not be converted", bad)
		os.Exit(1)
	}
}

// convert translates r line by line into w. With keepGoing set, a line that
// fails is logged and counted; otherwise the first failure is returned.
func convert(r io.Reader, w io.Writer, decode, keepGoing bool) (bad int, err error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 64*1024*1024)
	lineNo := 0
	for sc.Scan() {
		lineNo++
		line := sc.Bytes()
		if len(line) == 0 {
			if _, err := io.WriteString(w, "\n"); err != nil {
				return bad, err
			}
			continue
		}

		out, err := convertLine(line, decode)
		if err != nil {
			err = fmt.Errorf("line %d: %w", lineNo, err)
			if !keepGoing {
				return bad, err
			}
			log.Print(err)
			bad++
			continue
		}
		if _, err := fmt.Fprintln(w, out); err != nil {
			return bad, err
		}
	}
	if err := sc.Err(); err != nil {
		return bad, fmt.Errorf("read input: %w", err)
	}
	return bad, nil
}

func convertLine(line []byte, decode bool) (string, error) {
	if decode {
		v, err := codec.Decode(string(line))
		if err != nil {
			return "", err
		}
		b, err := json.Marshal(codec.ToJSON(v))
		if err != nil {
			return "", err
		}
		return string(b), nil
	}
	v, err := codec.FromJSON(line)
	if err != nil {
		return "", err
	}
	return codec.Encode(v)
}
