package logbuf

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
)

// FormatLine renders e in the mirror file format:
//
//	[<timestamp>] [<stdout|stderr>] <data>\n
//
// Data is written verbatim; embedded newlines are not escaped.
func FormatLine(e Entry) string {
	return fmt.Sprintf("[%s] [%s] %s\n", e.Timestamp, e.Type, e.Data)
}

// appendLine writes one entry to path. Directory creation is best effort:
// its error is ignored and the open below reports the real failure.
func appendLine(path string, e Entry) error {
	_ = os.MkdirAll(filepath.Dir(path), 0755)

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return fmt.Errorf("open mirror: %w", err)
	}
	if _, err := f.WriteString(FormatLine(e)); err != nil {
		f.Close()
		return fmt.Errorf("write mirror: %w", err)
	}
	return f.Close()
}

// ParseLine parses a single mirror line (without the trailing newline).
// It returns false for lines that are not entry headers, such as the
// continuation lines of multi-line data.
func ParseLine(line string) (Entry, bool) {
	ts, rest, ok := bracketed(line)
	if !ok || len(ts) != len(TimestampFormat) {
		return Entry{}, false
	}
	if !strings.HasPrefix(rest, " ") {
		return Entry{}, false
	}
	typ, rest, ok := bracketed(rest[1:])
	if !ok || (StreamType(typ) != Stdout && StreamType(typ) != Stderr) {
		return Entry{}, false
	}
	// An empty data field leaves no separating space.
	rest = strings.TrimPrefix(rest, " ")
	return Entry{Type: StreamType(typ), Data: rest, Timestamp: ts}, true
}

func bracketed(s string) (inner, rest string, ok bool) {
	if !strings.HasPrefix(s, "[") {
		return "", "", false
	}
	end := strings.IndexByte(s, ']')
	if end < 0 {
		return "", "", false
	}
	return s[1:end], s[end+1:], true
}

// ReadMirror parses every entry in r. Continuation lines are joined onto
// the preceding entry's data with a newline; leading lines that belong to
// no entry are skipped.
func ReadMirror(r io.Reader) ([]Entry, error) {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)

	var entries []Entry
	for sc.Scan() {
		line := sc.Text()
		if e, ok := ParseLine(line); ok {
			entries = append(entries, e)
			continue
		}
		if n := len(entries); n > 0 {
			entries[n-1].Data += "\n" + line
		}
	}
	if err := sc.Err(); err != nil {
		return entries, fmt.Errorf("read mirror: %w", err)
	}
	return entries, nil
}

// ReadMirrorFile is ReadMirror over the file at path.
func ReadMirrorFile(path string) ([]Entry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ReadMirror(f)
}
