package logbuf

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestParseLine(t *testing.T) {
	tests := []struct {
		name string
		line string
		want Entry
		ok   bool
	}{
		{
			name: "stdout",
			line: "[2024-05-01T12:00:00.000Z] [stdout] Server listening on :3000",
			want: Entry{Type: Stdout, Data: "Server listening on :3000", Timestamp: "2024-05-01T12:00:00.000Z"},
			ok:   true,
		},
		{
			name: "stderr with brackets in data",
			line: "[2024-05-01T12:00:00.001Z] [stderr] [webpack] failed",
			want: Entry{Type: Stderr, Data: "[webpack] failed", Timestamp: "2024-05-01T12:00:00.001Z"},
			ok:   true,
		},
		{
			name: "empty data",
			line: "[2024-05-01T12:00:00.002Z] [stdout] ",
			want: Entry{Type: Stdout, Data: "", Timestamp: "2024-05-01T12:00:00.002Z"},
			ok:   true,
		},
		{name: "continuation", line: "    at Object.<anonymous> (index.js:1:1)"},
		{name: "unknown stream", line: "[2024-05-01T12:00:00.000Z] [stdin] x"},
		{name: "short timestamp", line: "[2024-05-01] [stdout] x"},
		{name: "empty", line: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := ParseLine(tt.line)
			if ok != tt.ok {
				t.Fatalf("ParseLine() ok = %v, want %v", ok, tt.ok)
			}
			if ok && got != tt.want {
				t.Errorf("ParseLine() = %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestFormatLineParsesBack(t *testing.T) {
	e := Entry{Type: Stderr, Data: "EADDRINUSE :::3000", Timestamp: "2024-05-01T12:00:00.123Z"}
	line := FormatLine(e)
	if !strings.HasSuffix(line, "\n") {
		t.Fatalf("FormatLine() = %q, want trailing newline", line)
	}
	got, ok := ParseLine(strings.TrimSuffix(line, "\n"))
	if !ok || got != e {
		t.Errorf("ParseLine(FormatLine(e)) = %+v, %v; want %+v", got, ok, e)
	}
}

func TestReadMirrorJoinsContinuations(t *testing.T) {
	input := strings.Join([]string{
		"orphan line",
		"[2024-05-01T12:00:00.000Z] [stderr] Error: boom",
		"    at main (app.js:3:9)",
		"[2024-05-01T12:00:00.001Z] [stdout] ok",
		"",
	}, "\n")

	entries, err := ReadMirror(strings.NewReader(input))
	if err != nil {
		t.Fatalf("ReadMirror() error = %v", err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2: %+v", len(entries), entries)
	}
	if entries[0].Data != "Error: boom\n    at main (app.js:3:9)" {
		t.Errorf("entries[0].Data = %q", entries[0].Data)
	}
	if entries[1].Data != "ok" {
		t.Errorf("entries[1].Data = %q", entries[1].Data)
	}
}

func TestFollowerDeliversAppends(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dev.log")
	if err := os.WriteFile(path, []byte("[2024-05-01T12:00:00.000Z] [stdout] old\n"), 0644); err != nil {
		t.Fatal(err)
	}
	info, _ := os.Stat(path)

	f := NewFollower(path, info.Size())
	got := make(chan Entry, 10)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- f.Run(ctx, func(e Entry) { got <- e }) }()

	// Give the watcher a moment to register.
	time.Sleep(100 * time.Millisecond)

	b := New(Options{FilePath: path})
	b.Append(Stderr, "fresh")

	select {
	case e := <-got:
		if e.Type != Stderr || e.Data != "fresh" {
			t.Errorf("followed entry = %+v, want stderr:fresh", e)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("timed out waiting for followed entry")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run() error = %v", err)
		}
	case <-time.After(time.Second):
		t.Error("Run() did not return after cancel")
	}
}

func TestFollowerHandlesPartialLines(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dev.log")
	f := NewFollower(path, 0)

	var got []Entry
	collect := func(e Entry) { got = append(got, e) }

	write := func(s string) {
		file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
		if err != nil {
			t.Fatal(err)
		}
		file.WriteString(s)
		file.Close()
	}

	write("[2024-05-01T12:00:00.000Z] [stdout] hal")
	if err := f.drain(collect); err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("partial line delivered early: %+v", got)
	}

	write("f\ncontinued\n")
	if err := f.drain(collect); err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Data != "half" || got[1].Data != "continued" || got[1].Type != Stdout {
		t.Errorf("got %+v", got)
	}
}
