package store

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
)

func captureDefault(t *testing.T, level slog.Level) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := slog.Default()
	slog.SetDefault(slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: level})))
	t.Cleanup(func() { slog.SetDefault(prev) })
	return &buf
}

func TestQueryLogErrors(t *testing.T) {
	s := OpenMemory(t)
	buf := captureDefault(t, slog.LevelWarn)

	if _, err := s.DB.ExecContext(context.Background(), "INSERT INTO no_such_table VALUES (1)"); err == nil {
		t.Fatal("insert into a missing table should fail")
	}
	out := buf.String()
	if !strings.Contains(out, "level=ERROR") || !strings.Contains(out, "no_such_table") {
		t.Fatalf("failed statement not logged:\n%s", out)
	}
}

func TestQueryLogOmitsArguments(t *testing.T) {
	s := OpenMemory(t)
	buf := captureDefault(t, slog.LevelDebug)

	cr := &ClientRecord{Label: "x", Data: sampleRecord(t)}
	if err := s.PutRecord(context.Background(), cr); err != nil {
		t.Fatal(err)
	}
	out := buf.String()
	if !strings.Contains(out, "store: sql") {
		t.Fatalf("statement not logged at debug:\n%s", out)
	}
	if strings.Contains(out, "DOE") {
		t.Fatalf("record data leaked into the log:\n%s", out)
	}
}

func TestCompactSQL(t *testing.T) {
	if got := compactSQL("SELECT  id\n\tFROM x"); got != "SELECT id FROM x" {
		t.Fatalf("got %q", got)
	}
	if got := compactSQL(strings.Repeat("a ", 300)); len(got) > 210 {
		t.Fatalf("long query not truncated: %d", len(got))
	}
}
