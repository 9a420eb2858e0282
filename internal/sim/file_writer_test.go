package sim

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/AdiPat/ai-simulator/internal/lifecycle"
)

func TestFileWriter(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	fw, err := NewFileWriter(path)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}

	recs := []lifecycle.Record{
		sampleRecord(lifecycle.EventStart, "simulation started"),
		sampleRecord(lifecycle.EventSystem, "a development"),
		sampleRecord(lifecycle.EventStop, "simulation stopped"),
	}
	if err := fw.Write(recs[0]); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := fw.WriteBatch(recs[1:]); err != nil {
		t.Fatalf("batch write: %v", err)
	}
	if err := fw.Flush(); err != nil {
		t.Fatalf("flush: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	var got []lifecycle.Record
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var rec lifecycle.Record
		if err := json.Unmarshal(scanner.Bytes(), &rec); err != nil {
			t.Fatalf("decode line %d: %v", len(got), err)
		}
		got = append(got, rec)
	}
	if err := scanner.Err(); err != nil {
		t.Fatalf("scan: %v", err)
	}

	if len(got) != len(recs) {
		t.Fatalf("expected %d records, got %d", len(recs), len(got))
	}
	for i, want := range recs {
		if got[i].Event != want.Event || got[i].Message != want.Message {
			t.Fatalf("record %d mismatch: %+v vs %+v", i, got[i], want)
		}
		if !got[i].Timestamp.Equal(want.Timestamp) {
			t.Fatalf("record %d timestamp mismatch: %v vs %v", i, got[i].Timestamp, want.Timestamp)
		}
	}
}

func TestFileWriterTruncatesExisting(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	if err := os.WriteFile(path, []byte("stale contents\n"), 0o644); err != nil {
		t.Fatalf("seed file: %v", err)
	}

	fw, err := NewFileWriter(path)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	if err := fw.Write(sampleRecord(lifecycle.EventStart, "simulation started")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	b, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	var rec lifecycle.Record
	if err := json.Unmarshal(b, &rec); err != nil {
		t.Fatalf("old contents must be gone, got %q: %v", b, err)
	}
	if rec.Event != lifecycle.EventStart {
		t.Fatalf("unexpected record: %+v", rec)
	}
}
