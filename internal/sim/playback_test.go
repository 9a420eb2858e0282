package sim

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/AdiPat/ai-simulator/internal/lifecycle"
)

func TestReplayLog(t *testing.T) {
	recs := []lifecycle.Record{
		{RunID: "run-1", Event: lifecycle.EventStart, Message: "simulation started", Timestamp: time.Unix(0, 0).UTC()},
		{RunID: "run-1", Event: lifecycle.EventSystem, Message: "a development", Timestamp: time.Unix(1, 0).UTC()},
		{RunID: "run-1", Event: lifecycle.EventStop, Message: "simulation stopped", Timestamp: time.Unix(2, 0).UTC()},
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}

	cw := &recordingWriter{}
	if err := ReplayLog(&buf, cw, 0); err != nil {
		t.Fatalf("ReplayLog: %v", err)
	}
	got := cw.snapshot()
	if len(got) != len(recs) {
		t.Fatalf("expected %d records, got %d", len(recs), len(got))
	}
	for i, r := range recs {
		if got[i].Event != r.Event || got[i].Message != r.Message {
			t.Fatalf("record %d mismatch: %+v vs %+v", i, got[i], r)
		}
	}
}

func TestReplayLogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range []lifecycle.Record{
		sampleRecord(lifecycle.EventStart, "simulation started"),
		sampleRecord(lifecycle.EventStop, "simulation stopped"),
	} {
		if err := enc.Encode(r); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}
	if err := os.WriteFile(path, buf.Bytes(), 0o644); err != nil {
		t.Fatalf("write log: %v", err)
	}

	cw := &recordingWriter{}
	if err := ReplayLogFile(path, cw, 0); err != nil {
		t.Fatalf("ReplayLogFile: %v", err)
	}
	if len(cw.snapshot()) != 2 {
		t.Fatalf("expected 2 records, got %d", len(cw.snapshot()))
	}
}

func TestReplayLogSpeed(t *testing.T) {
	// Two records one second apart, replayed at 100x, should take
	// roughly 10ms instead of a full second.
	recs := []lifecycle.Record{
		{Event: lifecycle.EventStart, Timestamp: time.Unix(0, 0).UTC()},
		{Event: lifecycle.EventStop, Timestamp: time.Unix(1, 0).UTC()},
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	for _, r := range recs {
		if err := enc.Encode(r); err != nil {
			t.Fatalf("encode: %v", err)
		}
	}

	cw := &recordingWriter{}
	start := time.Now()
	if err := ReplayLog(&buf, cw, 100); err != nil {
		t.Fatalf("ReplayLog: %v", err)
	}
	elapsed := time.Since(start)
	if elapsed < 5*time.Millisecond {
		t.Fatalf("replay finished in %v, pacing was skipped", elapsed)
	}
	if elapsed > 500*time.Millisecond {
		t.Fatalf("replay took %v, pacing not scaled by speed", elapsed)
	}
	if len(cw.snapshot()) != 2 {
		t.Fatalf("expected 2 records, got %d", len(cw.snapshot()))
	}
}

func TestReplayLogBadInput(t *testing.T) {
	cw := &recordingWriter{}
	if err := ReplayLog(bytes.NewBufferString("not json"), cw, 0); err == nil {
		t.Fatal("expected an error for malformed input")
	}
}
