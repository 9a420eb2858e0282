// Writer implementation printing records to STDOUT
package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/AdiPat/ai-simulator/internal/lifecycle"
)

// StdoutWriter prints lifecycle records as JSON lines.
type StdoutWriter struct {
	out io.Writer
}

// NewStdoutWriter creates a StdoutWriter writing to os.Stdout.
func NewStdoutWriter() *StdoutWriter {
	return &StdoutWriter{out: os.Stdout}
}

// Write outputs a single record in JSON format.
func (w *StdoutWriter) Write(rec lifecycle.Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// WriteBatch outputs multiple records in JSON format.
func (w *StdoutWriter) WriteBatch(recs []lifecycle.Record) error {
	for _, r := range recs {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}
