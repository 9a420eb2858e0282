package sim

import (
	"encoding/json"
	"os"

	"github.com/AdiPat/ai-simulator/internal/lifecycle"
)

// FileWriter writes lifecycle records to a JSONL file.
type FileWriter struct {
	file *os.File
	enc  *json.Encoder
}

// NewFileWriter creates a FileWriter, truncating any existing file at path.
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileWriter{file: f, enc: json.NewEncoder(f)}, nil
}

// Write logs a single record.
func (f *FileWriter) Write(rec lifecycle.Record) error {
	return f.enc.Encode(rec)
}

// WriteBatch logs multiple records.
func (f *FileWriter) WriteBatch(recs []lifecycle.Record) error {
	for _, r := range recs {
		if err := f.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// Flush forces buffered data to stable storage.
func (f *FileWriter) Flush() error {
	return f.file.Sync()
}

// Close closes the underlying file.
func (f *FileWriter) Close() error {
	return f.file.Close()
}
