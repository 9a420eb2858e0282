package sim

import (
	"errors"
	"io"

	"github.com/AdiPat/ai-simulator/internal/lifecycle"
)

// MultiWriter fans lifecycle records out to multiple writers.
type MultiWriter struct {
	writers []RecordWriter
}

// NewMultiWriter creates a new MultiWriter.
func NewMultiWriter(writers ...RecordWriter) *MultiWriter {
	return &MultiWriter{writers: writers}
}

// Write sends a record to all writers.
func (mw *MultiWriter) Write(rec lifecycle.Record) error {
	for _, w := range mw.writers {
		if err := w.Write(rec); err != nil {
			return err
		}
	}
	return nil
}

// WriteBatch sends multiple records to all writers, using batch mode
// where supported.
func (mw *MultiWriter) WriteBatch(recs []lifecycle.Record) error {
	for _, w := range mw.writers {
		if bw, ok := w.(batchWriter); ok {
			if err := bw.WriteBatch(recs); err != nil {
				return err
			}
			continue
		}
		for _, r := range recs {
			if err := w.Write(r); err != nil {
				return err
			}
		}
	}
	return nil
}

// Flush flushes every buffering writer, collecting all errors.
func (mw *MultiWriter) Flush() error {
	var errs []error
	for _, w := range mw.writers {
		if f, ok := w.(flushableWriter); ok {
			if err := f.Flush(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}

// Close closes every writer that holds resources, collecting all errors.
func (mw *MultiWriter) Close() error {
	var errs []error
	for _, w := range mw.writers {
		if c, ok := w.(io.Closer); ok {
			if err := c.Close(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return errors.Join(errs...)
}
