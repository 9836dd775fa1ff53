// Package jsonstream implements the streaming "{"Q1": ..., "Q2": ...}"
// result object: an incremental object writer that emits one key/value
// pair per query as it completes, so a batch that dies partway through
// still leaves a readable (if incomplete) JSON prefix on disk.
package jsonstream

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
)

// Encoder writes one top-level JSON object incrementally, indented for
// readability.
type Encoder struct {
	w       *bufio.Writer
	started bool
	closed  bool
	indent  string
}

// New wraps w, ready to accept Entry calls. The object opens lazily on the
// first Entry so an empty batch still closes to "{}".
func New(w io.Writer) *Encoder {
	return &Encoder{w: bufio.NewWriter(w), indent: "  "}
}

// Entry writes one "key": value pair, encoding value with encoding/json.
// Safe to call repeatedly; each call after the first is preceded by a
// comma, mirroring json_stream::start_entry.
func (e *Encoder) Entry(key string, value any) error {
	if e.closed {
		return fmt.Errorf("jsonstream: Entry called after Close")
	}
	if err := e.startEntry(key); err != nil {
		return err
	}
	data, err := json.MarshalIndent(value, e.indent, e.indent)
	if err != nil {
		return fmt.Errorf("jsonstream: encoding entry %q: %w", key, err)
	}
	if _, err := e.w.Write(data); err != nil {
		return fmt.Errorf("jsonstream: writing entry %q: %w", key, err)
	}
	if err := e.w.Flush(); err != nil {
		return fmt.Errorf("jsonstream: flushing entry %q: %w", key, err)
	}
	return nil
}

func (e *Encoder) startEntry(key string) error {
	if !e.started {
		if _, err := e.w.WriteString("{\n"); err != nil {
			return err
		}
		e.started = true
	} else {
		if _, err := e.w.WriteString(",\n"); err != nil {
			return err
		}
	}
	keyJSON, err := json.Marshal(key)
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(e.w, "%s%s : ", e.indent, keyJSON); err != nil {
		return err
	}
	return nil
}

// Close writes the closing brace (or "{}" if no entries were ever
// written) and flushes the underlying writer. Close is idempotent.
func (e *Encoder) Close() error {
	if e.closed {
		return nil
	}
	e.closed = true
	if !e.started {
		if _, err := e.w.WriteString("{}"); err != nil {
			return err
		}
	} else {
		if _, err := e.w.WriteString("\n}"); err != nil {
			return err
		}
	}
	if _, err := e.w.WriteString("\n"); err != nil {
		return err
	}
	return e.w.Flush()
}
