package loadcell

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"sync"
	"time"
)

// Recorder appends force readings to a CSV file, one row per reading with
// the force in its channel's column and zero elsewhere.
type Recorder struct {
	mu       sync.Mutex
	w        *csv.Writer
	c        io.Closer
	channels int
}

// Create truncates path and writes the header row.
func Create(path string, channels int) (*Recorder, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create force log: %w", err)
	}
	r, err := NewRecorder(f, channels)
	if err != nil {
		f.Close()
		return nil, err
	}
	r.c = f
	return r, nil
}

// NewRecorder writes the header row to w.
func NewRecorder(w io.Writer, channels int) (*Recorder, error) {
	if channels <= 0 {
		return nil, fmt.Errorf("recorder needs at least one channel")
	}
	r := &Recorder{w: csv.NewWriter(w), channels: channels}

	header := make([]string, 0, channels+1)
	header = append(header, "Timestamp")
	for i := 1; i <= channels; i++ {
		header = append(header, fmt.Sprintf("LoadCell%d", i))
	}
	if err := r.w.Write(header); err != nil {
		return nil, fmt.Errorf("write header: %w", err)
	}
	r.w.Flush()
	return r, r.w.Error()
}

// Record writes one reading and flushes it.
func (r *Recorder) Record(rd Reading) error {
	if rd.Channel < 0 || rd.Channel >= r.channels {
		return fmt.Errorf("channel %d out of range", rd.Channel)
	}

	row := make([]string, r.channels+1)
	row[0] = rd.At.UTC().Format(time.RFC3339Nano)
	for i := 1; i <= r.channels; i++ {
		row[i] = "0"
	}
	row[rd.Channel+1] = strconv.FormatFloat(rd.Force, 'f', -1, 64)

	r.mu.Lock()
	defer r.mu.Unlock()
	if err := r.w.Write(row); err != nil {
		return err
	}
	r.w.Flush()
	return r.w.Error()
}

// Close flushes and closes the underlying file, if the recorder owns one.
func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.w.Flush()
	err := r.w.Error()
	if r.c != nil {
		if cerr := r.c.Close(); err == nil {
			err = cerr
		}
	}
	return err
}
