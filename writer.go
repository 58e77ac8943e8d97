package hardmine

import (
	"errors"
	"fmt"
	"image"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/esimov/hardmine/utils"
)

// Record is one line of a label file.
type Record struct {
	Path    string
	Label   int
	Offsets Offsets
}

// String formats the record as a label file line, without the trailing newline.
func (r Record) String() string {
	return fmt.Sprintf("%s %d %.2f %.2f %.2f %.2f",
		r.Path, r.Label, r.Offsets[0], r.Offsets[1], r.Offsets[2], r.Offsets[3])
}

// ParseRecord parses one label file line.
func ParseRecord(line string) (Record, error) {
	fields := strings.Fields(line)
	if len(fields) != 6 {
		return Record{}, fmt.Errorf("label line %q: expected 6 fields, got %d", line, len(fields))
	}
	label, err := strconv.Atoi(fields[1])
	if err != nil {
		return Record{}, fmt.Errorf("label line %q: %w", line, err)
	}
	rec := Record{Path: fields[0], Label: label}
	for i := range rec.Offsets {
		if rec.Offsets[i], err = strconv.ParseFloat(fields[i+2], 64); err != nil {
			return Record{}, fmt.Errorf("label line %q: %w", line, err)
		}
	}
	return rec, nil
}

// Writer stores samples of one pass: an image per sample, named after a
// per tier counter, and a line per sample in the tier's label file.
// Emit is safe for concurrent use; indices are never handed out twice.
type Writer struct {
	mu     sync.Mutex
	layout Layout
	next   [3]int
	labels [3]*os.File
}

// NewWriter creates the directories and label files of the given tiers.
// Unless the layout resumes, label files are truncated and numbering starts at zero.
func NewWriter(layout Layout, tiers ...Tier) (*Writer, error) {
	if len(tiers) == 0 {
		tiers = Tiers
	}
	w := &Writer{layout: layout}
	for _, t := range tiers {
		if w.labels[t] != nil {
			continue
		}
		if err := os.MkdirAll(layout.TierDir(t), 0755); err != nil {
			w.Close()
			return nil, fmt.Errorf("unable to create the %s directory: %w", t, err)
		}

		flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		path := layout.LabelFile(t)
		if layout.Resume {
			n, err := utils.CountLines(path)
			if err != nil {
				w.Close()
				return nil, fmt.Errorf("unable to count %s: %w", path, err)
			}
			w.next[t] = n
			flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
		}
		f, err := os.OpenFile(path, flags, 0644)
		if err != nil {
			w.Close()
			return nil, fmt.Errorf("unable to open the label file: %w", err)
		}
		w.labels[t] = f
	}
	return w, nil
}

// Layout returns the layout the writer was created with.
func (w *Writer) Layout() Layout { return w.layout }

// Emit saves img as the next sample of the tier and appends its label line.
// The counter only advances once both the image and the line are written.
func (w *Writer) Emit(t Tier, img image.Image, off Offsets) (Record, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	f := w.labels[t]
	if f == nil {
		return Record{}, fmt.Errorf("writer has no %s label file", t)
	}

	idx := w.next[t]
	name := filepath.Join(w.layout.TierDir(t), strconv.Itoa(idx)+w.layout.ext())
	if err := saveImg(name, img, w.layout.Quality); err != nil {
		return Record{}, fmt.Errorf("unable to save sample %s: %w", name, err)
	}

	if t == Negative {
		off = Offsets{}
	}
	rec := Record{
		Path:    w.layout.RelPath(t, idx),
		Label:   t.Label(),
		Offsets: off,
	}
	if _, err := f.WriteString(rec.String() + "\n"); err != nil {
		os.Remove(name)
		return Record{}, fmt.Errorf("unable to append to %s: %w", f.Name(), err)
	}
	w.next[t]++
	return rec, nil
}

// Count returns the number of samples of the tier, including resumed ones.
func (w *Writer) Count(t Tier) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.next[t]
}

// Close closes every label file.
func (w *Writer) Close() error {
	w.mu.Lock()
	defer w.mu.Unlock()

	var errs []error
	for i, f := range w.labels {
		if f == nil {
			continue
		}
		if err := f.Close(); err != nil {
			errs = append(errs, err)
		}
		w.labels[i] = nil
	}
	return errors.Join(errs...)
}
