package hardmine

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Sample is one annotated image of a dataset.
type Sample struct {
	Image string
	Boxes []Box
}

// Dataset is an ordered list of annotated images of one split.
type Dataset struct {
	Mode    string
	Samples []Sample
}

// Len returns the number of images.
func (d *Dataset) Len() int { return len(d.Samples) }

// LoadAnnotations reads a list file with one image per line:
//
//	relative/path.jpg x1 y1 x2 y2 [x1 y1 x2 y2 ...]
//
// Image paths are joined with root. Decimal coordinates are truncated.
func LoadAnnotations(path, root, mode string) (*Dataset, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &PreconditionError{Op: "load annotations", Err: err}
	}
	defer f.Close()

	ds, err := ParseAnnotations(f, root, mode)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return ds, nil
}

// ParseAnnotations parses annotation lines from r. See LoadAnnotations.
func ParseAnnotations(r io.Reader, root, mode string) (*Dataset, error) {
	ds := &Dataset{Mode: mode}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 4*1024*1024)
	for n := 1; sc.Scan(); n++ {
		fields := strings.Fields(sc.Text())
		if len(fields) == 0 {
			continue
		}
		coords := fields[1:]
		if len(coords)%4 != 0 {
			return nil, fmt.Errorf("line %d: %d coordinates is not a multiple of four", n, len(coords))
		}

		s := Sample{Image: fields[0]}
		if root != "" && !filepath.IsAbs(s.Image) {
			s.Image = filepath.Join(root, s.Image)
		}
		for i := 0; i < len(coords); i += 4 {
			var v [4]int
			for j := range v {
				c, err := strconv.ParseFloat(coords[i+j], 64)
				if err != nil {
					return nil, fmt.Errorf("line %d: %w", n, err)
				}
				v[j] = int(c)
			}
			s.Boxes = append(s.Boxes, Box{X1: v[0], Y1: v[1], X2: v[2], Y2: v[3]})
		}
		ds.Samples = append(ds.Samples, s)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return ds, nil
}
