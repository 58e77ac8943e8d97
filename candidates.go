package hardmine

import (
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"path/filepath"

	"github.com/cyclopcam/logs"
	"github.com/fxamacker/cbor/v2"
)

// Detector proposes candidate face boxes for an image.
type Detector interface {
	Detect(img *image.NRGBA) ([]Detection, error)
}

// Candidates holds one candidate set per dataset image, in dataset order.
type Candidates [][]Detection

// artifact is the on-disk envelope of a candidate collection.
type artifact struct {
	Version int           `cbor:"1,keyasint"`
	Mode    string        `cbor:"2,keyasint"`
	Sets    [][]Detection `cbor:"3,keyasint"`
}

const artifactVersion = 1

// Collect runs the detector over every image of the dataset.
// The returned collection always has one entry per image.
func Collect(ctx context.Context, log logs.Log, det Detector, ds *Dataset) (Candidates, error) {
	cands := make(Candidates, 0, ds.Len())
	for i, s := range ds.Samples {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if i%100 == 0 {
			log.Infof("Handle image %d", i)
		}
		img, err := decodeImg(s.Image)
		if err != nil {
			return nil, &ImageError{Path: s.Image, Err: err}
		}
		dets, err := det.Detect(img)
		if err != nil {
			return nil, fmt.Errorf("detecting faces in %s: %w", s.Image, err)
		}
		cands = append(cands, dets)
	}
	return cands, nil
}

// WriteCandidates encodes the collection to w.
func WriteCandidates(w io.Writer, mode string, cands Candidates) error {
	return cbor.NewEncoder(w).Encode(artifact{
		Version: artifactVersion,
		Mode:    mode,
		Sets:    cands,
	})
}

// ReadCandidates decodes a collection written by WriteCandidates and
// returns it with the dataset split it was collected from.
func ReadCandidates(r io.Reader) (Candidates, string, error) {
	var a artifact
	if err := cbor.NewDecoder(r).Decode(&a); err != nil {
		return nil, "", err
	}
	if a.Version != artifactVersion {
		return nil, "", fmt.Errorf("unsupported candidate artifact version %d", a.Version)
	}
	return a.Sets, a.Mode, nil
}

// SaveCandidates writes the collection to path, creating its directory.
func SaveCandidates(path, mode string, cands Candidates) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	if err := WriteCandidates(f, mode, cands); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

// LoadCandidates reads a collection and its split from path. A missing or
// corrupted artifact is a precondition failure.
func LoadCandidates(path string) (Candidates, string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, "", &PreconditionError{Op: "load candidates", Err: err}
	}
	defer f.Close()

	cands, mode, err := ReadCandidates(f)
	if err != nil {
		return nil, "", &PreconditionError{Op: "load candidates", Err: fmt.Errorf("%s: %w", path, err)}
	}
	return cands, mode, nil
}
