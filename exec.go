package hardmine

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/esimov/hardmine/utils"
)

// The stages a run can execute.
const (
	StageCollect = "collect"
	StageMine    = "mine"
	StageGT      = "gt"
)

// Ops describes one run of the tool.
type Ops struct {
	Stage       string
	Annotations string
	ImageRoot   string
	// CandidatesPath is the artifact written by the collect stage and read by the mine stage.
	CandidatesPath string
	Cascade        string

	Layout   Layout
	Options  *Options
	Detector DetectorOptions
	Spinner  *utils.Spinner
}

// Execute runs the stage selected in op and logs a summary of the outcome.
func Execute(ctx context.Context, log logs.Log, op *Ops) error {
	now := time.Now()

	ds, err := LoadAnnotations(op.Annotations, op.ImageRoot, op.Layout.Mode)
	if err != nil {
		return err
	}

	if op.Spinner != nil {
		op.Spinner.Start()
		defer op.Spinner.Stop()
	}

	switch op.Stage {
	case StageCollect:
		err = op.collect(ctx, log, ds)
	case StageMine:
		err = op.mine(ctx, log, ds)
	case StageGT:
		err = op.groundTruth(ctx, log, ds)
	default:
		return fmt.Errorf("unknown stage %q", op.Stage)
	}
	if err != nil {
		return err
	}
	log.Infof("%s stage finished in %s", op.Stage, utils.FormatTime(time.Since(now)))
	return nil
}

func (op *Ops) collect(ctx context.Context, log logs.Log, ds *Dataset) error {
	det, err := NewPigoDetector(op.Cascade, op.Detector)
	if err != nil {
		return err
	}
	cands, err := Collect(ctx, log, det, ds)
	if err != nil {
		return err
	}
	if err := SaveCandidates(op.CandidatesPath, ds.Mode, cands); err != nil {
		return fmt.Errorf("unable to save the candidates: %w", err)
	}
	log.Infof("Saved %d candidate sets to %s", len(cands), op.CandidatesPath)
	return nil
}

func (op *Ops) mine(ctx context.Context, log logs.Log, ds *Dataset) error {
	cands, mode, err := LoadCandidates(op.CandidatesPath)
	if err != nil {
		return err
	}
	if mode != ds.Mode {
		return &PreconditionError{
			Op:  "load candidates",
			Err: fmt.Errorf("%w: %s holds %q candidates, annotations are %q", ErrModeMismatch, op.CandidatesPath, mode, ds.Mode),
		}
	}
	miner, err := NewMiner(log, op.Options)
	if err != nil {
		return err
	}
	op.trackProgress(miner)
	w, err := NewWriter(op.Layout)
	if err != nil {
		return err
	}
	stats, err := miner.MineHardExamples(ctx, ds, cands, w)
	return op.finish(log, w, stats, err)
}

func (op *Ops) groundTruth(ctx context.Context, log logs.Log, ds *Dataset) error {
	miner, err := NewMiner(log, op.Options)
	if err != nil {
		return err
	}
	op.trackProgress(miner)
	w, err := NewWriter(op.Layout, Positive)
	if err != nil {
		return err
	}
	stats, err := miner.MineGroundTruth(ctx, ds, w)
	return op.finish(log, w, stats, err)
}

// trackProgress shows the miner's image count next to the spinner.
func (op *Ops) trackProgress(m *Miner) {
	if op.Spinner == nil {
		return
	}
	m.Progress = func(done, total int) {
		op.Spinner.Update(fmt.Sprintf("%s %s",
			utils.DecorateText("⚡ HARDMINE", utils.StatusMessage),
			utils.DecorateText(fmt.Sprintf("%s stage: %d/%d images", op.Stage, done, total), utils.DefaultMessage)))
	}
}

// finish closes the writer and reports the statistics, even for a failed pass.
func (op *Ops) finish(log logs.Log, w *Writer, stats Stats, err error) error {
	if cerr := w.Close(); err == nil {
		err = cerr
	}
	log.Infof("%s", stats)
	if op.Spinner != nil {
		var msg string
		switch {
		case err == nil:
			msg = utils.DecorateText("✔ "+stats.String()+"\n", utils.SuccessMessage)
		case errors.Is(err, context.Canceled):
			msg = utils.DecorateText("⚠ pass interrupted, partial output kept\n", utils.WarningMessage)
		default:
			msg = utils.DecorateText("✘ pass aborted\n", utils.ErrorMessage)
		}
		op.Spinner.StopMsg = msg
	}
	return err
}

// fileExists reports whether path names an existing regular file.
func fileExists(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// Validate checks the paths every stage depends on before any work starts.
func (op *Ops) Validate() error {
	if !fileExists(op.Annotations) {
		return &PreconditionError{Op: "validate", Err: fmt.Errorf("annotation file %q not found", op.Annotations)}
	}
	switch op.Stage {
	case StageCollect:
		if op.Cascade == "" {
			return &PreconditionError{Op: "validate", Err: fmt.Errorf("the collect stage needs a cascade file")}
		}
	case StageMine:
		if !fileExists(op.CandidatesPath) {
			return &PreconditionError{Op: "validate", Err: fmt.Errorf("candidate artifact %q not found", op.CandidatesPath)}
		}
	}
	if op.Stage != StageCollect && op.Layout.NetSize <= 0 {
		return fmt.Errorf("invalid net size %d", op.Layout.NetSize)
	}
	return nil
}
