package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/cyclopcam/logs"
	"github.com/esimov/hardmine"
	"github.com/esimov/hardmine/utils"
	"golang.org/x/term"
)

const HelpBanner = `
┬ ┬┌─┐┬─┐┌┬┐┌┬┐┬┌┐┌┌─┐
├─┤├─┤├┬┘ ││││││││││├┤
┴ ┴┴ ┴┴└──┴┘┴ ┴┴┘└┘└─┘

Hard example mining for cascaded face detectors.
    Version: %s

`

// Version indicates the current build version.
var Version string

var (
	// Flags
	stage       = flag.String("stage", hardmine.StageMine, "Stage to run: collect, mine or gt")
	annotations = flag.String("anno", "", "Annotation list file")
	imageRoot   = flag.String("images", "", "Root directory of the annotated images")
	candidates  = flag.String("cands", "", "Candidate artifact written by collect and read by mine")
	cascade     = flag.String("cc", "", "Cascade classifier used by the collect stage")

	dataDir = flag.String("data", ".", "Output data directory")
	netSize = flag.Int("size", 24, "Input size of the cascade stage")
	mode    = flag.String("mode", "train", "Dataset split")
	tag     = flag.String("tag", "", "Name tag inserted after the mode in output names")
	ext     = flag.String("ext", ".jpg", "Sample image extension")
	quality = flag.Int("quality", 95, "JPEG quality")
	resume  = flag.Bool("resume", false, "Continue numbering from existing label files")

	negThresh   = flag.Float64("neg", 0.3, "IoU below which a candidate is negative")
	partThresh  = flag.Float64("part", 0.4, "IoU from which a candidate is a part face")
	posThresh   = flag.Float64("pos", 0.65, "IoU from which a candidate is a positive")
	minCand     = flag.Int("mincand", 20, "Minimum squared candidate width")
	minFace     = flag.Int("minface", 24, "Minimum ground truth face size of the gt stage")
	geoMean     = flag.Bool("geomean", false, "Use sqrt(w*h) as the gt square side")
	dropProb    = flag.Float64("drop", 0.7, "Probability of dropping a coarse stage negative")
	minScore    = flag.Float64("minscore", 0.6, "Detector score below which coarse stage negatives are dropped")
	coarseSizes = flag.String("coarse", "18,24", "Cascade sizes using hard negative sampling")
	seed        = flag.Uint64("seed", 1, "Seed of the negative sampler")
	skipBad     = flag.Bool("skipbad", false, "Skip unreadable images instead of aborting")

	minSize    = flag.Int("minsize", 20, "Minimum face size searched by the detector")
	maxSize    = flag.Int("maxsize", 1000, "Maximum face size searched by the detector")
	shift      = flag.Float64("shift", 0.1, "Detector shift factor")
	scale      = flag.Float64("scale", 1.1, "Detector scale factor")
	angle      = flag.Float64("angle", 0.0, "Plane rotated faces angle")
	iou        = flag.Float64("iou", 0.2, "Detector clustering IoU threshold")
	minQuality = flag.Float64("minq", 5, "Minimum detector quality")
)

func main() {
	log.SetFlags(0)

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, HelpBanner, Version)
		flag.PrintDefaults()
	}
	flag.Parse()

	if *annotations == "" {
		flag.Usage()
		log.Fatal(utils.DecorateText("\nPlease provide an annotation file!", utils.ErrorMessage))
	}

	sizes, err := hardmine.ParseSizes(*coarseSizes)
	if err != nil {
		log.Fatal(utils.DecorateText(err.Error(), utils.ErrorMessage))
	}

	opts := hardmine.DefaultOptions()
	opts.Thresholds = hardmine.Thresholds{
		Negative: *negThresh,
		Part:     *partThresh,
		Positive: *posThresh,
	}
	opts.MinCandidateSize = *minCand
	opts.MinFaceSize = *minFace
	opts.GTSideGeoMean = *geoMean
	opts.DropProbability = *dropProb
	opts.MinNegativeScore = *minScore
	opts.CoarseSizes = sizes
	opts.Seed = *seed
	opts.SkipUnreadable = *skipBad

	op := &hardmine.Ops{
		Stage:          *stage,
		Annotations:    *annotations,
		ImageRoot:      *imageRoot,
		CandidatesPath: *candidates,
		Cascade:        *cascade,
		Layout: hardmine.Layout{
			DataDir: *dataDir,
			NetSize: *netSize,
			Mode:    *mode,
			Tag:     *tag,
			Ext:     *ext,
			Quality: *quality,
			Resume:  *resume,
		},
		Options: opts,
		Detector: hardmine.DetectorOptions{
			MinSize:      *minSize,
			MaxSize:      *maxSize,
			ShiftFactor:  *shift,
			ScaleFactor:  *scale,
			Angle:        *angle,
			IoUThreshold: *iou,
			MinQuality:   *minQuality,
		},
	}
	if op.CandidatesPath == "" {
		op.CandidatesPath = fmt.Sprintf("%s/%d/cands_%s_%s%d.cbor", *dataDir, *netSize, *mode, *tag, *netSize)
	}
	if err := op.Validate(); err != nil {
		log.Fatal(utils.DecorateText(err.Error(), utils.ErrorMessage))
	}

	if term.IsTerminal(int(os.Stderr.Fd())) {
		spinnerText := fmt.Sprintf("%s %s",
			utils.DecorateText("⚡ HARDMINE", utils.StatusMessage),
			utils.DecorateText(fmt.Sprintf("is running the %s stage...", *stage), utils.DefaultMessage))
		op.Spinner = utils.NewSpinner(os.Stderr, spinnerText, time.Millisecond*200, true)
	}

	logger, err := logs.NewLog()
	if err != nil {
		log.Fatalf("unable to create the logger: %v", err)
	}
	defer logger.Close()

	// Ctrl-C stops the pass between two images.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := hardmine.Execute(ctx, logger, op); err != nil {
		var pe *hardmine.PreconditionError
		switch {
		case errors.As(err, &pe):
			logger.Criticalf("Precondition failed: %v", err)
		case errors.Is(err, context.Canceled):
			logger.Warnf("The %s stage was interrupted", *stage)
		default:
			logger.Errorf("The %s stage failed: %v", *stage, err)
		}
		logger.Close()
		os.Exit(1)
	}
}
