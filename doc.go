/*
Package hardmine prepares labeled training crops for the stages of a cascaded face detector.

Candidate boxes proposed by an upstream detector are squared, matched against the
ground truth of their image by intersection over union and sorted into positive,
part and negative samples together with their bounding box regression targets.
Negatives of the coarse stages are subsampled in favour of hard examples.

The package provides a command line interface covering the candidate collection
and the mining stages. To check the supported flags type:

	$ hardmine --help

In case you wish to integrate the API in a self constructed environment here is a simple example:

	package main

	import (
		"context"

		"github.com/cyclopcam/logs"
		"github.com/esimov/hardmine"
	)

	func main() {
		log, _ := logs.NewLog()
		ds, _ := hardmine.LoadAnnotations("train.txt", "images", "train")
		cands, _, _ := hardmine.LoadCandidates("cands_train_24.cbor")

		w, _ := hardmine.NewWriter(hardmine.Layout{DataDir: "data", NetSize: 24, Mode: "train"})
		defer w.Close()

		miner, _ := hardmine.NewMiner(log, hardmine.DefaultOptions())
		stats, err := miner.MineHardExamples(context.Background(), ds, cands, w)
		if err != nil {
			log.Errorf("Error mining hard examples: %v", err)
		}
		log.Infof("%s", stats)
	}
*/
package hardmine
