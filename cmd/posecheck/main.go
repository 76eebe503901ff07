// Command posecheck scores one video, gif or image against an asana reference
// built from a dataset directory and prints the verdict.
//
//	posecheck -dataset ./dataset -asana tree attempt.mp4
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"

	"github.com/ayusman/asana/internal/app"
	"github.com/ayusman/asana/internal/config"
	"github.com/ayusman/asana/internal/detector"
)

func main() {
	configPath := flag.String("config", "", "path to asana.yaml")
	datasetDir := flag.String("dataset", "", "dataset directory, overrides dataset.dir")
	manifest := flag.String("manifest", "", "dataset manifest, overrides dataset.manifest")
	asanaName := flag.String("asana", "", "asana to check against (required)")
	asJSON := flag.Bool("json", false, "print the full result as JSON")
	quiet := flag.Bool("quiet", false, "suppress diagnostic logging")
	flag.Usage = func() {
		fmt.Fprintf(flag.CommandLine.Output(), "Usage: %s -asana NAME [flags] FILE\n", os.Args[0])
		flag.PrintDefaults()
	}
	flag.Parse()

	if *asanaName == "" || flag.NArg() != 1 {
		flag.Usage()
		os.Exit(2)
	}
	if *quiet {
		log.SetOutput(io.Discard)
	}

	cfg := config.Default()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}
		cfg = loaded
	}
	if *datasetDir != "" {
		cfg.Dataset.Dir = *datasetDir
	}
	if *manifest != "" {
		cfg.Dataset.Manifest = *manifest
	}

	application, err := app.New(app.Config{
		DatasetDir:   cfg.Dataset.Dir,
		Manifest:     cfg.Dataset.Manifest,
		MockDetector: cfg.Detector.Mock,
		Detector: detector.Config{
			ModelComplexity: cfg.Detector.ModelComplexity,
			MinConfidence:   cfg.Detector.MinConfidence,
			MinTrackingConf: cfg.Detector.MinTrackingConf,
			StaticImageMode: cfg.Detector.StaticImageMode,
			ScriptPath:      cfg.Detector.ScriptPath,
			PythonPath:      cfg.Detector.PythonPath,
			IdleTimeout:     cfg.Detector.IdleTimeout,
		},
	})
	if err != nil {
		log.Fatalf("Failed to initialize app: %v", err)
	}

	result, err := application.Check(*asanaName, flag.Arg(0))
	application.Close()

	if errors.Is(err, app.ErrNoTrainingData) {
		fmt.Printf("No training data found for %s.\n", *asanaName)
		os.Exit(3)
	}
	if err != nil {
		log.Fatalf("Check failed: %v", err)
	}

	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			log.Fatalf("Failed to encode result: %v", err)
		}
	} else {
		printResult(result)
	}

	if !result.Verdict.Correct() {
		os.Exit(1)
	}
}

func printResult(r *app.Result) {
	switch {
	case r.Verdict.Indeterminate():
		fmt.Printf("Could not check pose: %s.\n", r.Verdict.Reason)
	case r.Verdict.Correct():
		fmt.Printf("Correct Pose! (distance %.4f)\n", r.Verdict.Distance)
	default:
		fmt.Printf("Incorrect Pose! (distance %.4f)\n", r.Verdict.Distance)
	}
	fmt.Printf("Frames: %d read, %d with a pose\n", r.Stats.FramesRead, r.Stats.FramesDetected)
	if r.Report != nil {
		fmt.Printf("Reference: %d of %d files used\n", r.Report.FilesUsed, r.Report.Matched())
	}
}
