package pose

import (
	"errors"
	"io"
	"log"

	"gocv.io/x/gocv"

	"github.com/ayusman/asana/internal/capture"
	"github.com/ayusman/asana/internal/detector"
)

// Stats counts what happened to the frames of one file during extraction.
type Stats struct {
	FramesRead     int  `json:"frames_read"`
	FramesSkipped  int  `json:"frames_skipped"`
	DetectErrors   int  `json:"detect_errors"`
	FramesDetected int  `json:"frames_detected"`
	OpenFailed     bool `json:"open_failed"`
	ReadFailed     bool `json:"read_failed"`
}

// Extraction is the result of extracting landmarks from one file.
type Extraction struct {
	Path     string
	Sequence Sequence
	Stats    Stats
}

// Empty reports whether no frame produced a landmark vector.
func (e Extraction) Empty() bool {
	return len(e.Sequence) == 0
}

// Extractor turns video and gif files into landmark sequences.
type Extractor struct {
	detector detector.Detector
	open     capture.Opener
}

// NewExtractor creates an Extractor that runs d on every frame.
// If open is nil, files are opened with capture.OpenFile.
func NewExtractor(d detector.Detector, open capture.Opener) *Extractor {
	if open == nil {
		open = capture.OpenFile
	}
	return &Extractor{
		detector: d,
		open:     open,
	}
}

// Extract reads every frame of the file at path and returns one landmark
// vector per frame in which a pose was detected.
//
// Extract never fails: an unreadable file yields an empty sequence with
// Stats.OpenFailed set, and malformed frames are counted and skipped.
// The frame source is closed before returning on every path. A sequential
// detector is held for the whole file so frames of concurrent extractions
// never interleave.
func (e *Extractor) Extract(path string) Extraction {
	result := Extraction{Path: path}

	src, err := e.open(path)
	if err != nil {
		log.Printf("Error reading %s: %v", path, err)
		result.Stats.OpenFailed = true
		return result
	}
	defer func() {
		if err := src.Close(); err != nil {
			log.Printf("Error closing %s: %v", path, err)
		}
	}()

	if seq, ok := e.detector.(detector.Sequential); ok {
		end := seq.Begin()
		defer end()
	}

	for {
		frame, err := src.ReadFrame()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			log.Printf("Error reading frame %d of %s: %v", result.Stats.FramesRead, path, err)
			result.Stats.ReadFailed = true
			break
		}

		result.Stats.FramesRead++
		if vec := e.processFrame(path, frame, &result.Stats); vec != nil {
			result.Sequence = append(result.Sequence, vec)
		}
	}

	result.Stats.FramesDetected = len(result.Sequence)
	return result
}

// processFrame normalizes and runs detection on a single frame, closing it when done.
// Returns nil when the frame contributes nothing.
func (e *Extractor) processFrame(path string, frame *gocv.Mat, stats *Stats) Vector {
	defer frame.Close()

	normalized, err := capture.NormalizeChannels(frame)
	if err != nil {
		log.Printf("Skipping frame %d of %s: %v", stats.FramesRead, path, err)
		stats.FramesSkipped++
		return nil
	}
	defer normalized.Close()

	landmarks, err := e.detector.Detect(normalized)
	if err != nil {
		log.Printf("Error detecting pose in frame %d of %s: %v", stats.FramesRead, path, err)
		stats.DetectErrors++
		return nil
	}
	if landmarks == nil {
		return nil
	}

	return Vector(landmarks.Vector())
}
