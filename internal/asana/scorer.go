package asana

import (
	"log"

	"github.com/ayusman/asana/internal/pose"
)

// Threshold is the maximum Euclidean distance, exclusive, between a
// submission's mean vector and the reference for the pose to count as correct.
// It applies to every asana alike.
const Threshold = 0.1

// Outcome is the result category of a comparison.
type Outcome string

const (
	// OutcomeCorrect means the submission is within Threshold of the reference.
	OutcomeCorrect Outcome = "correct"
	// OutcomeIncorrect means the submission is Threshold or further from the reference.
	OutcomeIncorrect Outcome = "incorrect"
	// OutcomeIndeterminate means no comparison was possible.
	OutcomeIndeterminate Outcome = "indeterminate"
)

// Reasons attached to indeterminate verdicts.
const (
	ReasonNoReference    = "no reference available"
	ReasonNoPose         = "no pose detected in submission"
	ReasonLengthMismatch = "landmark layout differs from reference"
)

// Verdict is the outcome of scoring a submission.
// Distance is only meaningful when Outcome is not OutcomeIndeterminate.
type Verdict struct {
	Outcome  Outcome `json:"outcome"`
	Distance float64 `json:"distance"`
	Reason   string  `json:"reason,omitempty"`
}

// Correct reports whether the verdict is OutcomeCorrect.
func (v Verdict) Correct() bool {
	return v.Outcome == OutcomeCorrect
}

// Indeterminate reports whether no comparison could be made.
func (v Verdict) Indeterminate() bool {
	return v.Outcome == OutcomeIndeterminate
}

// Scorer compares uploaded submissions against asana references.
type Scorer struct {
	extractor LandmarkExtractor
}

// NewScorer creates a Scorer that extracts submissions with extractor.
func NewScorer(extractor LandmarkExtractor) *Scorer {
	return &Scorer{extractor: extractor}
}

// Score extracts the upload at path and compares its mean landmark vector to ref.
// A nil ref or an upload with no detected pose yields OutcomeIndeterminate.
func (s *Scorer) Score(path string, ref *Reference) (Verdict, pose.Stats) {
	if ref == nil || len(ref.Vector) == 0 {
		return Verdict{Outcome: OutcomeIndeterminate, Reason: ReasonNoReference}, pose.Stats{}
	}

	extraction := s.extractor.Extract(path)
	mean, ok := extraction.Sequence.Mean()
	if !ok {
		return Verdict{Outcome: OutcomeIndeterminate, Reason: ReasonNoPose}, extraction.Stats
	}

	v := Judge(mean, ref.Vector)
	if !v.Indeterminate() {
		log.Printf("Distance to %s reference: %.4f (%s)", ref.Asana, v.Distance, v.Outcome)
	}
	return v, extraction.Stats
}

// CompareUploadedVideo reports whether the upload at path matches ref.
// Indeterminate comparisons report false; use Score to tell them apart.
func (s *Scorer) CompareUploadedVideo(path string, ref *Reference) bool {
	v, _ := s.Score(path, ref)
	return v.Correct()
}

// Judge compares a submission mean vector to a reference vector.
// The pose is correct when the distance is strictly less than Threshold.
func Judge(submission, reference pose.Vector) Verdict {
	distance, err := pose.Distance(submission, reference)
	if err != nil {
		return Verdict{Outcome: OutcomeIndeterminate, Reason: ReasonLengthMismatch}
	}

	if distance < Threshold {
		return Verdict{Outcome: OutcomeCorrect, Distance: distance}
	}
	return Verdict{Outcome: OutcomeIncorrect, Distance: distance}
}
