// Package asana builds per-asana reference vectors from a dataset and scores submissions against them.
package asana

import (
	"log"

	"github.com/ayusman/asana/internal/pose"
)

// LandmarkExtractor turns a file into a landmark sequence.
type LandmarkExtractor interface {
	Extract(path string) pose.Extraction
}

// ReferenceSource produces the reference vector for an asana.
type ReferenceSource interface {
	AverageForAsana(name string) (*Reference, *Report)
}

// Reference is the representative landmark vector for an asana: the mean of
// the per-file mean vectors of every reference file that yielded landmarks.
type Reference struct {
	Asana  string
	Vector pose.Vector
	Files  int
}

// clone returns a copy of r that shares no memory with it.
func (r *Reference) clone() *Reference {
	if r == nil {
		return nil
	}
	c := *r
	c.Vector = append(pose.Vector(nil), r.Vector...)
	return &c
}

// FileReport records the extraction outcome of one reference file.
type FileReport struct {
	Path  string     `json:"path"`
	Stats pose.Stats `json:"stats"`
	Used  bool       `json:"used"`
}

// Report describes how a reference was (or was not) built.
type Report struct {
	Asana      string       `json:"asana"`
	Files      []FileReport `json:"files"`
	FilesUsed  int          `json:"files_used"`
	IndexError string       `json:"index_error,omitempty"`
	Cached     bool         `json:"cached"`
}

// Matched returns the number of dataset files that matched the asana.
func (r *Report) Matched() int {
	return len(r.Files)
}

// Aggregator computes asana reference vectors from a dataset index.
type Aggregator struct {
	index     Index
	extractor LandmarkExtractor
}

// NewAggregator creates an Aggregator reading reference files from index.
func NewAggregator(index Index, extractor LandmarkExtractor) *Aggregator {
	return &Aggregator{
		index:     index,
		extractor: extractor,
	}
}

// AverageForAsana extracts every reference file matching name, reduces each
// non-empty landmark sequence to its mean, and returns the mean of those means.
// Returns a nil Reference when no matching file produced any landmarks.
func (a *Aggregator) AverageForAsana(name string) (*Reference, *Report) {
	report := &Report{Asana: name}

	paths, err := a.index.Match(name)
	if err != nil {
		log.Printf("Failed to index dataset for %s: %v", name, err)
		report.IndexError = err.Error()
		return nil, report
	}

	var means []pose.Vector
	for _, path := range paths {
		extraction := a.extractor.Extract(path)
		fr := FileReport{Path: path, Stats: extraction.Stats}

		if mean, ok := extraction.Sequence.Mean(); ok {
			means = append(means, mean)
			fr.Used = true
			report.FilesUsed++
		} else {
			log.Printf("No landmarks in reference file %s", path)
		}
		report.Files = append(report.Files, fr)
	}

	if len(means) == 0 {
		return nil, report
	}

	avg, err := pose.Mean(means)
	if err != nil {
		log.Printf("Failed to average references for %s: %v", name, err)
		return nil, report
	}

	log.Printf("Built reference for %s from %d/%d files", name, report.FilesUsed, report.Matched())
	return &Reference{Asana: name, Vector: avg, Files: len(means)}, report
}
