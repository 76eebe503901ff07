// Package app wires the landmark extractor, reference aggregator, scorer and
// check history into the asana pose checker.
package app

import (
	"fmt"
	"log"
	"sync"

	"github.com/ayusman/asana/internal/asana"
	"github.com/ayusman/asana/internal/capture"
	"github.com/ayusman/asana/internal/detector"
	"github.com/ayusman/asana/internal/pose"
	"github.com/ayusman/asana/internal/store"
)

// Config holds configuration options for the application.
type Config struct {
	Store *store.Store
	// DatasetDir holds the reference files, matched by substring of the asana label.
	DatasetDir string
	// Manifest, when set, replaces substring matching with an explicit label to file map.
	Manifest string
	// CacheReferences keeps computed references in memory until the dataset changes.
	CacheReferences bool
	Detector        detector.Config
	// MockDetector skips MediaPipe entirely.
	MockDetector bool
	// Opener overrides how files are opened; nil uses capture.OpenFile.
	Opener capture.Opener
}

// App is the pose checker: it owns the pose detector and scores uploads
// against per-asana references.
type App struct {
	config     Config
	index      asana.Index
	detector   detector.Detector
	references asana.ReferenceSource
	scorer     *asana.Scorer
	onVerdict  func(*Result)
	mu         sync.RWMutex
}

// New creates a new App instance with the given configuration.
func New(config Config) (*App, error) {
	index, err := newIndex(config)
	if err != nil {
		return nil, err
	}

	a := &App{
		config: config,
		index:  index,
	}

	// Try MediaPipe first, fall back to mock detector
	if config.MockDetector {
		log.Println("Using mock pose detector")
		a.detector = detector.NewMockDetector()
	} else if mp, err := detector.NewMediaPipeDetector(config.Detector); err == nil {
		a.detector = mp
		log.Println("Using MediaPipe pose detection")
	} else {
		log.Printf("MediaPipe not available (%v), using mock detector", err)
		a.detector = detector.NewMockDetector()
	}

	a.wire()
	return a, nil
}

func newIndex(config Config) (asana.Index, error) {
	if config.Manifest != "" {
		m, err := asana.LoadManifest(config.Manifest)
		if err != nil {
			return nil, fmt.Errorf("load dataset manifest: %w", err)
		}
		log.Printf("Loaded dataset manifest with %d asanas", len(m.Labels()))
		return m, nil
	}
	return asana.NewSubstringIndex(config.DatasetDir), nil
}

// wire rebuilds the extractor chain around the current detector.
// Callers must hold a.mu or be the constructor.
func (a *App) wire() {
	extractor := pose.NewExtractor(a.detector, a.config.Opener)

	var refs asana.ReferenceSource = asana.NewAggregator(a.index, extractor)
	if a.config.CacheReferences {
		refs = asana.NewCachedAggregator(refs, a.index)
	}

	a.references = refs
	a.scorer = asana.NewScorer(extractor)
}

// SetDetector replaces the pose detector. The previous detector is not closed.
func (a *App) SetDetector(d detector.Detector) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.detector = d
	a.wire()
}

// Detector returns the pose detector.
func (a *App) Detector() detector.Detector {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.detector
}

// OnVerdict registers fn to be called after every completed check.
func (a *App) OnVerdict(fn func(*Result)) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.onVerdict = fn
}

// Reference returns the reference for an asana without scoring anything.
func (a *App) Reference(name string) (*asana.Reference, *asana.Report) {
	a.mu.RLock()
	refs := a.references
	a.mu.RUnlock()
	return refs.AverageForAsana(name)
}

// Close releases the pose detector.
func (a *App) Close() error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.detector == nil {
		return nil
	}
	if err := a.detector.Close(); err != nil {
		log.Printf("Error closing detector: %v", err)
		return err
	}
	return nil
}
