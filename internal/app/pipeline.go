package app

import (
	"errors"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ayusman/asana/internal/asana"
	"github.com/ayusman/asana/internal/pose"
	"github.com/ayusman/asana/internal/store"
)

var (
	// ErrNoTrainingData is returned when no dataset file for the asana yields landmarks.
	ErrNoTrainingData = errors.New("no training data")
	// ErrNoAsana is returned when the asana label is blank.
	ErrNoAsana = errors.New("asana name is required")
)

// Result is the outcome of one check.
type Result struct {
	ID        string        `json:"id"`
	Asana     string        `json:"asana"`
	Upload    string        `json:"upload"`
	Verdict   asana.Verdict `json:"verdict"`
	Stats     pose.Stats    `json:"stats"`
	Report    *asana.Report `json:"report"`
	CreatedAt time.Time     `json:"created_at"`
}

// Check scores the upload at uploadPath against the reference for name.
//
// Pipeline:
// 1. Build (or fetch) the asana reference from the dataset
// 2. Stop with ErrNoTrainingData if there is none; the upload is not read
// 3. Extract and score the upload
// 4. Record the check in the store, if one is configured
// 5. Notify the verdict listener
func (a *App) Check(name, uploadPath string) (*Result, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrNoAsana
	}

	a.mu.RLock()
	refs, scorer, listener := a.references, a.scorer, a.onVerdict
	a.mu.RUnlock()

	ref, report := refs.AverageForAsana(name)
	if ref == nil {
		log.Printf("No training data for %s (%d files matched)", name, report.Matched())
		return nil, fmt.Errorf("%w for %s", ErrNoTrainingData, name)
	}

	verdict, stats := scorer.Score(uploadPath, ref)

	result := &Result{
		Asana:     name,
		Upload:    filepath.Base(uploadPath),
		Verdict:   verdict,
		Stats:     stats,
		Report:    report,
		CreatedAt: time.Now().UTC(),
	}

	a.record(result)

	log.Printf("Checked %s against %s: %s", result.Upload, name, verdict.Outcome)

	if listener != nil {
		listener(result)
	}
	return result, nil
}

// record persists the check. Store failures are logged and do not fail the check.
func (a *App) record(r *Result) {
	if a.config.Store == nil {
		r.ID = uuid.New().String()
		return
	}

	c := &store.Check{
		Asana:          r.Asana,
		Upload:         r.Upload,
		Outcome:        store.Outcome(r.Verdict.Outcome),
		Distance:       r.Verdict.Distance,
		Reason:         r.Verdict.Reason,
		FramesRead:     r.Stats.FramesRead,
		FramesDetected: r.Stats.FramesDetected,
	}
	if r.Report != nil {
		for _, f := range r.Report.Files {
			c.References = append(c.References, store.ReferenceFile{
				Path:           f.Path,
				Used:           f.Used,
				FramesDetected: f.Stats.FramesDetected,
			})
		}
	}

	if err := a.config.Store.Checks().Create(c); err != nil {
		log.Printf("Failed to record check for %s: %v", r.Asana, err)
		r.ID = uuid.New().String()
		return
	}
	r.ID = c.ID
	r.CreatedAt = c.CreatedAt
}
