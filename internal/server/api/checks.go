package api

import (
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/ayusman/asana/internal/app"
	"github.com/ayusman/asana/internal/asana"
	"github.com/ayusman/asana/internal/store"
)

// DefaultMaxUploadBytes bounds an upload request body when no limit is configured.
const DefaultMaxUploadBytes = 64 << 20

// Messages returned to clients.
const (
	MessageCorrect   = "Correct Pose!"
	MessageIncorrect = "Incorrect Pose!"
	MessageNoPose    = "No pose detected in upload."
)

// Checker scores an uploaded file against an asana reference.
type Checker interface {
	Check(name, uploadPath string) (*app.Result, error)
}

// CheckHandler handles HTTP requests for check resources.
type CheckHandler struct {
	checker   Checker
	store     *store.Store
	uploadDir string
	maxBytes  int64
}

// NewCheckHandler creates a new CheckHandler. Uploads are written to uploadDir;
// s may be nil, in which case history endpoints report 503.
func NewCheckHandler(c Checker, s *store.Store, uploadDir string, maxBytes int64) *CheckHandler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxUploadBytes
	}
	return &CheckHandler{
		checker:   c,
		store:     s,
		uploadDir: uploadDir,
		maxBytes:  maxBytes,
	}
}

// ServeHTTP implements the http.Handler interface and routes requests to appropriate methods.
func (h *CheckHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	// Expected paths: /api/checks or /api/checks/{id}
	path := strings.TrimPrefix(r.URL.Path, "/api/checks")
	path = strings.TrimPrefix(path, "/")

	if path == "" {
		switch r.Method {
		case http.MethodGet:
			h.list(w, r)
		case http.MethodPost:
			h.create(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
		return
	}

	id := path
	switch r.Method {
	case http.MethodGet:
		h.get(w, r, id)
	case http.MethodDelete:
		h.delete(w, r, id)
	default:
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
	}
}

// Response types

type verdictResponse struct {
	ID       string  `json:"id"`
	Asana    string  `json:"asana"`
	Outcome  string  `json:"outcome"`
	Correct  bool    `json:"correct"`
	Distance float64 `json:"distance"`
	Result   string  `json:"result"`
}

type indeterminateResponse struct {
	Error   string `json:"error"`
	ID      string `json:"id"`
	Asana   string `json:"asana"`
	Outcome string `json:"outcome"`
	Reason  string `json:"reason"`
}

type referenceResponse struct {
	Path           string `json:"path"`
	Used           bool   `json:"used"`
	FramesDetected int    `json:"frames_detected"`
}

type checkResponse struct {
	ID             string              `json:"id"`
	Asana          string              `json:"asana"`
	Upload         string              `json:"upload"`
	Outcome        string              `json:"outcome"`
	Correct        bool                `json:"correct"`
	Distance       float64             `json:"distance"`
	Reason         string              `json:"reason,omitempty"`
	FramesRead     int                 `json:"frames_read"`
	FramesDetected int                 `json:"frames_detected"`
	References     []referenceResponse `json:"references,omitempty"`
	CreatedAt      string              `json:"created_at"`
}

type listChecksResponse struct {
	Checks []checkResponse `json:"checks"`
}

// toResponse converts a store.Check to a checkResponse.
func toResponse(c *store.Check) checkResponse {
	resp := checkResponse{
		ID:             c.ID,
		Asana:          c.Asana,
		Upload:         c.Upload,
		Outcome:        string(c.Outcome),
		Correct:        c.Outcome == store.OutcomeCorrect,
		Distance:       c.Distance,
		Reason:         c.Reason,
		FramesRead:     c.FramesRead,
		FramesDetected: c.FramesDetected,
		CreatedAt:      c.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
	}
	for _, ref := range c.References {
		resp.References = append(resp.References, referenceResponse{
			Path:           ref.Path,
			Used:           ref.Used,
			FramesDetected: ref.FramesDetected,
		})
	}
	return resp
}

// create handles POST /api/checks: a multipart form with an asana field and
// a poseImage file.
func (h *CheckHandler) create(w http.ResponseWriter, r *http.Request) {
	if h.checker == nil {
		writeError(w, http.StatusServiceUnavailable, "Pose checking is not available")
		return
	}

	r.Body = http.MaxBytesReader(w, r.Body, h.maxBytes)
	if err := r.ParseMultipartForm(h.maxBytes); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid multipart form")
		return
	}
	defer r.MultipartForm.RemoveAll()

	name := strings.TrimSpace(r.FormValue("asana"))
	if name == "" {
		writeError(w, http.StatusBadRequest, "asana is required")
		return
	}

	file, header, err := r.FormFile("poseImage")
	if err != nil {
		writeError(w, http.StatusBadRequest, "poseImage file is required")
		return
	}
	defer file.Close()

	uploadPath, err := h.saveUpload(file, header.Filename)
	if err != nil {
		log.Printf("Failed to save upload: %v", err)
		writeError(w, http.StatusInternalServerError, "Failed to save upload")
		return
	}

	result, err := h.checker.Check(name, uploadPath)
	if err != nil {
		if errors.Is(err, app.ErrNoTrainingData) {
			writeError(w, http.StatusNotFound, fmt.Sprintf("No training data found for %s.", name))
			return
		}
		log.Printf("Check failed for %s: %v", name, err)
		writeError(w, http.StatusInternalServerError, "Failed to check pose")
		return
	}

	if result.Verdict.Indeterminate() {
		message := MessageNoPose
		if result.Verdict.Reason != asana.ReasonNoPose {
			message = "Could not compare upload: " + result.Verdict.Reason + "."
		}
		writeJSON(w, http.StatusUnprocessableEntity, indeterminateResponse{
			Error:   message,
			ID:      result.ID,
			Asana:   result.Asana,
			Outcome: string(result.Verdict.Outcome),
			Reason:  result.Verdict.Reason,
		})
		return
	}

	message := MessageIncorrect
	if result.Verdict.Correct() {
		message = MessageCorrect
	}

	writeJSON(w, http.StatusOK, verdictResponse{
		ID:       result.ID,
		Asana:    result.Asana,
		Outcome:  string(result.Verdict.Outcome),
		Correct:  result.Verdict.Correct(),
		Distance: result.Verdict.Distance,
		Result:   message,
	})
}

// saveUpload copies an uploaded file into the upload directory under a
// UUID-prefixed name and returns its path.
func (h *CheckHandler) saveUpload(src io.Reader, filename string) (string, error) {
	if err := os.MkdirAll(h.uploadDir, 0755); err != nil {
		return "", err
	}

	base := filepath.Base(filepath.Clean("/" + filename))
	if base == "/" || base == "." {
		base = "upload"
	}
	path := filepath.Join(h.uploadDir, uuid.New().String()+"-"+base)

	dst, err := os.Create(path)
	if err != nil {
		return "", err
	}

	if _, err := io.Copy(dst, src); err != nil {
		dst.Close()
		os.Remove(path)
		return "", err
	}
	if err := dst.Close(); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// list handles GET /api/checks and returns the check history, newest first.
func (h *CheckHandler) list(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "Check history is disabled")
		return
	}

	limit := 0
	if v := r.URL.Query().Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "Invalid limit")
			return
		}
		limit = n
	}

	checks, err := h.store.Checks().List(r.URL.Query().Get("asana"), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list checks")
		return
	}

	response := listChecksResponse{
		Checks: make([]checkResponse, 0, len(checks)),
	}
	for _, c := range checks {
		response.Checks = append(response.Checks, toResponse(c))
	}

	writeJSON(w, http.StatusOK, response)
}

// get handles GET /api/checks/{id} and returns a single check.
func (h *CheckHandler) get(w http.ResponseWriter, r *http.Request, id string) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "Check history is disabled")
		return
	}

	check, err := h.store.Checks().GetByID(id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Check not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get check")
		return
	}

	writeJSON(w, http.StatusOK, toResponse(check))
}

// delete handles DELETE /api/checks/{id} and removes a check from the history.
func (h *CheckHandler) delete(w http.ResponseWriter, r *http.Request, id string) {
	if h.store == nil {
		writeError(w, http.StatusServiceUnavailable, "Check history is disabled")
		return
	}

	if err := h.store.Checks().Delete(id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Check not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to delete check")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
