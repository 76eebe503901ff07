package api

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/ayusman/asana/internal/app"
	"github.com/ayusman/asana/internal/asana"
	"github.com/ayusman/asana/internal/store"
)

// newTestStore creates a new Store with a temporary database for testing.
func newTestStore(t *testing.T) *store.Store {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "asana-api-test-*")
	if err != nil {
		t.Fatalf("failed to create temp dir: %v", err)
	}
	t.Cleanup(func() {
		os.RemoveAll(tmpDir)
	})

	dbPath := filepath.Join(tmpDir, "test.db")
	s, err := store.New(dbPath)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() {
		s.Close()
	})

	return s
}

// fakeChecker returns a canned verdict and records the uploaded paths.
type fakeChecker struct {
	verdict asana.Verdict
	err     error
	asanas  []string
	paths   []string
}

func (f *fakeChecker) Check(name, uploadPath string) (*app.Result, error) {
	f.asanas = append(f.asanas, name)
	f.paths = append(f.paths, uploadPath)
	if f.err != nil {
		return nil, f.err
	}
	return &app.Result{ID: "check-1", Asana: name, Verdict: f.verdict}, nil
}

// newUploadRequest builds a multipart POST /api/checks request.
// Empty asana or filename omit the corresponding field.
func newUploadRequest(t *testing.T, asanaName, filename string, content []byte) *http.Request {
	t.Helper()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)
	if asanaName != "" {
		if err := mw.WriteField("asana", asanaName); err != nil {
			t.Fatalf("failed to write field: %v", err)
		}
	}
	if filename != "" {
		fw, err := mw.CreateFormFile("poseImage", filename)
		if err != nil {
			t.Fatalf("failed to create form file: %v", err)
		}
		fw.Write(content)
	}
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/checks", &body)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(v); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

func TestCheckHandler_Create(t *testing.T) {
	tests := []struct {
		name       string
		verdict    asana.Verdict
		err        error
		wantStatus int
		wantResult string
		wantError  string
	}{
		{
			name:       "correct pose",
			verdict:    asana.Verdict{Outcome: asana.OutcomeCorrect, Distance: 0.05},
			wantStatus: http.StatusOK,
			wantResult: MessageCorrect,
		},
		{
			name:       "incorrect pose",
			verdict:    asana.Verdict{Outcome: asana.OutcomeIncorrect, Distance: 0.4},
			wantStatus: http.StatusOK,
			wantResult: MessageIncorrect,
		},
		{
			name:       "no pose in upload",
			verdict:    asana.Verdict{Outcome: asana.OutcomeIndeterminate, Reason: asana.ReasonNoPose},
			wantStatus: http.StatusUnprocessableEntity,
			wantError:  MessageNoPose,
		},
		{
			name:       "no training data",
			err:        fmt.Errorf("%w for Tree", app.ErrNoTrainingData),
			wantStatus: http.StatusNotFound,
			wantError:  "No training data found for Tree.",
		},
		{
			name:       "unexpected failure",
			err:        errors.New("boom"),
			wantStatus: http.StatusInternalServerError,
			wantError:  "Failed to check pose",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checker := &fakeChecker{verdict: tt.verdict, err: tt.err}
			uploadDir := t.TempDir()
			handler := NewCheckHandler(checker, nil, uploadDir, 0)

			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, newUploadRequest(t, "Tree", "me.mp4", []byte("video")))

			if rec.Code != tt.wantStatus {
				t.Fatalf("expected status %d, got %d: %s", tt.wantStatus, rec.Code, rec.Body.String())
			}

			var response map[string]interface{}
			decodeBody(t, rec, &response)

			if tt.wantResult != "" && response["result"] != tt.wantResult {
				t.Errorf("expected result %q, got %v", tt.wantResult, response["result"])
			}
			if tt.wantError != "" && response["error"] != tt.wantError {
				t.Errorf("expected error %q, got %v", tt.wantError, response["error"])
			}

			if len(checker.paths) != 1 {
				t.Fatalf("expected 1 check call, got %d", len(checker.paths))
			}
			if checker.asanas[0] != "Tree" {
				t.Errorf("expected asana Tree, got %q", checker.asanas[0])
			}
		})
	}
}

func TestCheckHandler_Create_SavesUpload(t *testing.T) {
	checker := &fakeChecker{verdict: asana.Verdict{Outcome: asana.OutcomeCorrect}}
	uploadDir := filepath.Join(t.TempDir(), "uploads")
	handler := NewCheckHandler(checker, nil, uploadDir, 0)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newUploadRequest(t, "tree", "../../etc/me.gif", []byte("GIF89a")))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}

	saved := checker.paths[0]
	if filepath.Dir(saved) != uploadDir {
		t.Errorf("upload saved outside the upload dir: %s", saved)
	}
	if !strings.HasSuffix(saved, "-me.gif") {
		t.Errorf("expected UUID-prefixed base name, got %s", filepath.Base(saved))
	}

	data, err := os.ReadFile(saved)
	if err != nil {
		t.Fatalf("failed to read saved upload: %v", err)
	}
	if string(data) != "GIF89a" {
		t.Errorf("saved content = %q", data)
	}

	var response verdictResponse
	decodeBody(t, rec, &response)
	if !response.Correct || response.Outcome != "correct" || response.ID != "check-1" {
		t.Errorf("unexpected response: %+v", response)
	}
}

func TestCheckHandler_Create_BadRequests(t *testing.T) {
	checker := &fakeChecker{}
	handler := NewCheckHandler(checker, nil, t.TempDir(), 0)

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"missing asana", newUploadRequest(t, "", "me.mp4", []byte("x"))},
		{"missing file", newUploadRequest(t, "tree", "", nil)},
		{"not multipart", httptest.NewRequest(http.MethodPost, "/api/checks", strings.NewReader(`{"asana":"tree"}`))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, tt.req)

			if rec.Code != http.StatusBadRequest {
				t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
			}
		})
	}

	if len(checker.paths) != 0 {
		t.Errorf("checker should not be called for bad requests, got %d calls", len(checker.paths))
	}
}

func TestCheckHandler_Create_TooLarge(t *testing.T) {
	checker := &fakeChecker{}
	handler := NewCheckHandler(checker, nil, t.TempDir(), 1024)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newUploadRequest(t, "tree", "big.mp4", bytes.Repeat([]byte("x"), 4096)))

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected status %d, got %d", http.StatusBadRequest, rec.Code)
	}
}

func TestCheckHandler_Create_NoChecker(t *testing.T) {
	handler := NewCheckHandler(nil, nil, t.TempDir(), 0)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, newUploadRequest(t, "tree", "me.mp4", []byte("x")))

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
}

func TestCheckHandler_List(t *testing.T) {
	s := newTestStore(t)
	handler := NewCheckHandler(nil, s, t.TempDir(), 0)

	for _, c := range []*store.Check{
		{ID: "a", Asana: "tree", Upload: "1.mp4", Outcome: store.OutcomeCorrect, Distance: 0.03},
		{ID: "b", Asana: "warrior", Upload: "2.mp4", Outcome: store.OutcomeIncorrect, Distance: 0.3},
	} {
		if err := s.Checks().Create(c); err != nil {
			t.Fatalf("failed to create check: %v", err)
		}
	}

	t.Run("lists every check", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/checks", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Fatalf("expected status 200, got %d", rec.Code)
		}

		var response listChecksResponse
		decodeBody(t, rec, &response)
		if len(response.Checks) != 2 {
			t.Fatalf("expected 2 checks, got %d", len(response.Checks))
		}
		if response.Checks[0].ID != "b" {
			t.Errorf("expected newest first, got %s", response.Checks[0].ID)
		}
	})

	t.Run("filters by asana", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/checks?asana=Tree", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		var response listChecksResponse
		decodeBody(t, rec, &response)
		if len(response.Checks) != 1 || response.Checks[0].ID != "a" {
			t.Fatalf("expected only the tree check, got %+v", response.Checks)
		}
		if !response.Checks[0].Correct {
			t.Error("expected correct flag on a correct check")
		}
	})

	t.Run("rejects a bad limit", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/checks?limit=abc", nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusBadRequest {
			t.Errorf("expected status 400, got %d", rec.Code)
		}
	})
}

func TestCheckHandler_List_NoStore(t *testing.T) {
	handler := NewCheckHandler(nil, nil, t.TempDir(), 0)

	req := httptest.NewRequest(http.MethodGet, "/api/checks", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("expected status %d, got %d", http.StatusServiceUnavailable, rec.Code)
	}
}

func TestCheckHandler_GetAndDelete(t *testing.T) {
	s := newTestStore(t)
	handler := NewCheckHandler(nil, s, t.TempDir(), 0)

	check := &store.Check{
		ID:         "abc",
		Asana:      "tree",
		Upload:     "1.mp4",
		Outcome:    store.OutcomeIncorrect,
		Distance:   0.2,
		References: []store.ReferenceFile{{Path: "tree_a.mp4", Used: true, FramesDetected: 12}},
	}
	if err := s.Checks().Create(check); err != nil {
		t.Fatalf("failed to create check: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/checks/abc", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected status 200, got %d", rec.Code)
	}
	var response checkResponse
	decodeBody(t, rec, &response)
	if response.Outcome != "incorrect" || len(response.References) != 1 {
		t.Errorf("unexpected response: %+v", response)
	}

	req = httptest.NewRequest(http.MethodDelete, "/api/checks/abc", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("expected status 204, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/checks/abc", nil)
	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	if rec.Code != http.StatusNotFound {
		t.Errorf("expected status 404 after delete, got %d", rec.Code)
	}
}

func TestCheckHandler_MethodNotAllowed(t *testing.T) {
	handler := NewCheckHandler(nil, nil, t.TempDir(), 0)

	for _, target := range []string{"/api/checks", "/api/checks/abc"} {
		req := httptest.NewRequest(http.MethodPut, target, nil)
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusMethodNotAllowed {
			t.Errorf("PUT %s: expected status %d, got %d", target, http.StatusMethodNotAllowed, rec.Code)
		}
	}
}
