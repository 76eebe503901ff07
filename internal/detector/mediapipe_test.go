package detector

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"io"
	"os"
	"sync"
	"sync/atomic"
	"testing"

	"gocv.io/x/gocv"
)

// fakeServiceEnv makes the test binary act as pose_service.py.
const fakeServiceEnv = "ASANA_FAKE_POSE_SERVICE"

func TestMain(m *testing.M) {
	if os.Getenv(fakeServiceEnv) == "1" {
		runFakePoseService(os.Stdin, os.Stdout)
		os.Exit(0)
	}
	os.Exit(m.Run())
}

// runFakePoseService speaks the pose service protocol. Each reply carries the
// request length as the score and the number of frames since the last reset
// as the X of every landmark.
func runFakePoseService(r io.Reader, w io.Writer) {
	in := bufio.NewReader(r)
	enc := json.NewEncoder(w)
	sinceReset := 0

	for {
		header := make([]byte, 4)
		if _, err := io.ReadFull(in, header); err != nil {
			return
		}
		n := binary.BigEndian.Uint32(header)
		if n == 0 {
			sinceReset = 0
			enc.Encode(map[string]any{"pose": nil})
			continue
		}
		if _, err := io.CopyN(io.Discard, in, int64(n)); err != nil {
			return
		}
		sinceReset++

		points := make([]jsonPoint, NumLandmarks)
		for i := range points {
			points[i].X = float64(sinceReset)
		}
		enc.Encode(map[string]any{"pose": jsonPose{Points: points, Score: float64(n)}})
	}
}

// newFakeServiceDetector returns a MediaPipeDetector whose sidecar is this
// test binary running runFakePoseService.
func newFakeServiceDetector(t *testing.T) *MediaPipeDetector {
	t.Helper()

	self, err := os.Executable()
	if err != nil {
		t.Fatalf("os.Executable() error = %v", err)
	}
	t.Setenv(fakeServiceEnv, "1")

	cfg := DefaultConfig()
	cfg.ScriptPath = self
	cfg.PythonPath = self

	d, err := NewMediaPipeDetector(cfg)
	if err != nil {
		t.Fatalf("NewMediaPipeDetector() error = %v", err)
	}
	t.Cleanup(func() { d.Close() })
	return d
}

// encodedLen returns the size of the JPEG Detect sends for frame.
func encodedLen(t *testing.T, frame gocv.Mat) int {
	t.Helper()

	buf, err := gocv.IMEncode(".jpg", frame)
	if err != nil {
		t.Fatalf("IMEncode() error = %v", err)
	}
	defer buf.Close()
	return len(buf.GetBytes())
}

func TestMediaPipeDetector_ConcurrentDetect(t *testing.T) {
	d := newFakeServiceDetector(t)

	const workers, perWorker = 8, 5

	frames := make([]gocv.Mat, workers)
	want := make([]int, workers)
	for i := range frames {
		// Distinct sizes give each worker a distinct payload length.
		frames[i] = gocv.NewMatWithSize(16*(i+1), 16*(i+1), gocv.MatTypeCV8UC3)
		want[i] = encodedLen(t, frames[i])
	}
	defer func() {
		for _, f := range frames {
			f.Close()
		}
	}()

	var responses atomic.Int32
	errs := make(chan string, workers*perWorker)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for k := 0; k < perWorker; k++ {
				pose, err := d.Detect(&frames[i])
				if err != nil {
					errs <- err.Error()
					continue
				}
				if pose == nil {
					errs <- "nil pose"
					continue
				}
				responses.Add(1)
				if int(pose.Score) != want[i] {
					errs <- "response for another request"
				}
			}
		}(i)
	}
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Error(msg)
	}
	if got := responses.Load(); got != workers*perWorker {
		t.Errorf("expected %d responses, got %d", workers*perWorker, got)
	}
}

func TestMediaPipeDetector_SessionsDoNotInterleave(t *testing.T) {
	d := newFakeServiceDetector(t)

	frame := gocv.NewMatWithSize(32, 32, gocv.MatTypeCV8UC3)
	defer frame.Close()

	const clips, perClip = 6, 4

	errs := make(chan string, clips*perClip)
	var wg sync.WaitGroup
	for c := 0; c < clips; c++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			end := d.Begin()
			defer end()

			for k := 1; k <= perClip; k++ {
				pose, err := d.Detect(&frame)
				if err != nil {
					errs <- err.Error()
					return
				}
				if pose == nil || pose.Points[0].X != float64(k) {
					errs <- "clip saw frames from another clip or stale tracking"
					return
				}
			}
		}()
	}
	wg.Wait()
	close(errs)

	for msg := range errs {
		t.Error(msg)
	}
}

func TestMediaPipeDetector_RestartsAfterClose(t *testing.T) {
	d := newFakeServiceDetector(t)

	frame := gocv.NewMatWithSize(16, 16, gocv.MatTypeCV8UC3)
	defer frame.Close()

	if _, err := d.Detect(&frame); err != nil {
		t.Fatalf("Detect() error = %v", err)
	}
	if err := d.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	pose, err := d.Detect(&frame)
	if err != nil {
		t.Fatalf("Detect() after Close error = %v", err)
	}
	if pose == nil || pose.Points[0].X != 1 {
		t.Errorf("expected a fresh service after Close, got %+v", pose)
	}
}
