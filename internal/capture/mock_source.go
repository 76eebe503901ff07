package capture

import (
	"fmt"
	"io"
	"runtime"
	"sync"

	"gocv.io/x/gocv"
)

// MockSource plays back pre-built frames for testing
type MockSource struct {
	frames  []*gocv.Mat
	index   int
	readErr error
	closed  bool
	mu      sync.Mutex
}

func NewMockSource(frames ...*gocv.Mat) *MockSource {
	return &MockSource{frames: frames}
}

// SetReadError makes ReadFrame fail with err once all frames are consumed, instead of io.EOF
func (s *MockSource) SetReadError(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.readErr = err
}

func (s *MockSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrSourceClosed
	}

	if s.index >= len(s.frames) {
		if s.readErr != nil {
			return nil, s.readErr
		}
		return nil, io.EOF
	}

	// Clone the frame so the original isn't modified
	frame := s.frames[s.index].Clone()
	s.index++

	return &frame, nil
}

func (s *MockSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}

// Closed reports whether Close has been called
func (s *MockSource) Closed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closed
}

// MockOpener serves MockSources for registered paths
type MockOpener struct {
	files   map[string][]*gocv.Mat
	errs    map[string]error
	sources []*MockSource
	mu      sync.Mutex
}

func NewMockOpener() *MockOpener {
	return &MockOpener{
		files: make(map[string][]*gocv.Mat),
		errs:  make(map[string]error),
	}
}

// AddFile registers the frames returned when path is opened
func (o *MockOpener) AddFile(path string, frames ...*gocv.Mat) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.files[path] = frames
}

// FailFile makes opening path return err
func (o *MockOpener) FailFile(path string, err error) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.errs[path] = err
}

// Open implements Opener
func (o *MockOpener) Open(path string) (Source, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	if err, ok := o.errs[path]; ok {
		return nil, err
	}
	frames, ok := o.files[path]
	if !ok {
		return nil, fmt.Errorf("open %s: no such file", path)
	}

	src := NewMockSource(frames...)
	o.sources = append(o.sources, src)
	return src, nil
}

// Sources returns every source handed out so far
func (o *MockOpener) Sources() []*MockSource {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]*MockSource(nil), o.sources...)
}

// NewSolidFrame creates a rows x cols frame with the given channel count,
// every sample set to value. The caller is responsible for closing it.
func NewSolidFrame(rows, cols, channels int, value uint8) *gocv.Mat {
	data := make([]byte, rows*cols*channels)
	for i := range data {
		data[i] = value
	}

	mat, err := gocv.NewMatFromBytes(rows, cols, matType(channels), data)
	if err != nil {
		panic(fmt.Sprintf("build %d-channel frame: %v", channels, err))
	}
	defer mat.Close()

	// Copy into OpenCV-owned memory so the frame outlives data
	owned := mat.Clone()
	runtime.KeepAlive(data)
	return &owned
}

func matType(channels int) gocv.MatType {
	switch channels {
	case 1:
		return gocv.MatTypeCV8UC1
	case 2:
		return gocv.MatTypeCV8UC2
	case 4:
		return gocv.MatTypeCV8UC4
	default:
		return gocv.MatTypeCV8UC3
	}
}
