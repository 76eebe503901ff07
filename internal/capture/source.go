// Package capture provides frame sources over video, gif and still image files using GoCV (OpenCV).
package capture

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"gocv.io/x/gocv"
)

// ErrSourceClosed is returned when reading from a source that has been closed.
var ErrSourceClosed = errors.New("source is closed")

// Source is a sequential reader of decoded frames.
type Source interface {
	// ReadFrame returns the next frame, or io.EOF once the file is exhausted.
	// The caller is responsible for closing the returned Mat.
	ReadFrame() (*gocv.Mat, error)

	// Close releases the decoder. It is safe to call more than once.
	Close() error
}

// Opener opens a Source over the file at path.
type Opener func(path string) (Source, error)

// stillExtensions are decoded with IMRead so that their native channel count survives.
var stillExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".bmp":  true,
	".webp": true,
	".tif":  true,
	".tiff": true,
}

// OpenFile opens a frame source for the file at path.
// Still images yield a single frame; anything else is handed to the video decoder.
func OpenFile(path string) (Source, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, fmt.Errorf("stat %s: %w", path, err)
	}
	if info.IsDir() {
		return nil, fmt.Errorf("open %s: is a directory", path)
	}

	if stillExtensions[strings.ToLower(filepath.Ext(path))] {
		return openImage(path)
	}
	return openVideo(path)
}

// videoSource streams frames from a gocv.VideoCapture.
type videoSource struct {
	path    string
	capture *gocv.VideoCapture
	mu      sync.Mutex
}

func openVideo(path string) (Source, error) {
	capture, err := gocv.VideoCaptureFile(path)
	if err != nil {
		return nil, fmt.Errorf("open video %s: %w", path, err)
	}
	if !capture.IsOpened() {
		capture.Close()
		return nil, fmt.Errorf("open video %s: decoder cannot read file", path)
	}

	return &videoSource{path: path, capture: capture}, nil
}

func (s *videoSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil {
		return nil, ErrSourceClosed
	}

	mat := gocv.NewMat()
	if ok := s.capture.Read(&mat); !ok {
		mat.Close()
		return nil, io.EOF
	}

	if mat.Empty() {
		mat.Close()
		return nil, io.EOF
	}

	return &mat, nil
}

func (s *videoSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.capture == nil {
		return nil
	}

	err := s.capture.Close()
	s.capture = nil
	return err
}

// imageSource yields a single still frame.
type imageSource struct {
	frame *gocv.Mat
	read  bool
	mu    sync.Mutex
}

func openImage(path string) (Source, error) {
	mat := gocv.IMRead(path, gocv.IMReadUnchanged)
	if mat.Empty() {
		mat.Close()
		return nil, fmt.Errorf("open image %s: decoder cannot read file", path)
	}

	return &imageSource{frame: &mat}, nil
}

func (s *imageSource) ReadFrame() (*gocv.Mat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame == nil {
		return nil, ErrSourceClosed
	}
	if s.read {
		return nil, io.EOF
	}

	s.read = true
	frame := s.frame.Clone()
	return &frame, nil
}

func (s *imageSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.frame == nil {
		return nil
	}

	err := s.frame.Close()
	s.frame = nil
	return err
}
