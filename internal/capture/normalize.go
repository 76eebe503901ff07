package capture

import (
	"errors"
	"fmt"

	"gocv.io/x/gocv"
)

// ErrUnsupportedChannels is returned for frames that are neither 1, 3 nor 4 channel.
var ErrUnsupportedChannels = errors.New("unsupported channel count")

// ErrUnsupportedDepth is returned for frames whose samples cannot be mapped to 8 bits.
var ErrUnsupportedDepth = errors.New("unsupported sample depth")

// depthMask selects the depth bits of an OpenCV type, dropping the channel count.
const depthMask = 7

// to8Bit returns an 8-bit copy of a 16-bit or floating point frame.
// 16-bit samples are scaled from 0..65535 and floats from 0..1.
func to8Bit(frame *gocv.Mat) (*gocv.Mat, error) {
	var scale float32
	switch frame.Type() & depthMask {
	case gocv.MatTypeCV16U:
		scale = 1.0 / 257
	case gocv.MatTypeCV32F, gocv.MatTypeCV64F:
		scale = 255
	default:
		return nil, fmt.Errorf("%w: type %d", ErrUnsupportedDepth, frame.Type())
	}

	dst := gocv.NewMat()
	frame.ConvertToWithParams(&dst, gocv.MatTypeCV8U, scale, 0)
	if dst.Empty() {
		dst.Close()
		return nil, fmt.Errorf("%w: conversion failed", ErrUnsupportedDepth)
	}
	return &dst, nil
}

// NormalizeChannels returns a new 3-channel copy of frame suitable for pose inference.
//
//   - 1 channel: the gray plane is broadcast to three identical channels.
//   - 3 channels: copied unchanged.
//   - 4 channels: the 4th (alpha) channel is dropped, the first three are kept as-is.
//
// Any other channel count returns ErrUnsupportedChannels. 16-bit and floating
// point frames are first scaled to 8 bits; other depths return ErrUnsupportedDepth.
// The caller is responsible for closing the returned Mat.
func NormalizeChannels(frame *gocv.Mat) (*gocv.Mat, error) {
	if frame == nil || frame.Empty() {
		return nil, errors.New("empty frame")
	}

	if frame.Type()&depthMask != gocv.MatTypeCV8U {
		converted, err := to8Bit(frame)
		if err != nil {
			return nil, err
		}
		defer converted.Close()
		frame = converted
	}

	channels := frame.Channels()

	dst := gocv.NewMat()
	switch channels {
	case 1:
		gocv.CvtColor(*frame, &dst, gocv.ColorGrayToBGR)
	case 3:
		frame.CopyTo(&dst)
	case 4:
		gocv.CvtColor(*frame, &dst, gocv.ColorBGRAToBGR)
	default:
		dst.Close()
		return nil, fmt.Errorf("%w: %d (%dx%d)", ErrUnsupportedChannels, channels, frame.Cols(), frame.Rows())
	}

	if dst.Empty() || dst.Channels() != 3 {
		dst.Close()
		return nil, fmt.Errorf("normalize %d-channel frame: conversion failed", channels)
	}

	return &dst, nil
}
