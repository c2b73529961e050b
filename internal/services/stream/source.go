package stream

import (
	"fmt"
	"image"
	"time"

	"gocv.io/x/gocv"
)

// Source is one open video connection delivering JPEG-encoded frames.
type Source interface {
	// ReadFrame blocks for the next frame. A read that cannot produce a
	// decodable frame returns an error; the caller decides whether it is
	// transient.
	ReadFrame() (data []byte, width, height int, err error)
	Close() error
}

// OpenFunc opens a transport URL and delivers its first decodable connection
// within timeout. Injected into the Manager so tests run without OpenCV.
type OpenFunc func(rawURL string, timeout time.Duration) (Source, error)

type gocvSource struct {
	cap     *gocv.VideoCapture
	img     gocv.Mat
	width   int
	height  int
	quality int
}

type gocvOpener struct {
	outputWidth  int
	outputHeight int
	jpegQuality  int
}

// NewGoCVOpener returns the production OpenFunc backed by OpenCV
// VideoCapture. Frames are resized to the configured output size and
// JPEG-encoded before leaving the source.
func NewGoCVOpener(outputWidth, outputHeight, jpegQuality int) OpenFunc {
	o := &gocvOpener{
		outputWidth:  outputWidth,
		outputHeight: outputHeight,
		jpegQuality:  jpegQuality,
	}
	return o.open
}

func (o *gocvOpener) open(rawURL string, timeout time.Duration) (Source, error) {
	type result struct {
		cap *gocv.VideoCapture
		err error
	}
	done := make(chan result, 1)

	// OpenVideoCapture blocks for unreachable hosts; bound the wait so an
	// unreachable candidate does not stall the discovery ladder.
	go func() {
		cap, err := gocv.OpenVideoCapture(rawURL)
		done <- result{cap: cap, err: err}
	}()

	select {
	case res := <-done:
		if res.err != nil {
			return nil, fmt.Errorf("open %s: %w", rawURL, res.err)
		}
		if !res.cap.IsOpened() {
			res.cap.Close()
			return nil, fmt.Errorf("open %s: capture not opened", rawURL)
		}
		res.cap.Set(gocv.VideoCaptureBufferSize, 1)
		return &gocvSource{
			cap:     res.cap,
			img:     gocv.NewMat(),
			width:   o.outputWidth,
			height:  o.outputHeight,
			quality: o.jpegQuality,
		}, nil
	case <-time.After(timeout):
		// Let the opener goroutine release the capture whenever the open
		// finally returns.
		go func() {
			res := <-done
			if res.err == nil && res.cap != nil {
				res.cap.Close()
			}
		}()
		return nil, fmt.Errorf("open %s: timed out after %s", rawURL, timeout)
	}
}

func (s *gocvSource) ReadFrame() ([]byte, int, int, error) {
	if ok := s.cap.Read(&s.img); !ok {
		return nil, 0, 0, fmt.Errorf("read failed")
	}
	if s.img.Empty() {
		return nil, 0, 0, fmt.Errorf("empty frame")
	}

	frame := s.img
	var resized gocv.Mat
	if s.img.Cols() != s.width || s.img.Rows() != s.height {
		resized = gocv.NewMat()
		gocv.Resize(s.img, &resized, image.Pt(s.width, s.height), 0, 0, gocv.InterpolationLinear)
		frame = resized
		defer resized.Close()
	}

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, frame, []int{gocv.IMWriteJpegQuality, s.quality})
	if err != nil {
		return nil, 0, 0, fmt.Errorf("jpeg encode: %w", err)
	}
	defer buf.Close()

	data := make([]byte, len(buf.GetBytes()))
	copy(data, buf.GetBytes())
	return data, s.width, s.height, nil
}

func (s *gocvSource) Close() error {
	s.img.Close()
	return s.cap.Close()
}
