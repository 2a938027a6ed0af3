package pipeline

import (
	"fmt"
	"image"
	"sync"
	"time"

	"github.com/teslashibe/go-mvision/pkg/inference"
	"github.com/teslashibe/go-mvision/pkg/record"
	"gocv.io/x/gocv"
)

// Key codes returned by gocv.Window.WaitKey.
const (
	keyEsc   = 27
	keySpace = ' '
)

// WindowSink shows frames in a HighGUI window.
type WindowSink struct {
	win    *gocv.Window
	toggle func()
}

// NewWindowSink opens a window. toggle is called when space is pressed.
func NewWindowSink(name string, toggle func()) *WindowSink {
	return &WindowSink{win: gocv.NewWindow(name), toggle: toggle}
}

// Consume implements Sink.
func (w *WindowSink) Consume(f Frame) error {
	w.win.IMShow(f.Image)
	return w.key(w.win.WaitKey(1))
}

// Idle implements Idler.
func (w *WindowSink) Idle() error {
	return w.key(w.win.WaitKey(int(idleInterval / time.Millisecond)))
}

func (w *WindowSink) key(k int) error {
	switch k {
	case keyEsc:
		return ErrStop
	case keySpace:
		if w.toggle != nil {
			w.toggle()
		}
	}
	return nil
}

// Close implements Sink.
func (w *WindowSink) Close() error {
	return w.win.Close()
}

// RecorderSink writes frames to a recorder opened on the first frame, once
// the frame size is known.
type RecorderSink struct {
	open func(size image.Point) (record.Recorder, error)

	mu  sync.Mutex
	rec record.Recorder
}

// NewRecorderSink creates a sink; open is called once with the first
// frame's size.
func NewRecorderSink(open func(size image.Point) (record.Recorder, error)) *RecorderSink {
	return &RecorderSink{open: open}
}

// Consume implements Sink.
func (r *RecorderSink) Consume(f Frame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.rec == nil {
		if r.open == nil {
			// opening failed before, or the sink is closed
			return nil
		}
		rec, err := r.open(image.Pt(f.Image.Cols(), f.Image.Rows()))
		if err != nil {
			// don't retry every frame
			r.open = nil
			return fmt.Errorf("open recorder: %w", err)
		}
		r.rec = rec
	}
	return r.rec.Write(f.Image)
}

// Close implements Sink.
func (r *RecorderSink) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.rec == nil {
		return nil
	}
	err := r.rec.Close()
	r.rec = nil
	r.open = nil
	return err
}

// Publisher receives frames for the dashboard. *web.Server satisfies it.
type Publisher interface {
	PublishFrame(jpeg []byte)
	PublishDetections(seq uint64, res inference.Result)
}

// PublishSink encodes frames as JPEG for a Publisher, at most once per
// interval. Detections are published for every frame.
type PublishSink struct {
	pub      Publisher
	interval time.Duration
	quality  int

	last time.Time
}

// NewPublishSink creates a sink. interval 0 publishes every frame.
func NewPublishSink(pub Publisher, interval time.Duration, quality int) *PublishSink {
	return &PublishSink{pub: pub, interval: interval, quality: quality}
}

// Consume implements Sink.
func (s *PublishSink) Consume(f Frame) error {
	s.pub.PublishDetections(f.Seq, f.Result)

	if s.interval > 0 && f.Time.Sub(s.last) < s.interval {
		return nil
	}
	s.last = f.Time

	buf, err := gocv.IMEncodeWithParams(gocv.JPEGFileExt, f.Image, []int{gocv.IMWriteJpegQuality, s.quality})
	if err != nil {
		return fmt.Errorf("encode frame: %w", err)
	}
	defer buf.Close()

	// copy out of C memory before the buffer is released
	s.pub.PublishFrame(append([]byte(nil), buf.GetBytes()...))
	return nil
}

// Close implements Sink.
func (s *PublishSink) Close() error { return nil }
