package record

import (
	"context"
	"fmt"
	"image"
	"io"
	"os/exec"
	"sync"

	ffmpeg "github.com/u2takey/ffmpeg-go"
	"gocv.io/x/gocv"
)

// FFmpegWriter pipes raw BGR frames into a persistent ffmpeg process that
// encodes H.264.
type FFmpegWriter struct {
	path string
	size image.Point

	mu     sync.Mutex
	pw     *io.PipeWriter
	done   chan error
	closed bool
	frames int
}

// NewFFmpeg starts ffmpeg writing to path. Only the values of ctx reach the
// process: cancelling it does not kill ffmpeg, which would leave the file
// without its trailer. The process ends when Close closes its stdin.
func NewFFmpeg(ctx context.Context, path string, fps float64, size image.Point, bitrate Bitrate) (*FFmpegWriter, error) {
	if err := bitrate.Validate(); err != nil {
		return nil, err
	}
	if size.X <= 0 || size.Y <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrFrameSize, size.X, size.Y)
	}
	// make sure ffmpeg is in the path before doing anything else
	if _, err := exec.LookPath("ffmpeg"); err != nil {
		return nil, ErrFFmpegNotFound
	}

	pr, pw := io.Pipe()
	stream := encodeStream(ctx, path, fps, size, bitrate, pr)

	w := &FFmpegWriter{
		path: path,
		size: size,
		pw:   pw,
		done: make(chan error, 1),
	}

	go func() {
		err := stream.Run()
		// unblock writers if ffmpeg exits early
		if err != nil {
			pr.CloseWithError(fmt.Errorf("record: ffmpeg: %w", err))
		} else {
			pr.CloseWithError(io.ErrClosedPipe)
		}
		w.done <- err
	}()

	return w, nil
}

// encodeStream builds the ffmpeg invocation reading raw BGR frames from in.
// The context has to be set before OverWriteOutput and WithInput, which
// store their settings as context values.
func encodeStream(ctx context.Context, path string, fps float64, size image.Point, bitrate Bitrate, in io.Reader) *ffmpeg.Stream {
	stream := ffmpeg.Input("pipe:", ffmpeg.KwArgs{
		"format":    "rawvideo",
		"pix_fmt":   "bgr24",
		"s":         fmt.Sprintf("%dx%d", size.X, size.Y),
		"framerate": fps,
	}).Output(path, ffmpeg.KwArgs{
		"c:v":     "libx264",
		"b:v":     fmt.Sprintf("%dk", int(bitrate)),
		"pix_fmt": "yuv420p",
	})
	stream.Context = context.WithoutCancel(ctx)
	return stream.OverWriteOutput().WithInput(in)
}

// Path returns the output file.
func (w *FFmpegWriter) Path() string { return w.path }

// Frames returns how many frames were piped to ffmpeg.
func (w *FFmpegWriter) Frames() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// Write implements Recorder.
func (w *FFmpegWriter) Write(img gocv.Mat) error {
	if err := checkFrame(img, w.size); err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return ErrClosed
	}
	if _, err := w.pw.Write(img.ToBytes()); err != nil {
		return err
	}
	w.frames++
	return nil
}

// Close flushes the pipe and waits for ffmpeg to finish the file.
func (w *FFmpegWriter) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	w.pw.Close()
	if err := <-w.done; err != nil {
		return fmt.Errorf("record: ffmpeg: %w", err)
	}
	return nil
}
