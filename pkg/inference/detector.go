package inference

import (
	"fmt"
	"sync"
	"time"

	"github.com/teslashibe/go-mvision/pkg/debug"
	"github.com/teslashibe/go-mvision/pkg/detection"
	"gocv.io/x/gocv"
)

// Result is one decoded frame.
type Result struct {
	Boxes         []detection.Box `json:"boxes"`
	InferenceTime time.Duration   `json:"inference_time"`
	ImageWidth    int             `json:"image_width"`
	ImageHeight   int             `json:"image_height"`
}

// Detector runs a network and decodes its output.
type Detector struct {
	network *Network
	decoder *detection.Decoder
	mu      sync.Mutex
	closed  bool
}

// NewDetector combines a loaded network with a decoder.
// The detector takes ownership of the network.
func NewDetector(network *Network, decoder *detection.Decoder) *Detector {
	return &Detector{
		network: network,
		decoder: decoder,
	}
}

// Open loads the network described by netCfg and builds a decoder from
// decCfg. Darknet models default to the objectness-aware column layout.
func Open(netCfg Config, decCfg detection.Config) (*Detector, error) {
	if decCfg.ScoreOffset == 0 && netCfg.Format == FormatDarknet {
		decCfg.ScoreOffset = detection.DarknetScoreOffset
	}
	decoder, err := detection.NewDecoder(decCfg)
	if err != nil {
		return nil, err
	}

	network, err := Load(netCfg)
	if err != nil {
		return nil, err
	}
	return NewDetector(network, decoder), nil
}

// Labels returns the decoder's label table.
func (d *Detector) Labels() detection.LabelTable {
	return d.decoder.Labels()
}

// Detect runs the network on img and decodes the result.
func (d *Detector) Detect(img gocv.Mat) (Result, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return Result{}, ErrClosed
	}
	if img.Empty() {
		return Result{}, ErrEmptyImage
	}

	out, err := d.network.Forward(img)
	if err != nil {
		return Result{}, err
	}

	boxes, err := d.decoder.Decode(out.Matrix, img.Cols(), img.Rows())
	if err != nil {
		return Result{}, fmt.Errorf("decode: %w", err)
	}

	debug.Log("🔍 %d candidate(s), %d box(es) above threshold\n", out.Matrix.Rows(), len(boxes))
	debug.TimeLog("⏱️  detection time: %.2f ms\n", float64(out.InferenceTime)/float64(time.Millisecond))

	return Result{
		Boxes:         boxes,
		InferenceTime: out.InferenceTime,
		ImageWidth:    img.Cols(),
		ImageHeight:   img.Rows(),
	}, nil
}

// DetectJPEG decodes an encoded image and runs Detect on it.
func (d *Detector) DetectJPEG(data []byte) (Result, error) {
	if len(data) == 0 {
		return Result{}, ErrEmptyImage
	}

	img, err := gocv.IMDecode(data, gocv.IMReadColor)
	if err != nil {
		return Result{}, fmt.Errorf("decode image: %w", err)
	}
	defer img.Close()

	return d.Detect(img)
}

// Close releases the network. Further calls to Detect return ErrClosed.
func (d *Detector) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.closed {
		return nil
	}
	d.closed = true
	return d.network.Close()
}
