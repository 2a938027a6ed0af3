package inference

import (
	"fmt"
	"image"
	"os"
	"time"

	"github.com/teslashibe/go-mvision/pkg/detection"
	"gocv.io/x/gocv"
)

// Output is the raw result of one forward pass.
type Output struct {
	// Matrix holds every candidate row from all output layers.
	Matrix detection.Matrix
	// InferenceTime is OpenCV's measured network time.
	InferenceTime time.Duration
}

// Network is a loaded detection network.
// gocv.Net is not safe for concurrent use; callers serialize access
// (Detector does).
type Network struct {
	net      gocv.Net
	config   Config
	outNames []string
	size     image.Point
}

// Load reads the model files described by cfg.
func Load(cfg Config) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	for _, p := range modelFiles(cfg) {
		if _, err := os.Stat(p); err != nil {
			return nil, &LoadError{Path: p, Err: ErrModelNotFound}
		}
	}

	var net gocv.Net
	switch cfg.Format {
	case FormatONNX:
		net = gocv.ReadNetFromONNX(cfg.ModelPath)
	default:
		net = gocv.ReadNet(cfg.ModelPath, cfg.ConfigPath)
	}
	if net.Empty() {
		return nil, &LoadError{Path: cfg.ModelPath, Err: ErrEmptyNetwork}
	}

	net.SetPreferableBackend(gocv.ParseNetBackend(cfg.Backend))
	net.SetPreferableTarget(gocv.ParseNetTarget(cfg.Target))

	return &Network{
		net:      net,
		config:   cfg,
		outNames: outputNames(&net),
		size:     image.Pt(cfg.InputWidth, cfg.InputHeight),
	}, nil
}

func modelFiles(cfg Config) []string {
	if cfg.Format == FormatDarknet {
		return []string{cfg.ConfigPath, cfg.ModelPath}
	}
	return []string{cfg.ModelPath}
}

// outputNames lists the unconnected output layers. YOLOv3-style networks
// have several; a plain Forward("") would only return the last one.
func outputNames(net *gocv.Net) []string {
	layers := net.GetLayerNames()
	var names []string
	for _, id := range net.GetUnconnectedOutLayers() {
		// layer ids are 1-based
		if id > 0 && id <= len(layers) {
			names = append(names, layers[id-1])
		}
	}
	return names
}

// Config returns the network configuration.
func (n *Network) Config() Config { return n.config }

// OutputNames returns the output layer names used for forward passes.
func (n *Network) OutputNames() []string { return n.outNames }

// Forward runs the network on img and returns every candidate row.
func (n *Network) Forward(img gocv.Mat) (Output, error) {
	if img.Empty() {
		return Output{}, ErrEmptyImage
	}

	blob := gocv.BlobFromImage(img, n.config.Scale, n.size,
		gocv.NewScalar(n.config.Mean, n.config.Mean, n.config.Mean, 0), n.config.SwapRB, n.config.Crop)
	defer blob.Close()

	n.net.SetInput(blob, n.config.InputName)

	var outs []gocv.Mat
	if len(n.outNames) > 0 {
		outs = n.net.ForwardLayers(n.outNames)
	} else {
		outs = []gocv.Mat{n.net.Forward("")}
	}
	defer func() {
		for i := range outs {
			outs[i].Close()
		}
	}()

	parts := make([]detection.Matrix, 0, len(outs))
	for i := range outs {
		m, err := matToMatrix(outs[i])
		if err != nil {
			return Output{}, err
		}
		if n.config.Transposed {
			m = m.Transpose()
		}
		parts = append(parts, m)
	}

	matrix, err := detection.Concat(parts...)
	if err != nil {
		return Output{}, fmt.Errorf("combine outputs: %w", err)
	}

	return Output{
		Matrix:        matrix,
		InferenceTime: ticksToDuration(n.net.GetPerfProfile()),
	}, nil
}

// Close releases the network.
func (n *Network) Close() error {
	return n.net.Close()
}

// matToMatrix copies a float32 output blob into a detection.Matrix.
// Accepted shapes are [rows, cols] and [1, rows, cols].
func matToMatrix(m gocv.Mat) (detection.Matrix, error) {
	if m.Empty() {
		return detection.Matrix{}, nil
	}

	dims := m.Size()
	var rows, cols int
	switch {
	case len(dims) == 2:
		rows, cols = dims[0], dims[1]
	case len(dims) == 3 && dims[0] == 1:
		rows, cols = dims[1], dims[2]
	default:
		return detection.Matrix{}, fmt.Errorf("%w: dims %v", ErrOutputLayout, dims)
	}

	data, err := m.DataPtrFloat32()
	if err != nil {
		return detection.Matrix{}, fmt.Errorf("%w: %v", ErrOutputLayout, err)
	}

	// the Mat is closed after the forward pass, so the data is copied out
	buf := make([]float32, rows*cols)
	if copy(buf, data) != len(buf) {
		return detection.Matrix{}, fmt.Errorf("%w: %d values for %dx%d", ErrOutputLayout, len(data), rows, cols)
	}
	return detection.NewMatrix(rows, cols, buf)
}

func ticksToDuration(ticks float64) time.Duration {
	freq := gocv.GetTickFrequency()
	if freq <= 0 {
		return 0
	}
	return time.Duration(ticks / freq * float64(time.Second))
}
