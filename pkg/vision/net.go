// Package vision runs the exported liveness network through OpenCV's DNN
// module.
package vision

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"sync"

	"FaceLiveness/pkg/liveness"

	"gocv.io/x/gocv"
)

type Net struct {
	net gocv.Net
	mu  sync.Mutex
}

// LoadNet reads an ONNX (or any format ReadNet understands) artifact. It
// satisfies liveness.ScorerLoader.
func LoadNet(path string) (liveness.Scorer, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return nil, fmt.Errorf("model file not found: %s", path)
	}

	net := gocv.ReadNet(path, "")
	if net.Empty() {
		return nil, fmt.Errorf("failed to load model from %s", path)
	}

	net.SetPreferableBackend(gocv.NetBackendDefault)
	net.SetPreferableTarget(gocv.NetTargetCPU)

	return &Net{net: net}, nil
}

// Score feeds the NHWC tensor as is and reads the single sigmoid output.
func (n *Net) Score(input liveness.Tensor) (float64, error) {
	sizes := input.Shape[:]
	want := 1
	for _, s := range sizes {
		want *= s
	}
	if len(input.Data) != want {
		return 0, fmt.Errorf("tensor has %d values, shape %v needs %d", len(input.Data), sizes, want)
	}

	blob, err := gocv.NewMatWithSizesFromBytes(sizes, gocv.MatTypeCV32F, float32Bytes(input.Data))
	if err != nil {
		return 0, fmt.Errorf("failed to build input blob: %w", err)
	}
	defer blob.Close()

	n.mu.Lock()
	defer n.mu.Unlock()

	n.net.SetInput(blob, "")
	output := n.net.Forward("")
	defer output.Close()

	if output.Empty() || output.Total() < 1 {
		return 0, fmt.Errorf("model returned no output")
	}

	return float64(output.GetFloatAt(0, 0)), nil
}

func (n *Net) Close() error {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.net.Close()
}

func float32Bytes(data []float32) []byte {
	buf := make([]byte, 4*len(data))
	for i, v := range data {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(v))
	}
	return buf
}
