package sweep

import (
	"fmt"
	"math"
)

// Dimension scaling is anchored on the reference network: a scale-1.0 model
// is 8 blocks of width 384, and widths always land on multiples of 64.
const (
	baseDepth = 8
	baseWidth = 384
	widthStep = 64
)

// Setting is one fully resolved point of the sweep grid: concrete dimensions,
// head count, and attention variant, plus the scale it was derived from.
type Setting struct {
	ModelScale  float64
	Depth       int
	Width       int
	NumHeads    int
	LinearValue bool
}

// Feasible reports whether the setting describes a buildable network: the
// width must divide evenly among the attention heads.
func (s Setting) Feasible() bool {
	return s.NumHeads > 0 && s.Width%s.NumHeads == 0
}

func (s Setting) String() string {
	return fmt.Sprintf("model_scale=%g depth=%d width=%d num_heads=%d linear_value=%t",
		s.ModelScale, s.Depth, s.Width, s.NumHeads, s.LinearValue)
}

// resolveDims derives depth and width from the model scale. Both grow with
// log2(1+scale), so scale 1.0 reproduces the reference network exactly.
func resolveDims(scale float64) (depth, width int) {
	g := math.Log2(1 + scale)
	depth = int(math.RoundToEven(baseDepth * g))
	width = nearest64(baseWidth * g)
	return depth, width
}

// nearest64 snaps a width to the closest multiple of 64, ties going to the
// even multiple.
func nearest64(w float64) int {
	return int(math.RoundToEven(w/widthStep)) * widthStep
}
