package sweep

import "fmt"

// Axes holds the candidate values for every sweep axis, each in the order its
// settings should be enumerated in. Depths and Widths are optional as a pair:
// when both are empty, dimensions are derived from ModelScales instead.
type Axes struct {
	ModelScales  []float64
	Depths       []int
	Widths       []int
	NumHeads     []int
	LinearValues []bool
}

// Grid enumerates the Cartesian product of the axes in a fixed order:
// model_scale varies slowest, then depth, width, num_heads, and linear_value
// fastest. Enumeration is a pure function of the input value order, so a
// restarted sweep visits settings identically.
type Grid struct {
	scales  []float64
	depths  []int
	widths  []int
	heads   []int
	linears []bool

	// derived means depth/width come from the scale per setting.
	derived bool
}

// NewGrid validates the axes and fixes the enumeration order.
func NewGrid(axes Axes) (*Grid, error) {
	if len(axes.ModelScales) == 0 {
		return nil, fmt.Errorf("model_scale requires at least one value")
	}
	if len(axes.NumHeads) == 0 {
		return nil, fmt.Errorf("num_heads requires at least one value")
	}
	if len(axes.LinearValues) == 0 {
		return nil, fmt.Errorf("linear_value requires at least one value")
	}
	if (len(axes.Depths) == 0) != (len(axes.Widths) == 0) {
		return nil, fmt.Errorf("depth and width must be given together, or both left to derive from model_scale")
	}
	for _, s := range axes.ModelScales {
		if s <= 0 {
			return nil, fmt.Errorf("model_scale must be positive, got %g", s)
		}
	}
	for _, d := range axes.Depths {
		if d < 1 {
			return nil, fmt.Errorf("depth must be at least 1, got %d", d)
		}
	}
	for _, w := range axes.Widths {
		if nearest64(float64(w)) < widthStep {
			return nil, fmt.Errorf("width %d is below the minimum resolvable width %d", w, widthStep)
		}
	}
	for _, h := range axes.NumHeads {
		if h < 1 {
			return nil, fmt.Errorf("num_heads must be at least 1, got %d", h)
		}
	}
	if len(axes.Depths) == 0 {
		for _, s := range axes.ModelScales {
			if _, w := resolveDims(s); w < widthStep {
				return nil, fmt.Errorf("model_scale %g resolves to width %d, below the minimum resolvable width %d", s, w, widthStep)
			}
		}
	}

	g := &Grid{
		scales:  axes.ModelScales,
		depths:  axes.Depths,
		widths:  axes.Widths,
		heads:   axes.NumHeads,
		linears: dedupBools(axes.LinearValues),
	}
	if len(g.depths) == 0 {
		// One placeholder slot each: the product stays over the given axes.
		g.derived = true
		g.depths = []int{0}
		g.widths = []int{0}
	}
	return g, nil
}

// DimsOverrideScale reports whether explicit depth/width values make the
// model_scale axis cosmetic. Callers use it to warn once at startup.
func (g *Grid) DimsOverrideScale() bool {
	if g.derived {
		return false
	}
	return len(g.scales) > 1 || g.scales[0] != 1.0
}

// Count is the number of settings the grid enumerates: the product of the
// axis value counts.
func (g *Grid) Count() int {
	return len(g.scales) * len(g.depths) * len(g.widths) * len(g.heads) * len(g.linears)
}

// FeasibleCount is the number of enumerated settings that pass Feasible.
func (g *Grid) FeasibleCount() int {
	n := 0
	g.All(func(s Setting) bool {
		if s.Feasible() {
			n++
		}
		return true
	})
	return n
}

// All yields every resolved setting in enumeration order. It is rangeable and
// restartable; breaking out early costs nothing.
func (g *Grid) All(yield func(Setting) bool) {
	for _, scale := range g.scales {
		for _, d := range g.depths {
			for _, w := range g.widths {
				for _, h := range g.heads {
					for _, lv := range g.linears {
						if !yield(g.resolve(scale, d, w, h, lv)) {
							return
						}
					}
				}
			}
		}
	}
}

// Settings materializes the full enumeration.
func (g *Grid) Settings() []Setting {
	out := make([]Setting, 0, g.Count())
	g.All(func(s Setting) bool {
		out = append(out, s)
		return true
	})
	return out
}

func (g *Grid) resolve(scale float64, depth, width, heads int, linear bool) Setting {
	if g.derived {
		depth, width = resolveDims(scale)
	} else {
		width = nearest64(float64(width))
	}
	return Setting{
		ModelScale:  scale,
		Depth:       depth,
		Width:       width,
		NumHeads:    heads,
		LinearValue: linear,
	}
}

// dedupBools drops repeated values while keeping first-occurrence order, so
// flag lists like "1 0 1" collapse deterministically.
func dedupBools(vs []bool) []bool {
	out := make([]bool, 0, 2)
	seen := map[bool]bool{}
	for _, v := range vs {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
