package sweep

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRunSpecs(t *testing.T) {
	s := Setting{ModelScale: 1, Depth: 8, Width: 384, NumHeads: 3}

	t.Run("seeds are contiguous from the base", func(t *testing.T) {
		specs := RunSpecs(s, 5, 1000)
		require.Len(t, specs, 5)
		for i, spec := range specs {
			assert.Equal(t, i, spec.RunIndex)
			assert.Equal(t, int64(1000+i), spec.Seed)
			assert.Equal(t, s, spec.Setting)
		}
	})

	t.Run("seeds restart per setting", func(t *testing.T) {
		other := Setting{ModelScale: 1, Depth: 4, Width: 192, NumHeads: 1}
		first := RunSpecs(s, 3, 100)
		second := RunSpecs(other, 3, 100)
		for i := range first {
			assert.Equal(t, first[i].Seed, second[i].Seed)
		}
	})
}
