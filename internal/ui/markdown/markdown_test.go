package markdown

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNew_SetsWidth(t *testing.T) {
	r, err := New(72)
	require.NoError(t, err)
	require.Equal(t, 72, r.Width())
}

func TestRender_ProducesContent(t *testing.T) {
	r, err := New(80)
	require.NoError(t, err)

	out, err := r.Render("# Keys\n\nPress `q` to quit.")
	require.NoError(t, err)
	require.Contains(t, out, "Keys")
	require.Contains(t, out, "quit")
}

func TestRender_TableSurvives(t *testing.T) {
	r, err := New(80)
	require.NoError(t, err)

	out, err := r.Render("| Key | Action |\n|-----|--------|\n| q | quit |")
	require.NoError(t, err)
	require.Contains(t, out, "Action")
}
