package framestore

import (
	"errors"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/DoyleJ11/bombastic-viewer/internal/frame"
	"github.com/DoyleJ11/bombastic-viewer/internal/symbols"
)

func newStore() *Store {
	return New(symbols.NewResolver(symbols.DefaultPrefix, rand.New(rand.NewSource(7))), nil)
}

func indexes(changes []Change) []int {
	out := make([]int, len(changes))
	for i, c := range changes {
		out[i] = c.Index
	}
	return out
}

func TestDiff_ReportsSingleBombCell(t *testing.T) {
	s := newStore()
	s.Seed(frame.Parse("S S\nB.B\nS1S"))

	changes, err := s.Diff(frame.Parse("S S\nBxB\nS1S"))
	require.NoError(t, err)
	require.Len(t, changes, 1)

	got := changes[0]
	assert.Equal(t, Change{Index: 5, Row: 1, Col: 1, Symbol: 'x', Asset: "img/bomb.png"}, got)
}

func TestDiff_ExactlyTheDifferingPositionsInOrder(t *testing.T) {
	cases := []struct {
		name string
		a, b string
		want []int
	}{
		{name: "no change", a: "ab\ncd", b: "ab\ncd", want: []int{}},
		{name: "first and last", a: "ab\ncd", b: "xb\ncx", want: []int{0, 4}},
		{name: "every cell", a: "..\n..", b: "xx\nxx", want: []int{0, 1, 3, 4}},
		{name: "trailing separator on one side", a: "S.\n.S\n", b: "S.\nxS", want: []int{3}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			s := newStore()
			s.Seed(frame.Parse(tc.a))

			changes, err := s.Diff(frame.Parse(tc.b))
			require.NoError(t, err)
			assert.Equal(t, tc.want, indexes(changes))
		})
	}
}

func TestDiff_AfterSeedSameFrameIsEmpty(t *testing.T) {
	s := newStore()
	f := frame.Parse("BBB\nB1B\nBBB")
	s.Seed(f)

	changes, err := s.Diff(f)
	require.NoError(t, err)
	assert.Empty(t, changes)
}

func TestDiff_WithoutSeedIsFullPaint(t *testing.T) {
	s := newStore()
	f := frame.Parse("S S\nB.B\nS1S")

	changes, err := s.Diff(f)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 1, 2, 4, 5, 6, 8, 9, 10}, indexes(changes))

	stored, ok := s.Frame()
	require.True(t, ok)
	assert.Equal(t, f.Raw(), stored.Raw())
}

func TestDiff_StoresNewFrame(t *testing.T) {
	s := newStore()
	s.Seed(frame.Parse("..\n.."))

	_, err := s.Diff(frame.Parse("x.\n.."))
	require.NoError(t, err)

	// Second diff is against the frame just applied, not the seed.
	changes, err := s.Diff(frame.Parse("x.\n.x"))
	require.NoError(t, err)
	assert.Equal(t, []int{4}, indexes(changes))
}

func TestDiff_ShapeMismatch(t *testing.T) {
	s := newStore()
	seed := frame.Parse("abc\ndef")
	s.Seed(seed)

	_, err := s.Diff(frame.Parse("abcd\nef"))
	if err == nil || !errors.Is(err, frame.ErrShapeMismatch) {
		t.Fatalf("want ErrShapeMismatch, got %v", err)
	}

	stored, _ := s.Frame()
	assert.Equal(t, seed.Raw(), stored.Raw(), "mismatched frame must not replace the stored one")
}

func TestDiff_UnknownSymbolRendersPlaceholder(t *testing.T) {
	s := newStore()
	s.Seed(frame.Parse("..\n.."))

	changes, err := s.Diff(frame.Parse(".Z\nx."))
	require.NoError(t, err)
	require.Len(t, changes, 2)
	assert.Equal(t, symbols.AssetRef("img/unknown.png"), changes[0].Asset)
	assert.Equal(t, symbols.AssetRef("img/bomb.png"), changes[1].Asset)
}

func TestRepaint(t *testing.T) {
	s := newStore()
	assert.Nil(t, s.Repaint())

	s.Seed(frame.Parse("x.\n1S"))
	changes := s.Repaint()
	assert.Equal(t, []int{0, 1, 3, 4}, indexes(changes))
	assert.Equal(t, symbols.AssetRef("img/p1.png"), changes[2].Asset)
}
