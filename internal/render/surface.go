package render

import (
	"sync"

	"github.com/DoyleJ11/bombastic-viewer/internal/framestore"
	"github.com/DoyleJ11/bombastic-viewer/internal/symbols"
	"github.com/DoyleJ11/bombastic-viewer/internal/transport"
	"github.com/DoyleJ11/bombastic-viewer/pkg/wire"
)

// Status is what the HUD line shows next to the board.
type Status struct {
	State  transport.State
	Player *wire.PlayerStatus
	// Notice is the last message the server sent in place of a frame.
	Notice string
}

// Surface is a grid view that only redraws the positions it is given.
type Surface interface {
	// Reset sizes the grid to shape and blanks it.
	Reset(shape []int)
	Apply(changes []framestore.Change)
	SetStatus(st Status)
	Flush() error
}

// Grid is an in-memory Surface.
type Grid struct {
	mu     sync.Mutex
	cells  [][]symbols.AssetRef
	writes int
	resets int
	status Status
}

func NewGrid() *Grid { return &Grid{} }

func (g *Grid) Reset(shape []int) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cells = make([][]symbols.AssetRef, len(shape))
	for i, n := range shape {
		g.cells[i] = make([]symbols.AssetRef, n)
	}
	g.resets++
}

func (g *Grid) Apply(changes []framestore.Change) {
	g.mu.Lock()
	defer g.mu.Unlock()
	for _, c := range changes {
		if c.Row >= len(g.cells) || c.Col >= len(g.cells[c.Row]) {
			continue
		}
		g.cells[c.Row][c.Col] = c.Asset
		g.writes++
	}
}

func (g *Grid) SetStatus(st Status) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.status = st
}

func (g *Grid) Flush() error { return nil }

func (g *Grid) At(row, col int) symbols.AssetRef {
	g.mu.Lock()
	defer g.mu.Unlock()
	if row >= len(g.cells) || col >= len(g.cells[row]) {
		return ""
	}
	return g.cells[row][col]
}

// Writes counts cell writes since creation.
func (g *Grid) Writes() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.writes
}

func (g *Grid) Resets() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.resets
}

func (g *Grid) Status() Status {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.status
}
