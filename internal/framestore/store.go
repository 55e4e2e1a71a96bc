package framestore

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/DoyleJ11/bombastic-viewer/internal/frame"
	"github.com/DoyleJ11/bombastic-viewer/internal/symbols"
)

// Change is one cell whose symbol differs from the previous frame.
type Change struct {
	Index  int
	Row    int
	Col    int
	Symbol rune
	Asset  symbols.AssetRef
}

type Resolver interface {
	Resolve(symbol rune) (symbols.AssetRef, error)
	Placeholder() symbols.AssetRef
}

// Store holds the last rendered frame. It is owned by a single goroutine and
// must not be diffed concurrently.
type Store struct {
	resolver Resolver
	log      *zap.Logger

	last   frame.Frame
	seeded bool
}

func New(resolver Resolver, log *zap.Logger) *Store {
	if log == nil {
		log = zap.NewNop()
	}
	return &Store{resolver: resolver, log: log}
}

// Seed unconditionally replaces the stored frame.
func (s *Store) Seed(f frame.Frame) {
	s.last = f
	s.seeded = true
}

func (s *Store) Frame() (frame.Frame, bool) { return s.last, s.seeded }

// Diff reports every cell of f whose symbol differs from the stored frame, in
// ascending index order, then stores f. With nothing seeded every cell is
// reported. On a shape mismatch the stored frame is left as is and the caller
// is expected to reseed.
func (s *Store) Diff(f frame.Frame) ([]Change, error) {
	if !s.seeded {
		changes := s.resolveAll(f.Cells())
		s.Seed(f)
		return changes, nil
	}

	if !s.last.SameShape(f) {
		return nil, fmt.Errorf("%w: have %v, got %v", frame.ErrShapeMismatch, s.last.Shape(), f.Shape())
	}

	prev := s.last.Cells()
	changes := []Change{}
	for i, cell := range f.Cells() {
		if prev[i].Symbol == cell.Symbol {
			continue
		}
		changes = append(changes, s.change(cell))
	}

	s.last = f
	return changes, nil
}

// Repaint resolves every cell of the stored frame, for a full paint.
func (s *Store) Repaint() []Change {
	if !s.seeded {
		return nil
	}
	return s.resolveAll(s.last.Cells())
}

func (s *Store) resolveAll(cells []frame.Cell) []Change {
	changes := make([]Change, 0, len(cells))
	for _, cell := range cells {
		changes = append(changes, s.change(cell))
	}
	return changes
}

func (s *Store) change(cell frame.Cell) Change {
	asset, err := s.resolver.Resolve(cell.Symbol)
	if err != nil {
		if !errors.Is(err, symbols.ErrUnknownSymbol) {
			s.log.Error("resolve symbol", zap.Int("index", cell.Index), zap.Error(err))
		} else {
			s.log.Warn("unknown board symbol, drawing placeholder",
				zap.Int("row", cell.Row), zap.Int("col", cell.Col), zap.Error(err))
		}
		asset = s.resolver.Placeholder()
	}
	return Change{Index: cell.Index, Row: cell.Row, Col: cell.Col, Symbol: cell.Symbol, Asset: asset}
}
