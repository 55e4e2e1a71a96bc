// Package termui draws the arena in a terminal with termbox.
package termui

import (
	"context"
	"fmt"
	"path"
	"sync"

	"github.com/nsf/termbox-go"

	"github.com/DoyleJ11/bombastic-viewer/internal/framestore"
	"github.com/DoyleJ11/bombastic-viewer/internal/input"
	"github.com/DoyleJ11/bombastic-viewer/internal/render"
	"github.com/DoyleJ11/bombastic-viewer/internal/symbols"
	"github.com/DoyleJ11/bombastic-viewer/internal/transport"
)

type Glyph struct {
	Ch rune
	Fg termbox.Attribute
	Bg termbox.Attribute
}

// glyphs is the terminal asset pack, keyed by asset file name.
var glyphs = map[string]Glyph{
	"tile.png":          {' ', termbox.ColorDefault, termbox.ColorDefault},
	"block_dome.png":    {'█', termbox.ColorWhite, termbox.ColorDefault},
	"block_plain.png":   {'█', termbox.ColorWhite, termbox.ColorDefault},
	"block.png":         {'▓', termbox.ColorWhite, termbox.ColorDefault},
	"block_striped.png": {'▒', termbox.ColorWhite, termbox.ColorDefault},
	"block_vents.png":   {'░', termbox.ColorWhite, termbox.ColorDefault},
	"destructible.png":  {'▒', termbox.ColorYellow, termbox.ColorDefault},
	"bomb.png":          {'●', termbox.ColorRed | termbox.AttrBold, termbox.ColorDefault},
	"flame_cross.png":   {'+', termbox.ColorRed | termbox.AttrBold, termbox.ColorYellow},
	"flame_hz.png":      {'─', termbox.ColorRed | termbox.AttrBold, termbox.ColorYellow},
	"flame_vt.png":      {'│', termbox.ColorRed | termbox.AttrBold, termbox.ColorYellow},
	"p1.png":            {'1', termbox.ColorBlack | termbox.AttrBold, termbox.ColorCyan},
	"p2.png":            {'2', termbox.ColorBlack | termbox.AttrBold, termbox.ColorGreen},
	"p3.png":            {'3', termbox.ColorBlack | termbox.AttrBold, termbox.ColorMagenta},
	"p4.png":            {'4', termbox.ColorBlack | termbox.AttrBold, termbox.ColorBlue},
	"powerup_bomb.png":  {'b', termbox.ColorGreen | termbox.AttrBold, termbox.ColorDefault},
	"powerup_flame.png": {'f', termbox.ColorGreen | termbox.AttrBold, termbox.ColorDefault},
}

var placeholder = Glyph{'?', termbox.ColorMagenta | termbox.AttrBold, termbox.ColorDefault}

// GlyphFor ignores the asset prefix so any configured prefix draws the same.
func GlyphFor(asset symbols.AssetRef) Glyph {
	if g, ok := glyphs[path.Base(string(asset))]; ok {
		return g
	}
	return placeholder
}

// hudRow is where the status line goes; the board starts below it.
const hudRow = 0

type Surface struct {
	mu     sync.Mutex
	status render.Status
}

// Open takes over the terminal. Callers must Close it.
func Open() (*Surface, error) {
	if err := termbox.Init(); err != nil {
		return nil, fmt.Errorf("init terminal: %w", err)
	}
	termbox.SetInputMode(termbox.InputEsc)
	termbox.HideCursor()
	return &Surface{}, nil
}

func (s *Surface) Close() { termbox.Close() }

func (s *Surface) Reset(shape []int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_ = termbox.Clear(termbox.ColorDefault, termbox.ColorDefault)
	s.drawStatus()
}

func (s *Surface) Apply(changes []framestore.Change) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, c := range changes {
		g := GlyphFor(c.Asset)
		termbox.SetCell(c.Col, c.Row+hudRow+1, g.Ch, g.Fg, g.Bg)
	}
}

func (s *Surface) SetStatus(st render.Status) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = st
	s.drawStatus()
}

func (s *Surface) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return termbox.Flush()
}

func (s *Surface) drawStatus() {
	w, _ := termbox.Size()
	line := []rune(StatusLine(s.status))
	fg := termbox.ColorGreen
	if s.status.State != transport.Ready || s.status.Notice != "" {
		fg = termbox.ColorRed | termbox.AttrBold
	}
	for x := 0; x < w; x++ {
		ch := ' '
		if x < len(line) {
			ch = line[x]
		}
		termbox.SetCell(x, hudRow, ch, fg, termbox.ColorDefault)
	}
}

// StatusLine renders the HUD text.
func StatusLine(st render.Status) string {
	line := fmt.Sprintf("[%s]", st.State)
	if p := st.Player; p != nil {
		num := "-"
		if n := p.PlayerNumber(); n > 0 {
			num = fmt.Sprint(n)
		}
		line += fmt.Sprintf(" Player: %s | Bombs: %d | Flames: %d | K/D: %d/%d",
			num, p.Bomb, p.Flame, p.Kills, p.Deaths)
	}
	if st.Notice != "" {
		line += " ! " + st.Notice
	}
	return line + "  (q to quit)"
}

// Keys translates terminal key events until ctx ends or a quit key is
// pressed. quit is closed in both cases.
func Keys(ctx context.Context) (keys <-chan input.KeyCode, quit <-chan struct{}) {
	out := make(chan input.KeyCode, 16)
	done := make(chan struct{})

	go func() {
		select {
		case <-ctx.Done():
			termbox.Interrupt()
		case <-done:
		}
	}()

	go func() {
		defer close(done)
		defer close(out)
		for {
			ev := termbox.PollEvent()
			switch ev.Type {
			case termbox.EventInterrupt, termbox.EventError:
				return
			case termbox.EventKey:
				code, isQuit := translate(ev)
				if isQuit {
					return
				}
				if code == 0 {
					continue
				}
				select {
				case out <- code:
				case <-ctx.Done():
					return
				}
			}
		}
	}()
	return out, done
}

func translate(ev termbox.Event) (code input.KeyCode, quit bool) {
	switch ev.Key {
	case termbox.KeyEsc, termbox.KeyCtrlC:
		return 0, true
	case termbox.KeySpace:
		return input.KeySpace, false
	case termbox.KeyArrowLeft:
		return input.KeyLeft, false
	case termbox.KeyArrowUp:
		return input.KeyUp, false
	case termbox.KeyArrowRight:
		return input.KeyRight, false
	case termbox.KeyArrowDown:
		return input.KeyDown, false
	}
	if ev.Ch == 'q' || ev.Ch == 'Q' {
		return 0, true
	}
	return 0, false
}
