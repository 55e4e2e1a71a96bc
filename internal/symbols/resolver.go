package symbols

import (
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"
)

var ErrUnknownSymbol = errors.New("unknown symbol")

// AssetRef is an asset path under the configured prefix, e.g. "img/bomb.png".
type AssetRef string

const (
	DefaultPrefix    = "img/"
	PlaceholderAsset = "unknown.png"
)

// Assets maps each board symbol to one asset or to a variant group.
var Assets = map[rune][]string{
	' ': {"tile.png"},
	'S': {"tile.png"},
	'B': {"block_dome.png", "block_plain.png", "block.png", "block_striped.png", "block_vents.png"},
	'x': {"bomb.png"},
	'.': {"destructible.png"},
	'+': {"flame_cross.png"},
	'-': {"flame_hz.png"},
	'>': {"flame_hz.png"},
	'<': {"flame_hz.png"},
	'|': {"flame_vt.png"},
	'^': {"flame_vt.png"},
	'v': {"flame_vt.png"},
	'1': {"p1.png"},
	'2': {"p2.png"},
	'3': {"p3.png"},
	'4': {"p4.png"},
	'b': {"powerup_bomb.png"},
	'f': {"powerup_flame.png"},
}

type Resolver struct {
	prefix string

	mu  sync.Mutex // rand.Rand is not safe for concurrent use
	rng *rand.Rand
}

func NewResolver(prefix string, rng *rand.Rand) *Resolver {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Resolver{prefix: prefix, rng: rng}
}

// Resolve picks a fresh member on every call for variant groups, so the same
// position may render a different wall each time it is redrawn.
func (r *Resolver) Resolve(symbol rune) (AssetRef, error) {
	group, ok := Assets[symbol]
	if !ok {
		return "", fmt.Errorf("%w: %q", ErrUnknownSymbol, symbol)
	}
	if len(group) == 1 {
		return r.ref(group[0]), nil
	}

	r.mu.Lock()
	i := r.rng.Intn(len(group))
	r.mu.Unlock()
	return r.ref(group[i]), nil
}

func (r *Resolver) Placeholder() AssetRef { return r.ref(PlaceholderAsset) }

func (r *Resolver) ref(name string) AssetRef { return AssetRef(r.prefix + name) }
