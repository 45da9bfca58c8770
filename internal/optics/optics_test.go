package optics

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type point struct {
	X, Y int
}

type shape interface{ isShape() }

type circle struct{ Center point }
type square struct{ Side int }

func (circle) isShape() {}
func (square) isShape() {}

type drawing struct {
	Name  string
	Shape shape
}

var (
	xLens     = NewLens(func(p point) int { return p.X }, func(p point, x int) point { p.X = x; return p })
	centerLns = NewLens(func(c circle) point { return c.Center }, func(c circle, p point) circle { c.Center = p; return c })
	shapeLens = NewLens(func(d drawing) shape { return d.Shape }, func(d drawing, s shape) drawing { d.Shape = s; return d })
	circlePr  = CasePrism(func(c circle) shape { return c })
	squarePr  = CasePrism(func(s square) shape { return s })
)

func randomPoint(r *rand.Rand) point {
	return point{X: r.Intn(1000) - 500, Y: r.Intn(1000) - 500}
}

func randomShape(r *rand.Rand) shape {
	if r.Intn(2) == 0 {
		return circle{Center: randomPoint(r)}
	}
	return square{Side: r.Intn(100)}
}

func TestLens_Laws(t *testing.T) {
	r := rand.New(rand.NewSource(1))
	l := ThenLens(centerLns, xLens)

	for i := 0; i < 500; i++ {
		s := circle{Center: randomPoint(r)}
		v1, v2 := r.Intn(100), r.Intn(100)

		assert.Equal(t, v1, l.Get(l.Set(s, v1)), "get-set")
		assert.Equal(t, s, l.Set(s, l.Get(s)), "set-get")
		assert.Equal(t, l.Set(s, v2), l.Set(l.Set(s, v1), v2), "set-set")
	}
}

func TestIdentity_Laws(t *testing.T) {
	id := Identity[point]()
	p := point{X: 1, Y: 2}
	assert.Equal(t, p, id.Get(p))
	assert.Equal(t, point{X: 3}, id.Set(p, point{X: 3}))
}

func TestPrism_ExtractEmbed(t *testing.T) {
	r := rand.New(rand.NewSource(2))
	for i := 0; i < 500; i++ {
		c := circle{Center: randomPoint(r)}
		got, ok := circlePr.Extract(circlePr.Embed(c))
		require.True(t, ok)
		assert.Equal(t, c, got)
	}
}

func TestPrism_ExtractFailsOnOtherCase(t *testing.T) {
	_, ok := circlePr.Extract(square{Side: 3})
	assert.False(t, ok)

	_, ok = squarePr.Extract(circle{})
	assert.False(t, ok)
}

func TestAffine_Laws(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	a := ThenLensAffine(ThenLensAffine(LensThenPrism(shapeLens, circlePr), centerLns), xLens)

	for i := 0; i < 500; i++ {
		d := drawing{Name: "d", Shape: randomShape(r)}
		v := r.Intn(100)

		if got, ok := a.Extract(d); ok {
			back, ok := a.Inject(d, got)
			require.True(t, ok)
			assert.Equal(t, d, back, "inject(extract(s)) == s")
		}

		if s2, ok := a.Inject(d, v); ok {
			got, ok := a.Extract(s2)
			require.True(t, ok)
			assert.Equal(t, v, got, "extract(inject(s, v)) == v")
		} else {
			_, extracted := a.Extract(d)
			assert.False(t, extracted, "inject may only fail when extract fails")
			assert.Equal(t, d, s2, "failed inject leaves the root unchanged")
		}
	}
}

func TestAffine_InjectNeverSwitchesCase(t *testing.T) {
	a := LensThenPrism(shapeLens, circlePr)
	d := drawing{Shape: square{Side: 4}}

	got, ok := a.Inject(d, circle{Center: point{X: 9}})
	assert.False(t, ok)
	assert.Equal(t, d, got)
}

func TestThenAffine_Associative(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	outer := LensThenPrism(shapeLens, circlePr)
	mid := centerLns.Affine()
	inner := xLens.Affine()

	left := ThenAffine(ThenAffine(outer, mid), inner)
	right := ThenAffine(outer, ThenAffine(mid, inner))

	for i := 0; i < 200; i++ {
		d := drawing{Shape: randomShape(r)}
		v := r.Intn(100)

		lv, lok := left.Extract(d)
		rv, rok := right.Extract(d)
		assert.Equal(t, lok, rok)
		assert.Equal(t, lv, rv)

		ls, lok := left.Inject(d, v)
		rs, rok := right.Inject(d, v)
		assert.Equal(t, lok, rok)
		assert.Equal(t, ls, rs)
	}
}

func TestThenPrism_RoundTrip(t *testing.T) {
	type wrapper struct{ Shape shape }
	outer := NewPrism(
		func(w *wrapper) (shape, bool) {
			if w == nil {
				return nil, false
			}
			return w.Shape, true
		},
		func(s shape) *wrapper { return &wrapper{Shape: s} },
	)
	p := ThenPrism(outer, squarePr)

	got, ok := p.Extract(p.Embed(square{Side: 7}))
	require.True(t, ok)
	assert.Equal(t, square{Side: 7}, got)

	_, ok = p.Extract(nil)
	assert.False(t, ok)
}

func TestAffine_Modify(t *testing.T) {
	a := ThenLensAffine(LensThenPrism(shapeLens, circlePr), centerLns)

	got, ok := a.Modify(drawing{Shape: circle{Center: point{X: 1}}}, func(p point) point {
		p.X++
		return p
	})
	require.True(t, ok)
	assert.Equal(t, drawing{Shape: circle{Center: point{X: 2}}}, got)

	_, ok = a.Modify(drawing{Shape: square{}}, func(p point) point { return p })
	assert.False(t, ok)
}
