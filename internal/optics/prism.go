package optics

// Prism is a partial accessor for one case V of a sum type R.
type Prism[R, V any] struct {
	Extract func(R) (V, bool)
	Embed   func(V) R
}

// NewPrism builds a prism from an extractor and an embedder.
func NewPrism[R, V any](extract func(R) (V, bool), embed func(V) R) Prism[R, V] {
	return Prism[R, V]{Extract: extract, Embed: embed}
}

// CasePrism is the prism for a sealed interface R whose case is the concrete
// type V. Extraction is a type assertion; embedding is the implicit
// conversion to the interface.
func CasePrism[R any, V any](embed func(V) R) Prism[R, V] {
	return Prism[R, V]{
		Extract: func(r R) (V, bool) {
			v, ok := any(r).(V)
			return v, ok
		},
		Embed: embed,
	}
}

// Affine converts the prism into an affine. Inject only succeeds when the
// root is already the focused case, so the affine never switches cases.
func (p Prism[R, V]) Affine() Affine[R, V] {
	return Affine[R, V]{
		Extract: p.Extract,
		Inject: func(r R, v V) (R, bool) {
			if _, ok := p.Extract(r); !ok {
				return r, false
			}
			return p.Embed(v), true
		},
	}
}

// ThenPrism composes two prisms.
func ThenPrism[R, M, V any](outer Prism[R, M], inner Prism[M, V]) Prism[R, V] {
	return Prism[R, V]{
		Extract: func(r R) (V, bool) {
			m, ok := outer.Extract(r)
			if !ok {
				var zero V
				return zero, false
			}
			return inner.Extract(m)
		},
		Embed: func(v V) R { return outer.Embed(inner.Embed(v)) },
	}
}
