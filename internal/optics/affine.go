package optics

// Affine is a partial accessor: Extract fails when the focus is absent and
// Inject fails when the root cannot currently hold the focus.
type Affine[R, V any] struct {
	Extract func(R) (V, bool)
	Inject  func(R, V) (R, bool)
}

// NewAffine builds an affine from an extractor and an injector.
func NewAffine[R, V any](extract func(R) (V, bool), inject func(R, V) (R, bool)) Affine[R, V] {
	return Affine[R, V]{Extract: extract, Inject: inject}
}

// Modify applies f to the focus when present. The second result reports
// whether the root was changed.
func (a Affine[R, V]) Modify(r R, f func(V) V) (R, bool) {
	v, ok := a.Extract(r)
	if !ok {
		return r, false
	}
	return a.Inject(r, f(v))
}

// ThenAffine composes two affines. Composition is associative.
func ThenAffine[R, M, V any](outer Affine[R, M], inner Affine[M, V]) Affine[R, V] {
	return Affine[R, V]{
		Extract: func(r R) (V, bool) {
			m, ok := outer.Extract(r)
			if !ok {
				var zero V
				return zero, false
			}
			return inner.Extract(m)
		},
		Inject: func(r R, v V) (R, bool) {
			m, ok := outer.Extract(r)
			if !ok {
				return r, false
			}
			m2, ok := inner.Inject(m, v)
			if !ok {
				return r, false
			}
			return outer.Inject(r, m2)
		},
	}
}

// ThenLensAffine focuses through an affine and then a total lens.
func ThenLensAffine[R, M, V any](outer Affine[R, M], inner Lens[M, V]) Affine[R, V] {
	return ThenAffine(outer, inner.Affine())
}
