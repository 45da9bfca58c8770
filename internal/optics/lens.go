package optics

// Lens is a total accessor for a value V that always exists inside R.
type Lens[R, V any] struct {
	Get func(R) V
	Set func(R, V) R
}

// NewLens builds a lens from a getter and a setter.
func NewLens[R, V any](get func(R) V, set func(R, V) R) Lens[R, V] {
	return Lens[R, V]{Get: get, Set: set}
}

// Identity is the lens that focuses on the whole value.
func Identity[R any]() Lens[R, R] {
	return Lens[R, R]{
		Get: func(r R) R { return r },
		Set: func(_ R, v R) R { return v },
	}
}

// Modify applies f to the focused value.
func (l Lens[R, V]) Modify(r R, f func(V) V) R {
	return l.Set(r, f(l.Get(r)))
}

// Affine widens the lens to an affine that always succeeds.
func (l Lens[R, V]) Affine() Affine[R, V] {
	return Affine[R, V]{
		Extract: func(r R) (V, bool) { return l.Get(r), true },
		Inject:  func(r R, v V) (R, bool) { return l.Set(r, v), true },
	}
}

// ThenLens composes two lenses. Go methods cannot introduce type parameters,
// so composition across value types is a function.
func ThenLens[R, M, V any](outer Lens[R, M], inner Lens[M, V]) Lens[R, V] {
	return Lens[R, V]{
		Get: func(r R) V { return inner.Get(outer.Get(r)) },
		Set: func(r R, v V) R { return outer.Set(r, inner.Set(outer.Get(r), v)) },
	}
}

// LensThenPrism focuses through a field and then into one case of it.
func LensThenPrism[R, M, V any](outer Lens[R, M], inner Prism[M, V]) Affine[R, V] {
	return ThenAffine(outer.Affine(), inner.Affine())
}
