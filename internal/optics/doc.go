// Package optics provides composable accessors used to focus a reducer on a
// part of a larger state or action.
//
// Three shapes are supported:
//   - Lens: total get/set over a field that always exists
//   - Prism: partial extract/embed over one case of a sum type
//   - Affine: partial extract/inject, the common generalization of both
//
// All three compose through methods (Then) rather than operators. Composition
// is associative, which lets reducer.Pullback focus arbitrarily deep into a
// state tree without bespoke glue at each level.
//
// LAWS (checked by optics_test.go):
//
//	Lens:   l.Get(l.Set(s, v)) == v
//	        l.Set(s, l.Get(s)) == s
//	        l.Set(l.Set(s, v1), v2) == l.Set(s, v2)
//	Prism:  p.Extract(p.Embed(v)) == (v, true)
//	Affine: a.Extract(s) == (v, true) implies a.Inject(s, v) == (s, true)
//	        a.Inject(s, v) == (s2, true) implies a.Extract(s2) == (v, true)
//
// Extract on a prism may be non-injective: several roots may extract to the
// same value (an app action can be viewed as a feature-local trigger). Only
// the round trip through Embed is required to be exact.
package optics
