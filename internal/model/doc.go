// Package model holds the domain values shared by every feature: device and
// credential identifiers, SDK status updates, orders, places and the small
// enumerations persisted across launches.
//
// Sum types are sealed interfaces with one struct per variant. All variants
// are comparable so that status streams can be deduplicated with ==.
package model
