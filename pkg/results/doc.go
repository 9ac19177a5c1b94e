// Package results accumulates result pages for a finished job and derives
// filtered, sorted views of them.
//
// An Accumulator owns the accumulated items. It mutates only on explicit
// LoadFirstPage and LoadNextPage calls, and a single in-flight flag keeps
// two loads from overlapping. A View is a pure value: applying it never
// touches the accumulated slice.
package results
