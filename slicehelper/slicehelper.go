// Package slicehelper provides helpers for appending to byte slices in place.
package slicehelper

import "slices"

// Extend grows in by n elements. head is the whole extended slice,
// tail is the n elements after the original length, ready to be written.
//
// No allocation is performed if in has enough spare capacity.
func Extend[S ~[]E, E any](in S, n int) (head, tail S) {
	head = slices.Grow(in, n)[:len(in)+n]
	return head, head[len(in):]
}
