package utils

import "golang.org/x/exp/constraints"

// Min returns the smaller value between two numbers.
func Min[T constraints.Ordered](x, y T) T {
	if x < y {
		return x
	}
	return y
}

// Max returns the bigger value between two numbers.
func Max[T constraints.Ordered](x, y T) T {
	if x > y {
		return x
	}
	return y
}

// Abs returns the absolut value of x.
func Abs[T constraints.Signed | constraints.Float](x T) T {
	if x < 0 {
		return -x
	}
	return x
}

// ArgMax returns the index and the value of the largest element of s.
// On ties the first occurrence wins. An empty slice returns -1 and the zero value.
func ArgMax[T constraints.Ordered](s []T) (int, T) {
	var best T
	idx := -1
	for i, v := range s {
		if idx == -1 || v > best {
			idx, best = i, v
		}
	}
	return idx, best
}
