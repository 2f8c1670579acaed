package engine

// chunk splits s into consecutive slices of at most size elements.
// The sub-slices share s's backing array.
func chunk[T any](s []T, size int) [][]T {
	if size <= 0 {
		size = len(s)
	}
	var out [][]T
	for start := 0; start < len(s); start += size {
		out = append(out, s[start:min(start+size, len(s))])
	}
	return out
}
