package slices

func Map[L ~[]X, X, Y any](l L, f func(X) Y) []Y {
	r := make([]Y, len(l))
	for i, x := range l {
		r[i] = f(x)
	}
	return r
}

func Any[L ~[]X, X any](l L, pred func(X) bool) bool {
	for _, x := range l {
		if pred(x) {
			return true
		}
	}
	return false
}
