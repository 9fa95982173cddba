package utils

// Ptr returns a pointer to v. Handy for copying values out from behind
// shared pointers and for optional request fields.
func Ptr[T any](v T) *T {
	return &v
}

// Value dereferences v, returning the zero value for a nil pointer.
func Value[T any](v *T) T {
	if v == nil {
		return *new(T)
	}
	return *v
}
