package crud

// Presence checks for values whose composed shape is not known statically,
// such as resources registered in a map of any. Prefer declaring the
// capability interface in signatures when the shape is known.

// IsPageable reports whether v implements Pageable.
func IsPageable[T any](v any) (Pageable[T], bool) {
	c, ok := v.(Pageable[T])
	return c, ok
}

// IsFindable reports whether v implements Findable.
func IsFindable[T any, ID comparable](v any) (Findable[T, ID], bool) {
	c, ok := v.(Findable[T, ID])
	return c, ok
}

// IsCountable reports whether v implements Countable.
func IsCountable(v any) (Countable, bool) {
	c, ok := v.(Countable)
	return c, ok
}

// IsExistable reports whether v implements Existable.
func IsExistable[ID comparable](v any) (Existable[ID], bool) {
	c, ok := v.(Existable[ID])
	return c, ok
}

// IsCreatable reports whether v implements Creatable.
func IsCreatable[T, D any](v any) (Creatable[T, D], bool) {
	c, ok := v.(Creatable[T, D])
	return c, ok
}

// IsUpdatable reports whether v implements Updatable.
func IsUpdatable[T, D any, ID comparable](v any) (Updatable[T, D, ID], bool) {
	c, ok := v.(Updatable[T, D, ID])
	return c, ok
}

// IsDeletable reports whether v implements Deletable.
func IsDeletable[ID comparable](v any) (Deletable[ID], bool) {
	c, ok := v.(Deletable[ID])
	return c, ok
}

// IsReadOperations reports whether v implements every read capability.
func IsReadOperations[T any, ID comparable](v any) (ReadOperations[T, ID], bool) {
	c, ok := v.(ReadOperations[T, ID])
	return c, ok
}

// IsWriteOperations reports whether v implements every write capability.
func IsWriteOperations[T, D any, ID comparable](v any) (WriteOperations[T, D, ID], bool) {
	c, ok := v.(WriteOperations[T, D, ID])
	return c, ok
}

// IsCrudOperations reports whether v implements every capability.
func IsCrudOperations[T, D any, ID comparable](v any) (CrudOperations[T, D, ID], bool) {
	c, ok := v.(CrudOperations[T, D, ID])
	return c, ok
}
