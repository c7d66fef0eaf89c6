package arena

import "unsafe"

// AllocOne returns a pointer to a single zeroed T carved from the
// arena. Go forbids generic type parameters on methods, so this is a
// free function rather than an Arena method, layering a generic
// convenience over a non-generic core type.
//
// T must not contain pointers, interfaces, or funcs: the arena's
// backing storage is a noscan []byte, invisible to the garbage
// collector, so any Go pointer reinterpreted into it could be
// collected out from under a live reference. Use it for plain
// numeric/array structs only; reach for ordinary allocation plus
// Arena.Reserve for anything the GC must trace.
func AllocOne[T any](a *Arena) (*T, error) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	buf, err := a.AllocBytes(size)
	if err != nil {
		return nil, err
	}
	if size == 0 {
		return new(T), nil
	}
	return (*T)(unsafe.Pointer(&buf[0])), nil
}

// AllocSlice returns a slice of n zeroed T, backed by arena memory.
// Same pointer-free constraint on T as AllocOne.
func AllocSlice[T any](a *Arena, n int) ([]T, error) {
	var zero T
	size := int(unsafe.Sizeof(zero))
	buf, err := a.Alloc(n, size)
	if err != nil {
		return nil, err
	}
	if size == 0 || n == 0 {
		return make([]T, n), nil
	}
	return unsafe.Slice((*T)(unsafe.Pointer(&buf[0])), n), nil
}
