package alloc

/*
#include <stdlib.h>
*/
import "C"
import "unsafe"

// sysAlignedAlloc is the system aligned allocator every slab in this
// package ultimately comes from: posix_memalign via cgo, the same
// primitive the original source reaches for on non-Apple platforms. Go's
// own allocator cannot give an arbitrary alignment, and nothing in the
// example pack's pure-Go code offers one either, so this is the one
// place this package drops below the Go runtime.
func sysAlignedAlloc(align, size uintptr) unsafe.Pointer {
	var ptr unsafe.Pointer
	if C.posix_memalign(&ptr, C.size_t(align), C.size_t(size)) != 0 {
		return nil
	}
	return ptr
}

func sysFree(p unsafe.Pointer) {
	C.free(p)
}
