//go:build !linux

package alloc

func systemMemoryBytes() uint64 { return defaultMemoryBytes }
