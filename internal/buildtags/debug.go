//go:build debug
// +build debug

package buildtags

// Debug is true when the package is built with the debug build tag.
const Debug = true
