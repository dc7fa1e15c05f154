//go:build !debug
// +build !debug

package buildtags

const Debug = false
