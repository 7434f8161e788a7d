//go:build !treesitter

package resolve

func registerTreeSitter(*Registry) {}
