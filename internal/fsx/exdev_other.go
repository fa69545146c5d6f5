//go:build !unix

package fsx

// На не-unix платформах EXDEV не распознаётся отдельно.
func isEXDEV(err error) bool { return false }
