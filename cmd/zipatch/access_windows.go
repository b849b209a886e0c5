//go:build windows

package main

import "io/fs"

// ensureReadable is a no-op on Windows: POSIX permission bits don't map to
// ACLs, and os.Open already fails cleanly on an inaccessible file.
func ensureReadable(path string, info fs.FileInfo) error {
	return nil
}
