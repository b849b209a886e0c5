//go:build !windows

package platform

import "path/filepath"

// LongPathname cleans path on POSIX systems, which have no MAX_PATH limit
// to work around; the Windows build instead adds the \\?\ long-path
// prefix. Cleaning here means callers get the same "." and ".." handling
// on every platform instead of only on Windows's filepath.Clean call.
func LongPathname(path string) string {
	return filepath.Clean(path)
}
