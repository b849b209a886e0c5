//go:build !windows

package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"syscall"
)

// ErrPermission wraps the error ensureReadable returns when the file's own
// mode bits, not the OS's enforcement of them, would deny the current user
// read access — so a privileged invocation of apply/explain still fails
// the way an unprivileged one would.
var ErrPermission = errors.New("read permission denied")

// ensureReadable rejects path if the permission bits that apply to this
// process (owner, group, or other, depending on its effective uid and
// groups) would deny it read access, even when the process could still
// open the file by other means (running as root, a bypassing capability).
func ensureReadable(path string, info fs.FileInfo) error {
	if info == nil {
		var err error
		info, err = os.Stat(path)
		if err != nil {
			return err
		}
	}

	stat, ok := info.Sys().(*syscall.Stat_t)
	if !ok {
		return nil
	}

	perms := info.Mode().Perm()
	euid, egid := os.Geteuid(), os.Getegid()

	var required os.FileMode
	switch {
	case int(stat.Uid) == euid:
		required = 0400
	case inGroup(int(stat.Gid), egid):
		required = 0040
	default:
		required = 0004
	}

	if perms&required == 0 {
		return fmt.Errorf("%s: %w", path, ErrPermission)
	}
	return nil
}

// inGroup reports whether fileGID is the process's effective group or one
// of its supplementary groups.
func inGroup(fileGID, egid int) bool {
	if fileGID == egid {
		return true
	}
	groups, err := syscall.Getgroups()
	if err != nil {
		return false
	}
	for _, g := range groups {
		if int(g) == fileGID {
			return true
		}
	}
	return false
}
