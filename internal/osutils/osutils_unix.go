//go:build !windows

package osutils

import (
	"os"
	"os/user"
	"slices"
	"strconv"
)

// IsAdmin reports whether the process runs as root
func IsAdmin() bool {
	return os.Geteuid() == 0
}

func inInputGroup() bool {
	g, err := user.LookupGroup("input")
	if err != nil {
		return false
	}
	groups, err := os.Getgroups()
	if err != nil {
		return false
	}
	return slices.ContainsFunc(groups, func(gid int) bool {
		return g.Gid == strconv.Itoa(gid)
	})
}
