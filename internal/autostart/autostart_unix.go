//go:build !windows

package autostart

import (
	"os"
	"path/filepath"
	"runtime"
)

// Enable installs e to launch at login
func Enable(e Entry) error {
	path, err := entryPath(e.Name)
	if err != nil {
		return err
	}

	var data []byte
	if runtime.GOOS == "darwin" {
		data, err = LaunchAgent(e)
	} else {
		data, err = DesktopFile(e)
	}
	if err != nil {
		return err
	}
	return writeFile(path, data)
}

// Disable removes the login entry for name
func Disable(name string) error {
	path, err := entryPath(name)
	if err != nil {
		return err
	}
	return removeFile(path)
}

// IsEnabled checks if a login entry for name exists
func IsEnabled(name string) bool {
	path, err := entryPath(name)
	if err != nil {
		return false
	}
	return exists(path)
}

func entryPath(name string) (string, error) {
	switch runtime.GOOS {
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		return filepath.Join(home, "Library", "LaunchAgents", label(name)+".plist"), nil
	case "linux", "freebsd", "openbsd", "netbsd":
		dir := os.Getenv("XDG_CONFIG_HOME")
		if dir == "" {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dir = filepath.Join(home, ".config")
		}
		return filepath.Join(dir, "autostart", name+".desktop"), nil
	}
	return "", ErrUnsupported
}
