// Package osutils inspects the process privileges that decide what a
// capture backend can see.
package osutils

// Privileges is what the running process is allowed to observe
type Privileges struct {
	// Elevated is root on Unix and an administrator token on Windows
	Elevated bool
	// InputGroup is membership of the Linux "input" group
	InputGroup bool
}

// Current returns the privileges of this process
func Current() Privileges {
	return Privileges{
		Elevated:   IsAdmin(),
		InputGroup: inInputGroup(),
	}
}

// Hints lists warnings about events backend will miss on goos with p
func Hints(goos, backend string, p Privileges) []string {
	var hints []string
	switch {
	case goos == "linux" && backend == "evdev" && !p.Elevated && !p.InputGroup:
		hints = append(hints, "evdev needs read access to /dev/input; add the user to the input group and log in again")
	case goos == "linux" && backend == "gohook":
		hints = append(hints, "gohook only sees X11 clients; Wayland sessions need the evdev backend")
	case goos == "windows" && !p.Elevated:
		hints = append(hints, "not elevated: input aimed at administrator windows will not be captured")
	case goos == "darwin":
		hints = append(hints, "grant Accessibility and Input Monitoring permission if no events arrive")
	}
	return hints
}
