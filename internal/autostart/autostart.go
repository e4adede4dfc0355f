// Package autostart registers inputcap to launch at login.
package autostart

import (
	"bytes"
	"encoding/xml"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
)

// ErrUnsupported is returned on platforms without a known login mechanism
var ErrUnsupported = errors.New("autostart not supported on this platform")

// Entry describes the program launched at login
type Entry struct {
	// Name identifies the entry, e.g. "inputcap"
	Name string
	// Exec is the absolute executable path
	Exec string
	Args []string
}

// ForExecutable returns an entry for the running binary
func ForExecutable(name string, args ...string) (Entry, error) {
	exe, err := os.Executable()
	if err != nil {
		return Entry{}, fmt.Errorf("failed to get executable path: %w", err)
	}
	if resolved, err := filepath.EvalSymlinks(exe); err == nil {
		exe = resolved
	}
	return Entry{Name: name, Exec: exe, Args: args}, nil
}

const launchAgentPlist = `<?xml version="1.0" encoding="UTF-8"?>
<!DOCTYPE plist PUBLIC "-//Apple//DTD PLIST 1.0//EN" "http://www.apple.com/DTDs/PropertyList-1.0.dtd">
<plist version="1.0">
<dict>
    <key>Label</key>
    <string>{{xml .Label}}</string>
    <key>ProgramArguments</key>
    <array>
        <string>{{xml .Exec}}</string>{{range .Args}}
        <string>{{xml .}}</string>{{end}}
    </array>
    <key>RunAtLoad</key>
    <true/>
    <key>KeepAlive</key>
    <false/>
</dict>
</plist>
`

const desktopEntry = `[Desktop Entry]
Type=Application
Name={{.Name}}
Comment=Global input capture
Exec={{.Command}}
Terminal=false
X-GNOME-Autostart-enabled=true
`

var (
	plistTmpl   = template.Must(template.New("plist").Funcs(template.FuncMap{"xml": xmlEscape}).Parse(launchAgentPlist))
	desktopTmpl = template.Must(template.New("desktop").Parse(desktopEntry))
)

// LaunchAgent renders the macOS LaunchAgent plist for e
func LaunchAgent(e Entry) ([]byte, error) {
	var buf bytes.Buffer
	err := plistTmpl.Execute(&buf, struct {
		Label string
		Exec  string
		Args  []string
	}{label(e.Name), e.Exec, e.Args})
	return buf.Bytes(), err
}

// DesktopFile renders the XDG autostart entry for e
func DesktopFile(e Entry) ([]byte, error) {
	var buf bytes.Buffer
	err := desktopTmpl.Execute(&buf, struct {
		Name    string
		Command string
	}{e.Name, CommandLine(e)})
	return buf.Bytes(), err
}

// CommandLine joins Exec and Args, quoting arguments that contain spaces
func CommandLine(e Entry) string {
	parts := make([]string, 0, len(e.Args)+1)
	for _, p := range append([]string{e.Exec}, e.Args...) {
		if strings.ContainsAny(p, " \t\"") {
			p = `"` + strings.ReplaceAll(p, `"`, `\"`) + `"`
		}
		parts = append(parts, p)
	}
	return strings.Join(parts, " ")
}

func label(name string) string {
	return "com." + name + ".agent"
}

func xmlEscape(s string) (string, error) {
	var b strings.Builder
	if err := xml.EscapeText(&b, []byte(s)); err != nil {
		return "", err
	}
	return b.String(), nil
}

func writeFile(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func removeFile(path string) error {
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
