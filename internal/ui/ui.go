// Package ui serves the built-in control panel: listener state, counters
// and start/stop buttons. It drives the API over /ws like any other client.
package ui

import (
	"embed"
	"fmt"
	"io/fs"
	"net/http"
	"os/exec"
	"runtime"
)

//go:embed static
var staticFS embed.FS

// Handler serves the panel at / and its assets
func Handler() http.Handler {
	sub, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.FileServer(http.FS(sub))
}

// URL is the panel address for an API listening on addr. A token is
// passed in the fragment so it never reaches server logs.
func URL(addr, token string) string {
	u := fmt.Sprintf("http://%s/", addr)
	if token != "" {
		u += "#token=" + token
	}
	return u
}

// OpenBrowser opens url with the desktop's default handler
func OpenBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
