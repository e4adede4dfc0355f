package ui

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestURL(t *testing.T) {
	if got := URL("127.0.0.1:18080", ""); got != "http://127.0.0.1:18080/" {
		t.Errorf("Unexpected URL %q", got)
	}
	if got := URL("127.0.0.1:18080", "s3"); got != "http://127.0.0.1:18080/#token=s3" {
		t.Errorf("Unexpected URL %q", got)
	}
}

func TestHandlerServesPanel(t *testing.T) {
	srv := httptest.NewServer(Handler())
	defer srv.Close()

	for path, want := range map[string]string{
		"/":          "<title>inputcap</title>",
		"/panel.js":  "start_input_listener",
		"/style.css": ".badge",
	} {
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s failed: %v", path, err)
		}
		body, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Errorf("Expected 200 for %s, got %d", path, resp.StatusCode)
		}
		if !strings.Contains(string(body), want) {
			t.Errorf("Expected %s to contain %q", path, want)
		}
	}
}
