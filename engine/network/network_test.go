package network

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"
)

const payload = "<furnidata><roomitemtypes/></furnidata>"

func newServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/plain", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Seen-Agent", r.Header.Get("User-Agent"))
		w.Header().Set("X-Seen-Accept", r.Header.Get("Accept"))
		w.Write([]byte(payload))
	})
	mux.HandleFunc("/gzip", func(w http.ResponseWriter, r *http.Request) {
		if !strings.Contains(r.Header.Get("Accept-Encoding"), "gzip") {
			t.Errorf("Accept-Encoding = %q", r.Header.Get("Accept-Encoding"))
		}
		w.Header().Set("Content-Encoding", "gzip")
		gz := gzip.NewWriter(w)
		gz.Write([]byte(payload))
		gz.Close()
	})
	mux.HandleFunc("/zstd", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Encoding", "zstd")
		enc, err := zstd.NewWriter(w)
		if err != nil {
			t.Error(err)
			return
		}
		enc.Write([]byte(payload))
		enc.Close()
	})
	mux.HandleFunc("/empty", func(w http.ResponseWriter, r *http.Request) {})
	mux.HandleFunc("/missing", http.NotFound)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestClientHeaders(t *testing.T) {
	srv := newServer(t)
	client := NewClient(ClientOptions{UserAgent: "furni-test/1.0", Accept: "*/*", Timeout: 5 * time.Second})

	resp, err := client.Get(srv.URL + "/plain")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	resp.Body.Close()
	if got := resp.Header.Get("X-Seen-Agent"); got != "furni-test/1.0" {
		t.Errorf("User-Agent = %q", got)
	}
	if got := resp.Header.Get("X-Seen-Accept"); got != "*/*" {
		t.Errorf("Accept = %q", got)
	}
}

func TestDownload(t *testing.T) {
	srv := newServer(t)
	client := NewClient(ClientOptions{Timeout: 5 * time.Second})

	for _, path := range []string{"/plain", "/gzip", "/zstd"} {
		t.Run(path, func(t *testing.T) {
			dest := filepath.Join(t.TempDir(), "sub", "furnidata.xml")
			n, err := Download(context.Background(), client, srv.URL+path, dest)
			if err != nil {
				t.Fatalf("Download failed: %v", err)
			}
			data, err := os.ReadFile(dest)
			if err != nil {
				t.Fatal(err)
			}
			if string(data) != payload || n != int64(len(payload)) {
				t.Errorf("got %d bytes %q", n, data)
			}
			if _, err := os.Stat(dest + ".tmp"); !os.IsNotExist(err) {
				t.Errorf("temp file left behind: %v", err)
			}
		})
	}
}

func TestDownloadFailures(t *testing.T) {
	srv := newServer(t)
	client := NewClient(ClientOptions{Timeout: 5 * time.Second})

	tests := []struct {
		name  string
		path  string
		check func(error) bool
	}{
		{"not found", "/missing", IsNotFound},
		{"empty body", "/empty", func(err error) bool { return errors.Is(err, ErrEmptyBody) }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			dest := filepath.Join(dir, "x.swf")
			_, err := Download(context.Background(), client, srv.URL+tt.path, dest)
			if !tt.check(err) {
				t.Fatalf("Download error = %v", err)
			}
			entries, _ := os.ReadDir(dir)
			if len(entries) != 0 {
				t.Errorf("files left behind: %v", entries)
			}
		})
	}

	var status *StatusError
	_, err := Download(context.Background(), client, srv.URL+"/missing", filepath.Join(t.TempDir(), "y"))
	if !errors.As(err, &status) || status.StatusCode != http.StatusNotFound {
		t.Errorf("error = %v, want *StatusError 404", err)
	}
}

func TestDownloadCancelled(t *testing.T) {
	srv := newServer(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Download(ctx, NewClient(ClientOptions{}), srv.URL+"/plain", filepath.Join(t.TempDir(), "z"))
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestFresh(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "furnidata.xml")
	if Fresh(path, time.Hour) || Exists(path) {
		t.Error("missing file reported present")
	}
	os.WriteFile(path, []byte("x"), 0644)
	if !Fresh(path, time.Hour) || !Exists(path) {
		t.Error("new file should be fresh")
	}
	old := time.Now().Add(-2 * time.Hour)
	os.Chtimes(path, old, old)
	if Fresh(path, time.Hour) {
		t.Error("old file should be stale")
	}
	if Fresh(dir, time.Hour) || Exists(dir) {
		t.Error("directory is not a cached file")
	}
}
