package httputil

import (
	"bytes"
	"compress/gzip"
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/gzip":
			var buf bytes.Buffer
			zw := gzip.NewWriter(&buf)
			zw.Write([]byte("compressed matcha"))
			zw.Close()
			w.Header().Set("Content-Encoding", "gzip")
			w.Write(buf.Bytes())
		case "/missing":
			http.NotFound(w, r)
		default:
			if r.Header.Get("Referer") != "https://example.com/" {
				w.WriteHeader(http.StatusBadRequest)
				return
			}
			w.Write([]byte("plain matcha"))
		}
	}))
	defer srv.Close()

	// Disable transparent decompression so the gzip branch of ReadBody runs.
	client := NewHTTPClient(&http.Transport{DisableCompression: true}, 0)
	ctx := context.Background()

	body, err := Fetch(ctx, client, srv.URL+"/plain", JSONHeaders("https://example.com/"))
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "plain matcha" {
		t.Errorf("got %q", body)
	}

	body, err = Fetch(ctx, client, srv.URL+"/gzip", nil)
	if err != nil {
		t.Fatal(err)
	}
	if string(body) != "compressed matcha" {
		t.Errorf("got %q", body)
	}

	if _, err := Fetch(ctx, client, srv.URL+"/missing", nil); !errors.Is(err, ErrUnexpectedStatus) {
		t.Errorf("got %v, want ErrUnexpectedStatus", err)
	}
}
