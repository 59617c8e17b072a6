package whttp

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestGet(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/missing" {
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, "<html><head><title>\n  Not Found\n</title></head></html>")
			return
		}
		if r.Header.Get("X-Token") != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		fmt.Fprint(w, `{"ok":true}`)
	}))
	defer srv.Close()

	client, err := NewClient(Options{})
	if err != nil {
		t.Fatal(err)
	}

	res, err := Get(context.Background(), client, srv.URL+"/search", map[string]string{"X-Token": "secret"})
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(res.Body) != `{"ok":true}` {
		t.Fatalf("unexpected body %q", res.Body)
	}

	res, err = Get(context.Background(), client, srv.URL+"/missing", nil)
	if !errors.Is(err, ErrStatus) {
		t.Fatalf("expected ErrStatus, got %v", err)
	}
	if title, ok := res.Title(); !ok || title != "Not Found" {
		t.Fatalf("unexpected title %q", title)
	}
}

func TestNewClientRejectsBadProxy(t *testing.T) {
	if _, err := NewClient(Options{Proxy: "://bad"}); err == nil {
		t.Fatal("expected an error for an invalid proxy")
	}
}

func TestGetServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
		fmt.Fprint(w, "<html><head><title>Maintenance</title></head></html>")
	}))
	defer srv.Close()

	client, _ := NewClient(Options{})
	res, err := Get(context.Background(), client, srv.URL, nil)
	if !errors.Is(err, ErrStatus) || res == nil || res.StatusCode != http.StatusServiceUnavailable {
		t.Fatalf("expected ErrStatus with the 503 response, got %v", err)
	}
	if !strings.Contains(err.Error(), "Maintenance") {
		t.Fatalf("error should carry the page title: %v", err)
	}
}
