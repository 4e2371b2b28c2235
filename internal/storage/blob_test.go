package storage

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestUpload(t *testing.T) {
	var gotPath, gotType, gotUpsert string
	var gotBody []byte

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotType = r.Header.Get("Content-Type")
		gotUpsert = r.Header.Get("x-upsert")
		gotBody, _ = io.ReadAll(r.Body)
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"Key":"avatars/0xabc-1.png"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "avatars", "svc-key", time.Second)
	key, err := c.Upload(context.Background(), "0xabc-1.png", []byte("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("upload: %v", err)
	}
	if key != "avatars/0xabc-1.png" {
		t.Fatalf("key = %q", key)
	}
	if gotPath != "/object/avatars/0xabc-1.png" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotType != "image/png" {
		t.Fatalf("content type = %q", gotType)
	}
	if gotUpsert != "false" {
		t.Fatalf("x-upsert = %q, overwrite must stay off", gotUpsert)
	}
	if string(gotBody) != "png-bytes" {
		t.Fatalf("body = %q", gotBody)
	}
}

func TestUploadConflict(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusConflict)
		_, _ = w.Write([]byte(`{"message":"The resource already exists"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "avatars", "", time.Second)
	_, err := c.Upload(context.Background(), "dupe.png", []byte("x"), "image/png")
	if !errors.Is(err, ErrObjectExists) {
		t.Fatalf("err = %v", err)
	}
}

func TestUploadErrorSurfacesAPIMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"message":"invalid bucket"}`))
	}))
	defer srv.Close()

	c := NewClient(srv.URL, "avatars", "", time.Second)
	_, err := c.Upload(context.Background(), "a.png", []byte("x"), "image/png")
	if err == nil {
		t.Fatal("expected error")
	}
	if got := err.Error(); !strings.Contains(got, "invalid bucket") {
		t.Fatalf("message not surfaced: %q", got)
	}
}

func TestPublicURL(t *testing.T) {
	c := NewClient("https://proj.supabase.co/storage/v1/", "avatars", "", time.Second)
	got := c.PublicURL("0xabc-1.png")
	want := "https://proj.supabase.co/storage/v1/object/public/avatars/0xabc-1.png"
	if got != want {
		t.Fatalf("url = %q", got)
	}
}
