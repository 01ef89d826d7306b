package fetch

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
)

func TestSegmentHTTP(t *testing.T) {
	t.Parallel()

	body := bytes.Repeat([]byte{0xAB}, 1000)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	c := NewClient(false, nil)
	defer c.Close()

	got, err := c.Segment(context.Background(), srv.URL+"/seg1.m4s")
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, body) {
		t.Errorf("fetched %d bytes, want %d", len(got), len(body))
	}
}

func TestSegmentHTTPErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	c := NewClient(false, nil)
	defer c.Close()

	if _, err := c.Segment(context.Background(), srv.URL+"/missing.m4s"); err == nil {
		t.Fatal("expected an error for a 404 response")
	}
}

func TestSegmentLocalFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "seg.m4s")
	want := []byte("local segment bytes")
	if err := os.WriteFile(path, want, 0o644); err != nil {
		t.Fatal(err)
	}

	c := NewClient(false, nil)
	defer c.Close()

	got, err := c.Segment(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(got, want) {
		t.Errorf("got %q, want %q", got, want)
	}
}

func TestStreamChunking(t *testing.T) {
	t.Parallel()

	body := bytes.Repeat([]byte{0x11, 0x22, 0x33}, 500)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(body)
	}))
	defer srv.Close()

	c := NewClient(false, nil)
	defer c.Close()

	var joined []byte
	err := c.Stream(context.Background(), srv.URL, 64, func(chunk []byte) error {
		if len(chunk) == 0 || len(chunk) > 64 {
			t.Errorf("chunk of %d bytes, want 1..64", len(chunk))
		}
		joined = append(joined, chunk...)
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(joined, body) {
		t.Errorf("reassembled %d bytes, want %d", len(joined), len(body))
	}
}

func TestStreamCancelled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write(make([]byte, 1<<20))
	}))
	defer srv.Close()

	c := NewClient(false, nil)
	defer c.Close()

	ctx, cancel := context.WithCancel(context.Background())
	err := c.Stream(ctx, srv.URL, 1024, func(chunk []byte) error {
		cancel()
		return nil
	})
	if err == nil {
		t.Fatal("expected a context error after cancellation")
	}
}
