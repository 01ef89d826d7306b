// Package fetch retrieves media segments for the demux pipeline. Remote
// segments are fetched over HTTP, with an optional HTTP/3 transport for
// origins that support it; plain paths are read from the local filesystem so
// the CLI can demux on-disk segments with the same code path.
package fetch

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/quic-go/quic-go"
	"github.com/quic-go/quic-go/http3"
)

const defaultChunkSize = 64 * 1024

// Client fetches segments. It is safe for sequential reuse across segments;
// Close releases the underlying transport.
type Client struct {
	log            *slog.Logger
	hc             *http.Client
	closeTransport func() error
}

// NewClient creates a segment fetcher. With useHTTP3 set, requests ride an
// HTTP/3 transport over QUIC. If log is nil, slog.Default() is used.
func NewClient(useHTTP3 bool, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	c := &Client{log: log.With("component", "fetch")}
	if useHTTP3 {
		tr := &http3.Transport{
			TLSClientConfig: &tls.Config{},
			QUICConfig: &quic.Config{
				MaxIdleTimeout: 30 * time.Second,
			},
		}
		c.hc = &http.Client{Transport: tr}
		c.closeTransport = tr.Close
	} else {
		c.hc = &http.Client{}
	}
	return c
}

// Close releases the underlying transport, if any.
func (c *Client) Close() error {
	if c.closeTransport != nil {
		return c.closeTransport()
	}
	return nil
}

// Segment fetches one whole segment.
func (c *Client) Segment(ctx context.Context, location string) ([]byte, error) {
	r, err := c.open(ctx, location)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

// Stream delivers a segment to fn in chunks of at most chunkSize bytes,
// preserving byte order. Chunk boundaries carry no alignment guarantee of
// any kind — exactly the delivery model the progressive demuxer is built
// for. Each chunk is an independent copy the callback may retain.
func (c *Client) Stream(ctx context.Context, location string, chunkSize int, fn func(chunk []byte) error) error {
	if chunkSize <= 0 {
		chunkSize = defaultChunkSize
	}
	r, err := c.open(ctx, location)
	if err != nil {
		return err
	}
	defer r.Close()

	buf := make([]byte, chunkSize)
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		n, err := r.Read(buf)
		if n > 0 {
			chunk := make([]byte, n)
			copy(chunk, buf[:n])
			if cbErr := fn(chunk); cbErr != nil {
				return cbErr
			}
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
	}
}

func (c *Client) open(ctx context.Context, location string) (io.ReadCloser, error) {
	if !strings.HasPrefix(location, "http://") && !strings.HasPrefix(location, "https://") {
		return os.Open(location)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, location, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		resp.Body.Close()
		return nil, fmt.Errorf("fetch %s: unexpected status %s", location, resp.Status)
	}
	return resp.Body, nil
}
