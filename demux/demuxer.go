// Package demux implements container demuxing for the playback pipeline.
// Every container variant exposes the same Demuxer capability surface so the
// outer format selector can pick one by probing; the fragmented-MP4
// passthrough demuxer is the variant implemented here.
package demux

import (
	"errors"
	"log/slog"

	"github.com/voskra/voskra/media"
)

// ErrSampleAESUnsupported is returned by demuxers that carry no per-sample
// decryption support. It is distinct from parse errors so callers can branch
// on format capability instead of catching a generic failure.
var ErrSampleAESUnsupported = errors.New("demux: SAMPLE-AES decryption not supported")

// ErrUnknownFormat is returned by Select when no demuxer recognizes the data.
var ErrUnknownFormat = errors.New("demux: no demuxer recognizes the data")

// Demuxer is the capability surface shared by all container demuxers. One
// instance owns the state for one segment stream; calls on it must be
// strictly sequential.
type Demuxer interface {
	// ResetInitSegment starts a new codec context: fresh tracks are built
	// from the init segment and all per-segment state is discarded.
	ResetInitSegment(init []byte, audioCodec, videoCodec string, trackDuration float64)

	// ResetTimeStamp and ResetContiguity reset any timing or contiguity
	// state a variant holds between segments.
	ResetTimeStamp()
	ResetContiguity()

	// Probe reports whether the data looks like this demuxer's container.
	Probe(data []byte) bool

	// Demux processes one chunk of segment data at the given time offset
	// (seconds) and returns the four output tracks by reference.
	Demux(data []byte, timeOffset float64) (*media.Result, error)

	// Flush signals end of input for the current segment and emits whatever
	// was held back.
	Flush() *media.Result

	// DemuxSampleAES processes a chunk carrying SAMPLE-AES encrypted samples.
	DemuxSampleAES(data, keyData []byte, timeOffset float64) (*media.Result, error)

	// Destroy releases all owned buffers and tracks.
	Destroy()
}

// Select probes data against the known demuxer variants and returns a fresh
// instance of the first one that recognizes it.
func Select(data []byte, progressive bool, log *slog.Logger) (Demuxer, error) {
	if p := NewPassthrough(progressive, log); p.Probe(data) {
		return p, nil
	}
	return nil, ErrUnknownFormat
}
