package demux

import (
	"log/slog"
	"strings"

	"github.com/voskra/voskra/media"
	"github.com/voskra/voskra/mp4"
)

// probeWindow bounds how far Probe scans for a moof signature, keeping the
// probe O(1) in the stream size.
const probeWindow = 16384

// Passthrough demuxes fragmented-MP4 segments without re-encoding: video
// bytes are forwarded untouched, and only fragment boundaries, emsg timed
// metadata, and SEI caption samples are interpreted. In progressive mode it
// guarantees the emitted video buffer never straddles an incomplete
// fragment, holding trailing bytes back across calls until the fragment
// after them proves them complete.
//
// All state is owned exclusively by one instance, so independent segment
// streams (different quality levels, for example) each get their own
// Passthrough. Calls must be strictly sequential.
type Passthrough struct {
	log         *slog.Logger
	progressive bool

	video      *media.VideoTrack
	audio      *media.AudioTrack
	metadata   *media.MetadataTrack
	captions   *media.CaptionTrack
	remainder  []byte
	timeOffset float64
}

var _ Demuxer = (*Passthrough)(nil)

// NewPassthrough creates a passthrough demuxer. In progressive mode incoming
// chunks carry no fragment-alignment guarantee and boundaries are managed
// internally; otherwise the caller is responsible for supplying
// fragment-aligned chunks. If log is nil, slog.Default() is used.
func NewPassthrough(progressive bool, log *slog.Logger) *Passthrough {
	if log == nil {
		log = slog.Default()
	}
	return &Passthrough{
		log:         log.With("component", "demux"),
		progressive: progressive,
		video:       &media.VideoTrack{},
		audio:       &media.AudioTrack{},
		metadata:    &media.MetadataTrack{},
		captions:    &media.CaptionTrack{ID: media.CaptionTrackID},
	}
}

// ResetInitSegment builds fresh tracks for a new codec context. Track ids,
// timescales, and codecs come from the init segment; the codec hints fill in
// only when the init segment does not name one. An init segment without a
// video or audio box leaves the corresponding track with zero fields —
// callers treat an unset id as "track absent". The time offset and any
// outstanding remainder are discarded.
func (p *Passthrough) ResetInitSegment(init []byte, audioCodec, videoCodec string, trackDuration float64) {
	p.video = &media.VideoTrack{Duration: trackDuration}
	p.audio = &media.AudioTrack{Duration: trackDuration}
	p.metadata = &media.MetadataTrack{}
	p.captions = &media.CaptionTrack{ID: media.CaptionTrackID}
	p.remainder = nil
	p.timeOffset = 0

	info := mp4.ParseInitSegment(init)
	if v := info.Video; v != nil {
		p.video.ID = v.ID
		p.video.Timescale = v.Timescale
		p.video.Codec = v.Codec
		if p.video.Codec == "" {
			p.video.Codec = videoCodec
		}
	}
	if a := info.Audio; a != nil {
		p.audio.ID = a.ID
		p.audio.Timescale = a.Timescale
		p.audio.Codec = a.Codec
		if p.audio.Codec == "" {
			p.audio.Codec = audioCodec
		}
	}
	// Sample boundaries inside the passthrough buffer are not decoded.
	p.video.SampleDuration = 0
	p.captions.Timescale = p.video.Timescale

	p.log.Debug("init segment parsed",
		"hasVideo", info.Video != nil,
		"hasAudio", info.Audio != nil,
		"videoCodec", p.video.Codec,
		"audioCodec", p.audio.Codec,
	)
}

// ResetTimeStamp is a no-op: passthrough mode defers all timing to the
// decode and composition fields embedded in the fragments themselves.
func (p *Passthrough) ResetTimeStamp() {}

// ResetContiguity is a no-op: no contiguity state is held in passthrough mode.
func (p *Passthrough) ResetContiguity() {}

// Probe reports whether a moof box is found within the first 16384 bytes.
func (p *Passthrough) Probe(data []byte) bool {
	window := data
	if len(window) > probeWindow {
		window = window[:probeWindow]
	}
	return len(mp4.FindBoxes(window, "moof")) > 0
}

// Demux processes one chunk at the given time offset. In progressive mode
// the chunk is joined with the outstanding remainder and split at the last
// fragment boundary; otherwise it is passed through verbatim. Timed metadata
// accumulates on the metadata track across calls; caption samples are
// replaced with the ones found in this call's buffer.
func (p *Passthrough) Demux(data []byte, timeOffset float64) (*media.Result, error) {
	p.timeOffset = timeOffset

	videoData := data
	if p.progressive {
		if len(p.remainder) > 0 {
			joined := make([]byte, 0, len(p.remainder)+len(data))
			joined = append(joined, p.remainder...)
			joined = append(joined, data...)
			videoData = joined
		}
		videoData, p.remainder = splitLastFragment(videoData)
	}
	p.video.Data = videoData

	p.extractMetadata(videoData, timeOffset)
	p.captions.Samples = mp4.ParseCaptionSamples(timeOffset, p.video)

	return p.result(), nil
}

// Flush signals end of input for the segment: the entire remainder is
// emitted as final, accepting any incompleteness rather than deferring it.
// Audio and caption tracks are replaced with freshly-empty placeholders —
// incremental state from prior calls is not reusable past a segment
// boundary; the fresh caption track is populated from the flushed buffer so
// terminal-fragment captions are not lost.
func (p *Passthrough) Flush() *media.Result {
	videoData := p.remainder
	p.remainder = nil
	p.video.Data = videoData

	p.extractMetadata(videoData, p.timeOffset)

	p.audio = &media.AudioTrack{}
	p.captions = &media.CaptionTrack{ID: media.CaptionTrackID, Timescale: p.video.Timescale}
	p.captions.Samples = mp4.ParseCaptionSamples(p.timeOffset, p.video)

	return p.result()
}

// DemuxSampleAES always fails: this format path carries no per-sample
// encryption support.
func (p *Passthrough) DemuxSampleAES(data, keyData []byte, timeOffset float64) (*media.Result, error) {
	return nil, ErrSampleAESUnsupported
}

// Destroy releases all owned buffers and tracks.
func (p *Passthrough) Destroy() {
	p.video = nil
	p.audio = nil
	p.metadata = nil
	p.captions = nil
	p.remainder = nil
}

// extractMetadata appends a metadata sample for every ID3-schemed emsg box
// in data. A box with an absolute presentation time resolves against its own
// timescale; one with a delta resolves against timeOffset. Malformed boxes
// are skipped individually and extraction continues.
func (p *Passthrough) extractMetadata(data []byte, timeOffset float64) {
	if len(data) == 0 {
		return
	}
	for _, box := range mp4.FindBoxes(data, "emsg") {
		e, err := mp4.ParseEmsg(box.Payload(data))
		if err != nil {
			p.log.Debug("skipping malformed emsg box", "error", err)
			continue
		}
		if !isID3Scheme(e.SchemeIDURI) {
			continue
		}
		if e.Timescale == 0 {
			p.log.Debug("skipping emsg box with zero timescale", "scheme", e.SchemeIDURI)
			continue
		}

		pts := timeOffset
		if e.PresentationTime != nil {
			pts = float64(*e.PresentationTime) / float64(e.Timescale)
		} else if e.PresentationTimeDelta != nil {
			pts = timeOffset + float64(*e.PresentationTimeDelta)/float64(e.Timescale)
		}

		p.metadata.Samples = append(p.metadata.Samples, media.MetadataSample{
			Payload: e.Payload,
			Length:  len(e.Payload),
			DTS:     pts,
			PTS:     pts,
			Schema:  media.SchemaEmsg,
		})
	}
}

// isID3Scheme reports whether an emsg scheme id uri tags an ID3 payload.
// Both separator spellings seen in the wild are accepted.
func isID3Scheme(uri string) bool {
	u := strings.ToLower(uri)
	return strings.Contains(u, "/emsg-id3") || strings.Contains(u, "/emsg/id3")
}

func (p *Passthrough) result() *media.Result {
	return &media.Result{
		Video:    p.video,
		Audio:    p.audio,
		Metadata: p.metadata,
		Captions: p.captions,
	}
}
