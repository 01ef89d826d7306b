// Package media defines the track and sample types that flow through the
// Voskra demux pipeline, from segment demuxing through playback handoff.
package media

// CaptionTrackID is the reserved identifier assigned to the caption text
// track. It sits outside the range init segments assign to media tracks so
// downstream buffers can tell caption samples from media samples by id alone.
const CaptionTrackID uint32 = 0xFF

// SchemaEmsg tags metadata samples extracted from emsg boxes.
const SchemaEmsg = "emsg"

// VideoTrack is a passthrough video track: Data holds an unparsed,
// boundary-safe byte range that is forwarded to the playback buffer without
// re-encoding. SampleDuration is always 0 because individual sample
// boundaries inside the buffer are not decoded in passthrough mode.
type VideoTrack struct {
	ID             uint32
	Timescale      uint32
	Codec          string
	Duration       float64
	SampleDuration float64
	Data           []byte
}

// AudioTrack is a placeholder audio track. It carries no independent sample
// data in passthrough mode; it stays time-aligned with the video track
// through the shared Duration.
type AudioTrack struct {
	ID        uint32
	Timescale uint32
	Codec     string
	Duration  float64
}

// MetadataSample is one timed-metadata event. PTS and DTS are equal and
// expressed in seconds on the segment time base.
type MetadataSample struct {
	Payload []byte
	Length  int
	DTS     float64
	PTS     float64
	Schema  string
}

// MetadataTrack accumulates timed-metadata samples in call order (not
// necessarily in PTS order). The demuxer only ever appends; draining the
// samples is the caller's responsibility.
type MetadataTrack struct {
	Samples []MetadataSample
}

// CaptionSample is one SEI caption NAL unit with its presentation time in
// seconds. Payload is the complete NAL unit, header byte included.
type CaptionSample struct {
	Payload []byte
	PTS     float64
}

// CaptionTrack holds caption samples extracted from the video fragments.
// Its Timescale mirrors the video track's.
type CaptionTrack struct {
	ID        uint32
	Timescale uint32
	Samples   []CaptionSample
}

// Result bundles the four tracks returned by every demux and flush call.
// Tracks are returned by reference; they are mutated in place on the next
// call against the same demuxer instance.
type Result struct {
	Video    *VideoTrack
	Audio    *AudioTrack
	Metadata *MetadataTrack
	Captions *CaptionTrack
}
