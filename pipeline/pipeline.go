// Package pipeline orchestrates the segment-to-sink data flow for a single
// stream, feeding fetched chunks through the passthrough demuxer and
// forwarding the resulting tracks to a Sink while decoding caption SEI
// samples into text.
package pipeline

import (
	"log/slog"
	"sync/atomic"

	"github.com/zsiec/ccx"

	"github.com/voskra/voskra/demux"
	"github.com/voskra/voskra/media"
)

// Sink receives demuxed output. The playback buffer implements this;
// accepting an interface here keeps the pipeline testable with stubs.
type Sink interface {
	AppendVideo(track *media.VideoTrack)
	AppendMetadata(samples []media.MetadataSample)
	AppendCaptions(frames []*ccx.CaptionFrame)
}

// Snapshot reports forwarding counters for diagnostics.
type Snapshot struct {
	VideoBuffers    int64 `json:"videoBuffers"`
	MetadataSamples int64 `json:"metadataSamples"`
	CaptionFrames   int64 `json:"captionFrames"`
}

// Pipeline bridges one stream's demuxer and sink. The demuxer's metadata
// track accumulates across calls by contract, so the pipeline tracks how
// much of it has already been forwarded and drains only the fresh tail.
type Pipeline struct {
	log     *slog.Logger
	demuxer demux.Demuxer
	sink    Sink

	cea608Decs map[int]*ccx.CEA608Decoder
	cea708Svcs map[int]*ccx.CEA708Service
	dtvccBuf   []byte

	metaDrained int
	videoFwd    atomic.Int64
	metadataFwd atomic.Int64
	captionFwd  atomic.Int64
}

// New creates a Pipeline forwarding demuxed output from dmx to sink. If log
// is nil, slog.Default() is used.
func New(dmx demux.Demuxer, sink Sink, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	return &Pipeline{
		log:     log.With("component", "pipeline"),
		demuxer: dmx,
		sink:    sink,
		cea608Decs: map[int]*ccx.CEA608Decoder{
			1: ccx.NewCEA608Decoder(),
			2: ccx.NewCEA608Decoder(),
			3: ccx.NewCEA608Decoder(),
			4: ccx.NewCEA608Decoder(),
		},
		cea708Svcs: map[int]*ccx.CEA708Service{
			1: ccx.NewCEA708Service(),
			2: ccx.NewCEA708Service(),
			3: ccx.NewCEA708Service(),
			4: ccx.NewCEA708Service(),
			5: ccx.NewCEA708Service(),
			6: ccx.NewCEA708Service(),
		},
	}
}

// Init primes the demuxer with an init segment, starting a new codec
// context. Prior forwarding state for the metadata track is discarded along
// with the track itself.
func (p *Pipeline) Init(init []byte, audioCodec, videoCodec string, trackDuration float64) {
	p.demuxer.ResetInitSegment(init, audioCodec, videoCodec, trackDuration)
	p.metaDrained = 0
}

// Feed pushes one chunk of segment data through the demuxer and forwards
// the result.
func (p *Pipeline) Feed(chunk []byte, timeOffset float64) error {
	res, err := p.demuxer.Demux(chunk, timeOffset)
	if err != nil {
		return err
	}
	p.forward(res)
	return nil
}

// Finish flushes the demuxer at end of segment and forwards the final
// output.
func (p *Pipeline) Finish() {
	p.forward(p.demuxer.Flush())
}

// Snapshot returns the current forwarding counters.
func (p *Pipeline) Snapshot() Snapshot {
	return Snapshot{
		VideoBuffers:    p.videoFwd.Load(),
		MetadataSamples: p.metadataFwd.Load(),
		CaptionFrames:   p.captionFwd.Load(),
	}
}

func (p *Pipeline) forward(res *media.Result) {
	if res == nil {
		return
	}

	if len(res.Video.Data) > 0 {
		p.sink.AppendVideo(res.Video)
		p.videoFwd.Add(1)
	}

	if samples := res.Metadata.Samples; len(samples) > p.metaDrained {
		fresh := samples[p.metaDrained:]
		p.sink.AppendMetadata(fresh)
		p.metaDrained = len(samples)
		p.metadataFwd.Add(int64(len(fresh)))
	}

	var frames []*ccx.CaptionFrame
	for _, s := range res.Captions.Samples {
		frames = append(frames, p.decodeSEI(s.Payload, s.PTS)...)
	}
	if len(frames) > 0 {
		p.sink.AppendCaptions(frames)
		p.captionFwd.Add(int64(len(frames)))
	}
}

// decodeSEI extracts CEA-608 pairs and CEA-708 packets from one SEI NAL unit
// and decodes them into displayable caption frames. PTS is seconds; caption
// frames carry microseconds.
func (p *Pipeline) decodeSEI(sei []byte, pts float64) []*ccx.CaptionFrame {
	cd := ccx.ExtractCaptions(sei)
	if cd == nil {
		return nil
	}
	ptsMicros := int64(pts * 1e6)

	var frames []*ccx.CaptionFrame
	for _, pair := range cd.CC608Pairs {
		dec := p.cea608Decs[pair.Channel]
		if dec == nil {
			continue
		}
		text := dec.Decode(pair.Data[0], pair.Data[1])
		if text == "" {
			continue
		}
		frame := &ccx.CaptionFrame{PTS: ptsMicros, Text: text, Channel: pair.Channel}
		frame.Regions = dec.StyledRegions()
		frames = append(frames, frame)
	}

	for _, t := range cd.DTVCC {
		if t.Start {
			frames = append(frames, p.drainDTVCC(ptsMicros)...)
			p.dtvccBuf = p.dtvccBuf[:0]
		}
		p.dtvccBuf = append(p.dtvccBuf, t.Data[0], t.Data[1])
	}
	return frames
}

func (p *Pipeline) drainDTVCC(pts int64) []*ccx.CaptionFrame {
	if len(p.dtvccBuf) < 1 {
		return nil
	}
	packetSize := ccx.DTVCCPacketSize(p.dtvccBuf[0])
	if len(p.dtvccBuf) < packetSize {
		return nil
	}

	var frames []*ccx.CaptionFrame
	for _, block := range ccx.ParseDTVCCPacket(p.dtvccBuf[:packetSize]) {
		svc := p.cea708Svcs[block.ServiceNum]
		if svc == nil {
			continue
		}
		if svc.ProcessBlock(block.Data) {
			if text := svc.DisplayText(); text != "" {
				frame := &ccx.CaptionFrame{PTS: pts, Text: text, Channel: block.ServiceNum + 6}
				frame.Regions = svc.StyledRegions()
				frames = append(frames, frame)
			}
		}
	}
	p.dtvccBuf = p.dtvccBuf[packetSize:]
	return frames
}
