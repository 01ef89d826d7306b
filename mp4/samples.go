package mp4

import (
	"encoding/binary"

	"github.com/voskra/voskra/media"
)

// NAL unit type carrying SEI messages (ITU-T H.264 Table 7-1).
const nalTypeSEI = 6

// tfhd and trun flag bits (ISO/IEC 14496-12 §8.8.7, §8.8.8).
const (
	tfhdBaseDataOffset   = 0x000001
	tfhdSampleDescIndex  = 0x000002
	tfhdDefaultDuration  = 0x000008
	tfhdDefaultSize      = 0x000010
	trunDataOffset       = 0x000001
	trunFirstSampleFlags = 0x000004
	trunSampleDuration   = 0x000100
	trunSampleSize       = 0x000200
	trunSampleFlags      = 0x000400
	trunSampleCTS        = 0x000800
)

// ParseCaptionSamples walks the fragment sample tables in a passthrough
// video buffer and returns one caption sample per SEI NAL unit found, in
// decode order. Presentation times are seconds: timeOffset plus the sample's
// decode time and composition offset on the track timescale. Fragments
// belonging to other tracks are skipped; a malformed table ends the scan at
// the malformed fragment without error.
func ParseCaptionSamples(timeOffset float64, track *media.VideoTrack) []media.CaptionSample {
	if track == nil || track.Timescale == 0 || len(track.Data) == 0 {
		return nil
	}
	data := track.Data
	moofs := FindBoxes(data, "moof")
	mdats := FindBoxes(data, "mdat")

	var samples []media.CaptionSample
	for i, moof := range moofs {
		if i >= len(mdats) {
			break
		}
		moofBody := moof.Payload(data)
		mdat := mdats[i].Payload(data)
		samples = append(samples, fragmentCaptions(timeOffset, track, moofBody, mdat)...)
	}
	return samples
}

func fragmentCaptions(timeOffset float64, track *media.VideoTrack, moof, mdat []byte) []media.CaptionSample {
	timescale := float64(track.Timescale)
	var out []media.CaptionSample

	for _, traf := range FindBoxes(moof, "traf") {
		trafData := traf.Payload(moof)

		tfhds := FindBoxes(trafData, "tfhd")
		if len(tfhds) == 0 {
			continue
		}
		tfhd := tfhds[0].Payload(trafData)
		if len(tfhd) < 8 {
			continue
		}
		flags := binary.BigEndian.Uint32(tfhd[0:4]) & 0xFFFFFF
		if binary.BigEndian.Uint32(tfhd[4:8]) != track.ID {
			continue
		}

		off := 8
		if flags&tfhdBaseDataOffset != 0 {
			off += 8
		}
		if flags&tfhdSampleDescIndex != 0 {
			off += 4
		}
		var defaultDuration, defaultSize uint32
		if flags&tfhdDefaultDuration != 0 {
			if off+4 > len(tfhd) {
				continue
			}
			defaultDuration = binary.BigEndian.Uint32(tfhd[off:])
			off += 4
		}
		if flags&tfhdDefaultSize != 0 {
			if off+4 > len(tfhd) {
				continue
			}
			defaultSize = binary.BigEndian.Uint32(tfhd[off:])
		}

		var baseTime uint64
		if tfdts := FindBoxes(trafData, "tfdt"); len(tfdts) > 0 {
			p := tfdts[0].Payload(trafData)
			switch {
			case len(p) >= 12 && p[0] == 1:
				baseTime = binary.BigEndian.Uint64(p[4:12])
			case len(p) >= 8:
				baseTime = uint64(binary.BigEndian.Uint32(p[4:8]))
			}
		}

		decode := baseTime
		cursor := 0
		for _, trun := range FindBoxes(trafData, "trun") {
			p := trun.Payload(trafData)
			if len(p) < 8 {
				return out
			}
			tflags := binary.BigEndian.Uint32(p[0:4]) & 0xFFFFFF
			count := int(binary.BigEndian.Uint32(p[4:8]))
			off := 8
			if tflags&trunDataOffset != 0 {
				// Samples are consumed from the mdat in table order, so the
				// explicit offset is not needed.
				off += 4
			}
			if tflags&trunFirstSampleFlags != 0 {
				off += 4
			}

			for s := 0; s < count; s++ {
				duration, size := defaultDuration, defaultSize
				var cts int32
				if tflags&trunSampleDuration != 0 {
					if off+4 > len(p) {
						return out
					}
					duration = binary.BigEndian.Uint32(p[off:])
					off += 4
				}
				if tflags&trunSampleSize != 0 {
					if off+4 > len(p) {
						return out
					}
					size = binary.BigEndian.Uint32(p[off:])
					off += 4
				}
				if tflags&trunSampleFlags != 0 {
					off += 4
				}
				if tflags&trunSampleCTS != 0 {
					if off+4 > len(p) {
						return out
					}
					cts = int32(binary.BigEndian.Uint32(p[off:]))
					off += 4
				}
				if size == 0 || cursor+int(size) > len(mdat) {
					return out
				}
				sample := mdat[cursor : cursor+int(size)]
				cursor += int(size)

				pts := timeOffset + (float64(decode)+float64(cts))/timescale
				out = append(out, seiCaptions(sample, pts)...)
				decode += uint64(duration)
			}
		}
	}
	return out
}

// seiCaptions walks the length-prefixed NAL units of one sample and returns
// a caption sample for each SEI unit.
func seiCaptions(sample []byte, pts float64) []media.CaptionSample {
	var out []media.CaptionSample
	for off := 0; off+4 <= len(sample); {
		n := int(binary.BigEndian.Uint32(sample[off:]))
		off += 4
		if n <= 0 || off+n > len(sample) {
			break
		}
		unit := sample[off : off+n]
		if unit[0]&0x1F == nalTypeSEI {
			out = append(out, media.CaptionSample{Payload: unit, PTS: pts})
		}
		off += n
	}
	return out
}
