package mp4

import (
	"encoding/binary"
	"fmt"
)

const (
	handlerVideo = "vide"
	handlerAudio = "soun"

	// Fixed field widths of the visual and audio sample entries preceding
	// their child boxes (ISO/IEC 14496-12 §12.1.3, §12.2.3).
	visualSampleEntrySize = 78
	audioSampleEntrySize  = 28
)

// Track describes one media track parsed from an init segment.
type Track struct {
	ID        uint32
	Timescale uint32
	Codec     string
}

// Init holds the per-track metadata of an init segment (ftyp+moov). An
// absent track type leaves the corresponding field nil; that is a normal
// result, not an error.
type Init struct {
	Video *Track
	Audio *Track
}

// ParseInitSegment extracts track ids, timescales, and codec strings from an
// init segment. At most one video and one audio track are reported; further
// tracks of an already-seen handler type are ignored.
func ParseInitSegment(data []byte) Init {
	var init Init
	for _, trak := range FindBoxes(data, "moov", "trak") {
		track, handler, ok := parseTrak(trak.Payload(data))
		if !ok {
			continue
		}
		switch handler {
		case handlerVideo:
			if init.Video == nil {
				init.Video = track
			}
		case handlerAudio:
			if init.Audio == nil {
				init.Audio = track
			}
		}
	}
	return init
}

func parseTrak(trak []byte) (*Track, string, bool) {
	tkhds := FindBoxes(trak, "tkhd")
	mdhds := FindBoxes(trak, "mdia", "mdhd")
	hdlrs := FindBoxes(trak, "mdia", "hdlr")
	if len(tkhds) == 0 || len(mdhds) == 0 || len(hdlrs) == 0 {
		return nil, "", false
	}

	// tkhd and mdhd lead with version(1)+flags(3), then two timestamps whose
	// width depends on the version, before the field we want.
	tkhd := tkhds[0].Payload(trak)
	idOff := 12
	if len(tkhd) > 0 && tkhd[0] == 1 {
		idOff = 20
	}
	if len(tkhd) < idOff+4 {
		return nil, "", false
	}
	id := binary.BigEndian.Uint32(tkhd[idOff:])

	mdhd := mdhds[0].Payload(trak)
	tsOff := 12
	if len(mdhd) > 0 && mdhd[0] == 1 {
		tsOff = 20
	}
	if len(mdhd) < tsOff+4 {
		return nil, "", false
	}
	timescale := binary.BigEndian.Uint32(mdhd[tsOff:])

	// hdlr: version+flags(4), pre_defined(4), handler_type(4).
	hdlr := hdlrs[0].Payload(trak)
	if len(hdlr) < 12 {
		return nil, "", false
	}
	handler := string(hdlr[8:12])

	return &Track{ID: id, Timescale: timescale, Codec: codecString(trak)}, handler, true
}

// codecString builds an RFC 6381 codec parameter string from the first stsd
// sample entry. For AVC the profile, constraint, and level bytes come from
// the avcC configuration record; for AAC the object and audio object types
// come from the esds descriptor chain. Anything else reports its fourcc.
func codecString(trak []byte) string {
	stsds := FindBoxes(trak, "mdia", "minf", "stbl", "stsd")
	if len(stsds) == 0 {
		return ""
	}
	// stsd payload: version+flags(4), entry_count(4), then the first sample
	// entry, itself a box.
	stsd := stsds[0].Payload(trak)
	if len(stsd) < 16 {
		return ""
	}
	entry := stsd[8:]
	fourcc := string(entry[4:8])

	switch fourcc {
	case "avc1", "avc3":
		if len(entry) < 8+visualSampleEntrySize {
			return fourcc
		}
		for _, avcc := range FindBoxes(entry[8+visualSampleEntrySize:], "avcC") {
			p := avcc.Payload(entry[8+visualSampleEntrySize:])
			if len(p) >= 4 {
				return fmt.Sprintf("%s.%02X%02X%02X", fourcc, p[1], p[2], p[3])
			}
		}
	case "mp4a":
		if len(entry) < 8+audioSampleEntrySize {
			return fourcc
		}
		for _, esds := range FindBoxes(entry[8+audioSampleEntrySize:], "esds") {
			if codec, ok := parseESDS(esds.Payload(entry[8+audioSampleEntrySize:])); ok {
				return codec
			}
		}
	}
	return fourcc
}

// parseESDS walks the MPEG-4 descriptor chain inside an esds box down to the
// decoder specific info, returning e.g. "mp4a.40.2".
func parseESDS(esds []byte) (string, bool) {
	if len(esds) < 4 {
		return "", false
	}
	r := esds[4:] // skip version+flags

	r, ok := expectDescriptor(r, 0x03)
	if !ok {
		return "", false
	}
	if len(r) < 3 {
		return "", false
	}
	r = r[3:] // ES_ID(2) + stream flags(1); dependency/URL variants are not emitted by init segments we consume

	r, ok = expectDescriptor(r, 0x04)
	if !ok {
		return "", false
	}
	if len(r) < 13 {
		return "", false
	}
	objectType := r[0]
	r = r[13:] // objectType(1) + streamType/bufferSize(4) + maxBitrate(4) + avgBitrate(4)

	r, ok = expectDescriptor(r, 0x05)
	if !ok || len(r) < 1 {
		return "", false
	}
	audioObjectType := r[0] >> 3
	return fmt.Sprintf("mp4a.%02X.%d", objectType, audioObjectType), true
}

// expectDescriptor consumes a descriptor tag and its expandable size field,
// returning the descriptor body.
func expectDescriptor(data []byte, tag byte) ([]byte, bool) {
	if len(data) < 2 || data[0] != tag {
		return nil, false
	}
	i := 1
	size := 0
	for ; i < len(data) && i <= 4; i++ {
		size = size<<7 | int(data[i]&0x7F)
		if data[i]&0x80 == 0 {
			i++
			break
		}
	}
	if i > len(data) || size > len(data)-i {
		return nil, false
	}
	return data[i:], true
}
