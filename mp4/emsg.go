package mp4

import (
	"encoding/binary"
	"errors"
)

// ErrMalformedEmsg is returned when an emsg box payload is too short for its
// declared version or carries a version this parser does not know.
var ErrMalformedEmsg = errors.New("mp4: malformed emsg box")

// Emsg holds the fields of an event message box (ISO/IEC 23009-1 §5.10.3.3).
// Exactly one of PresentationTime (version 1, absolute) and
// PresentationTimeDelta (version 0, relative to the segment start) is set.
type Emsg struct {
	SchemeIDURI           string
	Value                 string
	Timescale             uint32
	PresentationTime      *uint64
	PresentationTimeDelta *uint32
	EventDuration         uint32
	ID                    uint32
	Payload               []byte
}

// ParseEmsg decodes an emsg box payload, version and flags included.
func ParseEmsg(data []byte) (Emsg, error) {
	var e Emsg
	if len(data) < 4 {
		return e, ErrMalformedEmsg
	}
	version := data[0]
	r := data[4:]

	switch version {
	case 0:
		var ok bool
		if e.SchemeIDURI, r, ok = readCString(r); !ok {
			return e, ErrMalformedEmsg
		}
		if e.Value, r, ok = readCString(r); !ok {
			return e, ErrMalformedEmsg
		}
		if len(r) < 16 {
			return e, ErrMalformedEmsg
		}
		e.Timescale = binary.BigEndian.Uint32(r[0:4])
		delta := binary.BigEndian.Uint32(r[4:8])
		e.PresentationTimeDelta = &delta
		e.EventDuration = binary.BigEndian.Uint32(r[8:12])
		e.ID = binary.BigEndian.Uint32(r[12:16])
		e.Payload = r[16:]
	case 1:
		if len(r) < 20 {
			return e, ErrMalformedEmsg
		}
		e.Timescale = binary.BigEndian.Uint32(r[0:4])
		pt := binary.BigEndian.Uint64(r[4:12])
		e.PresentationTime = &pt
		e.EventDuration = binary.BigEndian.Uint32(r[12:16])
		e.ID = binary.BigEndian.Uint32(r[16:20])
		r = r[20:]
		var ok bool
		if e.SchemeIDURI, r, ok = readCString(r); !ok {
			return e, ErrMalformedEmsg
		}
		if e.Value, r, ok = readCString(r); !ok {
			return e, ErrMalformedEmsg
		}
		e.Payload = r
	default:
		return e, ErrMalformedEmsg
	}
	return e, nil
}

// readCString consumes a NUL-terminated string.
func readCString(data []byte) (string, []byte, bool) {
	for i, b := range data {
		if b == 0 {
			return string(data[:i]), data[i+1:], true
		}
	}
	return "", nil, false
}
