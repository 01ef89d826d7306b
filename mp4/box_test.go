package mp4

import (
	"bytes"
	"encoding/binary"
	"testing"
)

// box builds a box with an 8-byte header around the concatenated payloads.
func box(typ string, payloads ...[]byte) []byte {
	var body []byte
	for _, p := range payloads {
		body = append(body, p...)
	}
	b := make([]byte, 8+len(body))
	binary.BigEndian.PutUint32(b, uint32(8+len(body)))
	copy(b[4:8], typ)
	copy(b[8:], body)
	return b
}

func u16be(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func u32be(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

func u64be(v uint64) []byte {
	b := make([]byte, 8)
	binary.BigEndian.PutUint64(b, v)
	return b
}

func TestFindBoxesTopLevel(t *testing.T) {
	t.Parallel()

	ftyp := box("ftyp", []byte("isom"))
	moof1 := box("moof", []byte{1, 2, 3})
	mdat := box("mdat", []byte{4, 5})
	moof2 := box("moof")
	data := bytes.Join([][]byte{ftyp, moof1, mdat, moof2}, nil)

	moofs := FindBoxes(data, "moof")
	if len(moofs) != 2 {
		t.Fatalf("found %d moof boxes, want 2", len(moofs))
	}
	if moofs[0].Start != len(ftyp) {
		t.Errorf("first moof starts at %d, want %d", moofs[0].Start, len(ftyp))
	}
	if got := moofs[0].Payload(data); !bytes.Equal(got, []byte{1, 2, 3}) {
		t.Errorf("first moof payload = %v, want [1 2 3]", got)
	}
	wantStart := len(ftyp) + len(moof1) + len(mdat)
	if moofs[1].Start != wantStart {
		t.Errorf("second moof starts at %d, want %d", moofs[1].Start, wantStart)
	}
}

func TestFindBoxesNestedPath(t *testing.T) {
	t.Parallel()

	tkhd := box("tkhd", []byte{0xAA})
	trak := box("trak", tkhd)
	moov := box("moov", box("mvhd"), trak, box("trak", box("tkhd", []byte{0xBB})))
	data := bytes.Join([][]byte{box("ftyp"), moov}, nil)

	tkhds := FindBoxes(data, "moov", "trak", "tkhd")
	if len(tkhds) != 2 {
		t.Fatalf("found %d tkhd boxes, want 2", len(tkhds))
	}
	if got := tkhds[0].Payload(data); !bytes.Equal(got, []byte{0xAA}) {
		t.Errorf("first tkhd payload = %v, want [AA]", got)
	}
	if got := tkhds[1].Payload(data); !bytes.Equal(got, []byte{0xBB}) {
		t.Errorf("second tkhd payload = %v, want [BB]", got)
	}
}

func TestFindBoxesTruncatedTrailingBox(t *testing.T) {
	t.Parallel()

	complete := box("mdat", []byte{1, 2, 3})
	// Header declares 100 bytes but only 12 are present.
	truncated := make([]byte, 12)
	binary.BigEndian.PutUint32(truncated, 100)
	copy(truncated[4:8], "moof")
	data := append(complete, truncated...)

	moofs := FindBoxes(data, "moof")
	if len(moofs) != 1 {
		t.Fatalf("found %d moof boxes, want 1", len(moofs))
	}
	if moofs[0].End != len(data) {
		t.Errorf("truncated box End = %d, want clamped to %d", moofs[0].End, len(data))
	}
}

func TestFindBoxesZeroSizeExtendsToEnd(t *testing.T) {
	t.Parallel()

	data := make([]byte, 32)
	copy(data[4:8], "mdat")
	// size 0: box runs to the end of the buffer.

	mdats := FindBoxes(data, "mdat")
	if len(mdats) != 1 {
		t.Fatalf("found %d mdat boxes, want 1", len(mdats))
	}
	if mdats[0].End != len(data) {
		t.Errorf("zero-size box End = %d, want %d", mdats[0].End, len(data))
	}
}

func TestFindBoxesLargesize(t *testing.T) {
	t.Parallel()

	payload := []byte{9, 9, 9}
	data := make([]byte, 16+len(payload))
	binary.BigEndian.PutUint32(data, 1) // largesize marker
	copy(data[4:8], "mdat")
	binary.BigEndian.PutUint64(data[8:16], uint64(len(data)))
	copy(data[16:], payload)

	mdats := FindBoxes(data, "mdat")
	if len(mdats) != 1 {
		t.Fatalf("found %d mdat boxes, want 1", len(mdats))
	}
	if got := mdats[0].Payload(data); !bytes.Equal(got, payload) {
		t.Errorf("largesize payload = %v, want %v", got, payload)
	}
}

func TestFindBoxesMalformedHeaderStopsScan(t *testing.T) {
	t.Parallel()

	good := box("moof")
	// size 4 is smaller than the header itself.
	bad := append(u32be(4), []byte("mdat")...)
	data := append(append([]byte{}, good...), bad...)

	if got := FindBoxes(data, "moof"); len(got) != 1 {
		t.Errorf("found %d moof boxes before malformed header, want 1", len(got))
	}
	if got := FindBoxes(data, "mdat"); len(got) != 0 {
		t.Errorf("found %d mdat boxes from malformed header, want 0", len(got))
	}
}

func FuzzFindBoxes(f *testing.F) {
	f.Add([]byte{})
	f.Add(box("moof", box("traf", box("trun"))))
	f.Add(append(u32be(0xFFFFFFFF), []byte("moof")...))
	f.Fuzz(func(t *testing.T, data []byte) {
		// Must never panic or loop, whatever the input.
		FindBoxes(data, "moof", "traf", "trun")
	})
}
