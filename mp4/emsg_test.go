package mp4

import (
	"bytes"
	"errors"
	"testing"
)

func emsgPayloadV0(scheme, value string, timescale, delta uint32, payload []byte) []byte {
	var b []byte
	b = append(b, 0, 0, 0, 0) // version 0, flags
	b = append(b, scheme...)
	b = append(b, 0)
	b = append(b, value...)
	b = append(b, 0)
	b = append(b, u32be(timescale)...)
	b = append(b, u32be(delta)...)
	b = append(b, u32be(0)...) // event duration
	b = append(b, u32be(1)...) // id
	return append(b, payload...)
}

func emsgPayloadV1(scheme, value string, timescale uint32, presentationTime uint64, payload []byte) []byte {
	var b []byte
	b = append(b, 1, 0, 0, 0) // version 1, flags
	b = append(b, u32be(timescale)...)
	b = append(b, u64be(presentationTime)...)
	b = append(b, u32be(0)...) // event duration
	b = append(b, u32be(7)...) // id
	b = append(b, scheme...)
	b = append(b, 0)
	b = append(b, value...)
	b = append(b, 0)
	return append(b, payload...)
}

func TestParseEmsgVersion0(t *testing.T) {
	t.Parallel()

	payload := []byte("ID3\x04\x00 tag bytes")
	e, err := ParseEmsg(emsgPayloadV0("https://aomedia.org/emsg-ID3", "1", 1000, 500, payload))
	if err != nil {
		t.Fatal(err)
	}
	if e.SchemeIDURI != "https://aomedia.org/emsg-ID3" {
		t.Errorf("scheme = %q", e.SchemeIDURI)
	}
	if e.Value != "1" {
		t.Errorf("value = %q, want 1", e.Value)
	}
	if e.Timescale != 1000 {
		t.Errorf("timescale = %d, want 1000", e.Timescale)
	}
	if e.PresentationTime != nil {
		t.Error("version 0 must not carry an absolute presentation time")
	}
	if e.PresentationTimeDelta == nil || *e.PresentationTimeDelta != 500 {
		t.Errorf("presentation time delta = %v, want 500", e.PresentationTimeDelta)
	}
	if !bytes.Equal(e.Payload, payload) {
		t.Errorf("payload = %v, want %v", e.Payload, payload)
	}
}

func TestParseEmsgVersion1(t *testing.T) {
	t.Parallel()

	payload := []byte{0xDE, 0xAD}
	e, err := ParseEmsg(emsgPayloadV1("https://aomedia.org/emsg/ID3", "", 1000, 1000, payload))
	if err != nil {
		t.Fatal(err)
	}
	if e.SchemeIDURI != "https://aomedia.org/emsg/ID3" {
		t.Errorf("scheme = %q", e.SchemeIDURI)
	}
	if e.PresentationTime == nil || *e.PresentationTime != 1000 {
		t.Errorf("presentation time = %v, want 1000", e.PresentationTime)
	}
	if e.PresentationTimeDelta != nil {
		t.Error("version 1 must not carry a presentation time delta")
	}
	if e.ID != 7 {
		t.Errorf("id = %d, want 7", e.ID)
	}
	if !bytes.Equal(e.Payload, payload) {
		t.Errorf("payload = %v, want %v", e.Payload, payload)
	}
}

func TestParseEmsgMalformed(t *testing.T) {
	t.Parallel()

	cases := map[string][]byte{
		"empty":               {},
		"truncated header":    {0, 0},
		"unterminated string": append([]byte{0, 0, 0, 0}, "no nul here"...),
		"short version 0":     {0, 0, 0, 0, 'a', 0, 0, 0, 1},
		"short version 1":     {1, 0, 0, 0, 0, 0, 1, 2},
		"unknown version":     {9, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0},
	}
	for name, data := range cases {
		if _, err := ParseEmsg(data); !errors.Is(err, ErrMalformedEmsg) {
			t.Errorf("%s: err = %v, want ErrMalformedEmsg", name, err)
		}
	}
}
