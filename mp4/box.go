// Package mp4 provides the ISO base media file format (ISO/IEC 14496-12)
// scanning needed by the passthrough demuxer: locating boxes by type path,
// parsing init-segment track metadata, walking fragment sample tables, and
// decoding emsg timed-metadata boxes. It computes offsets and slices bytes;
// nothing is ever re-serialized and input buffers are never mutated.
package mp4

import "encoding/binary"

// Box is a located box within a buffer. Start is the offset of the box
// header; End is one past the last payload byte, clamped to the buffer so a
// truncated trailing box is still reported.
type Box struct {
	Type  string
	Start int
	End   int

	headerLen int
}

// Payload returns the box body within data. For full boxes the version and
// flags bytes are included.
func (b Box) Payload(data []byte) []byte {
	return data[b.Start+b.headerLen : b.End]
}

// FindBoxes locates the boxes matching path, descending one container level
// per path element, in input order. Boxes with size 0 (extends to end of
// buffer) and 64-bit largesize headers are handled. Scanning stops at a
// malformed header; everything located up to that point is returned.
func FindBoxes(data []byte, path ...string) []Box {
	if len(path) == 0 {
		return nil
	}
	return findBoxes(data, 0, len(data), path)
}

func findBoxes(data []byte, start, end int, path []string) []Box {
	var found []Box
	for off := start; off+8 <= end; {
		size := int(binary.BigEndian.Uint32(data[off : off+4]))
		typ := string(data[off+4 : off+8])
		headerLen := 8
		switch size {
		case 0:
			size = end - off
		case 1:
			if off+16 > end {
				return found
			}
			size64 := binary.BigEndian.Uint64(data[off+8 : off+16])
			size = int(size64)
			headerLen = 16
		}
		if size < headerLen {
			return found
		}
		boxEnd := off + size
		if boxEnd > end {
			boxEnd = end
		}
		if typ == path[0] {
			if len(path) == 1 {
				found = append(found, Box{Type: typ, Start: off, End: boxEnd, headerLen: headerLen})
			} else {
				found = append(found, findBoxes(data, off+headerLen, boxEnd, path[1:])...)
			}
		}
		off += size
	}
	return found
}
