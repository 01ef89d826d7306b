package demux

import "github.com/voskra/voskra/mp4"

// splitLastFragment splits data at the start offset of the last top-level
// moof box. Everything before that offset contains only whole fragments: a
// later moof implies the fragment preceding it is complete. Everything from
// the offset onward may still be arriving and becomes the remainder. Without
// any moof nothing can be proven complete, so the whole input is remainder.
//
// Only offsets are computed; both return values alias data.
func splitLastFragment(data []byte) (valid, remainder []byte) {
	moofs := mp4.FindBoxes(data, "moof")
	if len(moofs) == 0 {
		return nil, data
	}
	cut := moofs[len(moofs)-1].Start
	return data[:cut], data[cut:]
}
