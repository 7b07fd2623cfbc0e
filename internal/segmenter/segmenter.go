// Package segmenter splits rewritten text into sentence-like units for
// grammar correction and joins the corrected units back together.
//
// The split is deliberately naive: text is cut on every literal ". " and
// nothing else. Abbreviations, decimal numbers and quoted periods are not
// treated specially, so "e.g. this" yields two units. Existing outputs depend
// on this behaviour; do not replace it with real sentence detection.
package segmenter

import "strings"

// Delimiter is the literal separator between units.
const Delimiter = ". "

// Separator joins corrected units on reassembly.
const Separator = " "

// Unit is a single non-empty piece of the segmented text.
type Unit struct {
	// Text is the piece exactly as it appeared between delimiters.
	Text string
	// Order is the position of the unit among surviving units (0-based).
	Order int
	// Index is the 1-based position of the piece among all raw pieces,
	// including discarded whitespace-only ones. Used for progress reporting.
	Index int
	// NeedsTerminalPunctuation is set when Text does not end in . ! or ?
	NeedsTerminalPunctuation bool
}

// Prepared returns the text handed to the corrector: Text with a period
// appended when it lacks terminal punctuation.
func (u Unit) Prepared() string {
	if u.NeedsTerminalPunctuation {
		return u.Text + "."
	}
	return u.Text
}

// Segmentation is the result of Segment.
type Segmentation struct {
	Units []Unit
	// Pieces is the number of raw pieces produced by the split, before
	// whitespace-only pieces were dropped.
	Pieces int
}

// Segment splits text on Delimiter and returns the surviving units in order.
// Pieces that are empty after trimming are discarded; surviving pieces are
// kept untrimmed.
func Segment(text string) Segmentation {
	pieces := strings.Split(text, Delimiter)
	seg := Segmentation{
		Units:  make([]Unit, 0, len(pieces)),
		Pieces: len(pieces),
	}

	for i, piece := range pieces {
		if strings.TrimSpace(piece) == "" {
			continue
		}
		seg.Units = append(seg.Units, Unit{
			Text:                     piece,
			Order:                    len(seg.Units),
			Index:                    i + 1,
			NeedsTerminalPunctuation: !hasTerminalPunctuation(piece),
		})
	}

	return seg
}

// Reassemble joins corrected units with a single space. No other
// whitespace normalization is applied.
func Reassemble(corrected []string) string {
	return strings.Join(corrected, Separator)
}

func hasTerminalPunctuation(s string) bool {
	return strings.HasSuffix(s, ".") || strings.HasSuffix(s, "!") || strings.HasSuffix(s, "?")
}
