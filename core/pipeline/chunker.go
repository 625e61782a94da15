package pipeline

import (
	"unicode/utf8"

	"github.com/siherrmann/knowledgestore/helper"
	"github.com/siherrmann/knowledgestore/model"
)

// Window is a fixed-size slice of a document's text. Start and End are
// byte offsets into the original text, with End exclusive. Both always
// fall on rune boundaries.
type Window struct {
	Index   int
	Start   int
	End     int
	Content string
}

// SplitWindows splits text into overlapping fixed-size windows. Windows
// advance by maxChunkSize-overlap bytes and span at most maxChunkSize
// bytes, clamped to the text length. Boundaries never split a multi-byte
// rune: they are moved back to the previous rune start, so every window
// is valid UTF-8 and every byte of the text is covered. Splitting is
// purely positional, so the same text and config always produce the
// same windows. Empty text produces no windows.
func SplitWindows(text string, config model.ChunkConfig) ([]Window, error) {
	err := config.Validate()
	if err != nil {
		return nil, helper.NewError("validate chunk config", err)
	}

	var windows []Window
	step := config.MaxChunkSize - config.Overlap
	for start := 0; start < len(text); {
		end := start + config.MaxChunkSize
		if end >= len(text) {
			end = len(text)
		} else {
			end = snapToRuneStart(text, end)
			if end <= start {
				// Window narrower than the rune at start, take the whole rune.
				_, size := utf8.DecodeRuneInString(text[start:])
				end = start + size
			}
		}

		windows = append(windows, Window{
			Index:   len(windows),
			Start:   start,
			End:     end,
			Content: text[start:end],
		})

		next := snapToRuneStart(text, start+step)
		if next <= start {
			_, size := utf8.DecodeRuneInString(text[start:])
			next = start + size
		}
		start = next
	}

	return windows, nil
}

// snapToRuneStart moves pos back to the start of the rune it falls
// inside. A pos at or past the end of the text is returned unchanged.
func snapToRuneStart(text string, pos int) int {
	if pos >= len(text) {
		return pos
	}
	for pos > 0 && !utf8.RuneStart(text[pos]) {
		pos--
	}
	return pos
}
