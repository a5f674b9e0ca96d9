package markdown

import (
	"bufio"
	"bytes"
	"errors"
	"strings"
)

// ErrUnterminatedFence indicates a fenced code block that is never closed.
// CommonMark silently swallows the rest of the document in that case, which
// in practice is always an authoring mistake, so it is rejected up front.
var ErrUnterminatedFence = errors.New("unterminated code fence")

// checkFences scans for an opened ``` / ~~~ fence without a matching closer.
func checkFences(body []byte) error {
	var openChar byte
	openLen := 0

	scanner := bufio.NewScanner(bytes.NewReader(body))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		marker, length, ok := fenceMarker(line)
		if !ok {
			continue
		}
		if openLen == 0 {
			openChar = marker
			openLen = length
			continue
		}
		// A closing fence must use the same character and be at least as long.
		if marker == openChar && length >= openLen && strings.TrimSpace(line) == strings.Repeat(string(marker), len(strings.TrimSpace(line))) {
			openLen = 0
		}
	}
	if err := scanner.Err(); err != nil {
		return err
	}

	if openLen != 0 {
		return ErrUnterminatedFence
	}
	return nil
}

// fenceMarker reports whether line opens or closes a code fence, returning
// the fence character and run length. Up to three leading spaces are allowed.
func fenceMarker(line string) (byte, int, bool) {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 || trimmed == "" {
		return 0, 0, false
	}
	c := trimmed[0]
	if c != '`' && c != '~' {
		return 0, 0, false
	}
	n := 0
	for n < len(trimmed) && trimmed[n] == c {
		n++
	}
	if n < 3 {
		return 0, 0, false
	}
	// Info strings on backtick fences must not contain backticks, but that
	// level of strictness is not needed for a balance check.
	return c, n, true
}
