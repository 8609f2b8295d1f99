package chunking

import "strings"

// Splitter derives fragments from section text. Paragraph boundaries are
// respected where possible; a paragraph longer than the fragment size is cut
// into overlapping rune windows so no content is dropped.
type Splitter struct {
	FragmentSize int
	Overlap      int
}

func NewSplitter(fragmentSize, overlap int) *Splitter {
	if fragmentSize <= 0 {
		fragmentSize = 500
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= fragmentSize {
		overlap = fragmentSize / 4
	}
	return &Splitter{
		FragmentSize: fragmentSize,
		Overlap:      overlap,
	}
}

func (s *Splitter) Split(text string) []string {
	paragraphs := splitParagraphs(text)
	if len(paragraphs) == 0 {
		return nil
	}

	var out []string
	var current strings.Builder
	currentLen := 0

	flush := func() {
		fragment := strings.TrimSpace(current.String())
		if fragment != "" {
			out = append(out, fragment)
		}
		current.Reset()
		currentLen = 0
	}

	for _, p := range paragraphs {
		pLen := len([]rune(p))
		if pLen > s.FragmentSize {
			flush()
			out = append(out, s.splitWindows(p)...)
			continue
		}
		if currentLen > 0 && currentLen+pLen+1 > s.FragmentSize {
			flush()
		}
		if currentLen > 0 {
			current.WriteByte('\n')
			currentLen++
		}
		current.WriteString(p)
		currentLen += pLen
	}
	flush()
	return out
}

func (s *Splitter) splitWindows(text string) []string {
	runes := []rune(text)
	step := s.FragmentSize - s.Overlap
	if step <= 0 {
		step = s.FragmentSize
	}

	out := make([]string, 0, len(runes)/step+1)
	for start := 0; start < len(runes); start += step {
		end := start + s.FragmentSize
		if end > len(runes) {
			end = len(runes)
		}
		window := strings.TrimSpace(string(runes[start:end]))
		if window != "" {
			out = append(out, window)
		}
		if end == len(runes) {
			break
		}
	}
	return out
}

func splitParagraphs(text string) []string {
	var out []string
	for _, block := range strings.Split(text, "\n\n") {
		block = strings.TrimSpace(block)
		if block != "" {
			out = append(out, block)
		}
	}
	return out
}
