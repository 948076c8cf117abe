// Package render is the presentation collaborator: a pure function from
// question content to displayable segments. It has no feedback into
// session state.
package render

import (
	"strings"
)

// SegmentKind distinguishes plain HTML text from inline math.
type SegmentKind string

const (
	SegmentText SegmentKind = "text"
	SegmentMath SegmentKind = "math"
)

// Segment is one run of content.
type Segment struct {
	Kind    SegmentKind `json:"kind"`
	Content string      `json:"content"`
}

// Renderer converts a content string, which may embed inline $…$ math
// markers, into presentation segments.
type Renderer interface {
	Render(content string) []Segment
}

// MathSegmenter is the default renderer: it splits on unescaped $ markers,
// alternating text and math runs. An unterminated marker renders the
// remainder as text rather than failing.
type MathSegmenter struct{}

// NewMathSegmenter creates the default renderer.
func NewMathSegmenter() *MathSegmenter {
	return &MathSegmenter{}
}

func (MathSegmenter) Render(content string) []Segment {
	var segments []Segment
	var buf strings.Builder
	inMath := false
	escaped := false

	flush := func(kind SegmentKind) {
		if buf.Len() == 0 {
			return
		}
		segments = append(segments, Segment{Kind: kind, Content: buf.String()})
		buf.Reset()
	}

	for _, r := range content {
		switch {
		case escaped:
			// Only \$ is an escape; any other backslash is literal content
			// (LaTeX commands inside math runs rely on this).
			if r != '$' {
				buf.WriteRune('\\')
			}
			buf.WriteRune(r)
			escaped = false
		case r == '\\':
			escaped = true
		case r == '$':
			if inMath {
				flush(SegmentMath)
			} else {
				flush(SegmentText)
			}
			inMath = !inMath
		default:
			buf.WriteRune(r)
		}
	}

	if escaped {
		buf.WriteRune('\\')
	}
	// Trailing content, including an unterminated math run, renders as text.
	flush(SegmentText)
	return segments
}
