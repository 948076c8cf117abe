package render

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRender_PlainText(t *testing.T) {
	segments := NewMathSegmenter().Render("Which choice completes the text?")
	assert.Equal(t, []Segment{
		{Kind: SegmentText, Content: "Which choice completes the text?"},
	}, segments)
}

func TestRender_InlineMath(t *testing.T) {
	segments := NewMathSegmenter().Render("If $x + 2 = 5$, what is $x$?")
	assert.Equal(t, []Segment{
		{Kind: SegmentText, Content: "If "},
		{Kind: SegmentMath, Content: "x + 2 = 5"},
		{Kind: SegmentText, Content: ", what is "},
		{Kind: SegmentMath, Content: "x"},
		{Kind: SegmentText, Content: "?"},
	}, segments)
}

func TestRender_LatexCommandsKeepBackslash(t *testing.T) {
	segments := NewMathSegmenter().Render(`$\frac{1}{2}$`)
	assert.Equal(t, []Segment{
		{Kind: SegmentMath, Content: `\frac{1}{2}`},
	}, segments)
}

func TestRender_EscapedDollarIsLiteral(t *testing.T) {
	segments := NewMathSegmenter().Render(`The ticket costs \$5.`)
	assert.Equal(t, []Segment{
		{Kind: SegmentText, Content: "The ticket costs $5."},
	}, segments)
}

func TestRender_UnterminatedMathRendersAsText(t *testing.T) {
	segments := NewMathSegmenter().Render("Solve $x + 1")
	assert.Equal(t, []Segment{
		{Kind: SegmentText, Content: "Solve "},
		{Kind: SegmentText, Content: "x + 1"},
	}, segments)
}

func TestRender_Empty(t *testing.T) {
	assert.Empty(t, NewMathSegmenter().Render(""))
}
