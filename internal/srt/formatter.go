// Package srt renders transcription segments as SubRip (.srt) subtitle
// files: sequential entry numbers, HH:MM:SS,mmm timestamps, a blank line
// between entries.
package srt

import (
	"fmt"
	"strings"
	"unicode"

	"subtitld/pkg/types"
)

// Reading speeds used when adjusting timing and no override is given.
// CJK readers manage far fewer characters per second than Latin readers.
const (
	defaultCPSCJK   = 4.0
	defaultCPSLatin = 15.0

	minEntryDuration = 1.0
	maxEntryDuration = 7.0

	defaultMaxLineWidth = 42
	defaultMaxLineCount = 2
)

// splitPunctuation marks sentence and clause boundaries for punctuation
// splitting. Covers both fullwidth (CJK) and ASCII forms.
var splitPunctuation = map[rune]bool{
	'。': true, '，': true, '？': true, '！': true, '、': true, '；': true,
	',': true, '.': true, '?': true, '!': true, ';': true,
}

// Options control how a Formatter lays out entries.
type Options struct {
	// MaxLineWidth is the character budget per line. Zero means 42.
	MaxLineWidth int
	// MaxLineCount caps lines per entry, clamped to 1..3. Zero means 2.
	MaxLineCount int
	// WordLevel emits one entry per word when word timestamps exist.
	WordLevel bool
	// AdjustTiming recomputes each entry's start time backwards from its
	// end time based on reading speed. End times stay as anchors.
	AdjustTiming bool
	// CharsPerSecond overrides the reading speed used by AdjustTiming.
	// Zero auto-detects based on script.
	CharsPerSecond float64
	// SplitByPunctuation breaks segments at punctuation marks using word
	// timestamps. Only applies when AdjustTiming is set.
	SplitByPunctuation bool
}

// Formatter renders segments to SRT text. The zero value is not usable,
// construct with New.
type Formatter struct {
	opts Options
}

// New builds a Formatter, filling in defaults and clamping MaxLineCount.
func New(opts Options) *Formatter {
	if opts.MaxLineWidth <= 0 {
		opts.MaxLineWidth = defaultMaxLineWidth
	}
	if opts.MaxLineCount <= 0 {
		opts.MaxLineCount = defaultMaxLineCount
	}
	if opts.MaxLineCount > 3 {
		opts.MaxLineCount = 3
	}
	return &Formatter{opts: opts}
}

// Format renders the segments as a complete SRT document.
func (f *Formatter) Format(segments []types.Segment) string {
	if f.opts.WordLevel {
		return f.formatWordLevel(segments)
	}
	return f.formatSegmentLevel(segments)
}

func (f *Formatter) formatSegmentLevel(segments []types.Segment) string {
	if f.opts.AdjustTiming {
		return f.formatAdjusted(segments)
	}

	var b strings.Builder
	for i, seg := range segments {
		text := strings.TrimSpace(seg.Text)
		writeEntry(&b, i+1, seg.Start, seg.End, f.wrapText(text))
	}
	return trimEntries(&b)
}

// formatWordLevel emits one entry per word. Segments without word
// timestamps fall back to a single segment-level entry.
func (f *Formatter) formatWordLevel(segments []types.Segment) string {
	var b strings.Builder
	n := 1
	for _, seg := range segments {
		if len(seg.Words) == 0 {
			writeEntry(&b, n, seg.Start, seg.End, strings.TrimSpace(seg.Text))
			n++
			continue
		}
		for _, w := range seg.Words {
			writeEntry(&b, n, w.Start, w.End, strings.TrimSpace(w.Word))
			n++
		}
	}
	return trimEntries(&b)
}

type timedText struct {
	start, end float64
	text       string
}

// formatAdjusted recomputes start times backwards from end anchors, then
// fixes any overlaps by pushing a late start up to the previous entry's end.
func (f *Formatter) formatAdjusted(segments []types.Segment) string {
	var adjusted []timedText
	for _, seg := range segments {
		var parts []timedText
		if f.opts.SplitByPunctuation && len(seg.Words) > 0 {
			parts = splitByPunctuation(seg)
		} else {
			parts = []timedText{{start: seg.Start, end: seg.End, text: strings.TrimSpace(seg.Text)}}
		}
		for _, p := range parts {
			text := strings.TrimSpace(p.text)
			if text == "" {
				continue
			}
			start := p.end - f.readingDuration(text)
			if start < 0 {
				start = 0
			}
			adjusted = append(adjusted, timedText{start: start, end: p.end, text: text})
		}
	}

	for i := 1; i < len(adjusted); i++ {
		if adjusted[i].start < adjusted[i-1].end {
			adjusted[i].start = adjusted[i-1].end
		}
	}

	var b strings.Builder
	for i, seg := range adjusted {
		writeEntry(&b, i+1, seg.start, seg.end, f.wrapText(seg.text))
	}
	return trimEntries(&b)
}

// splitByPunctuation breaks a segment into clauses at punctuation marks,
// taking timing from the first and last word of each clause.
func splitByPunctuation(seg types.Segment) []timedText {
	var (
		out   []timedText
		words []types.Word
		text  strings.Builder
	)
	flush := func() {
		t := strings.TrimSpace(text.String())
		if len(words) > 0 && t != "" {
			out = append(out, timedText{start: words[0].Start, end: words[len(words)-1].End, text: t})
		}
		words = words[:0]
		text.Reset()
	}
	for _, w := range seg.Words {
		wt := strings.TrimSpace(w.Word)
		words = append(words, w)
		text.WriteString(wt)
		if r := lastRune(wt); r != 0 && splitPunctuation[r] {
			flush()
		}
	}
	flush()
	if len(out) == 0 {
		return []timedText{{start: seg.Start, end: seg.End, text: strings.TrimSpace(seg.Text)}}
	}
	return out
}

// readingDuration estimates how long the text takes to read, clamped to
// the minimum and maximum entry durations.
func (f *Formatter) readingDuration(text string) float64 {
	cps := f.opts.CharsPerSecond
	if cps <= 0 {
		if isCJKText(text) {
			cps = defaultCPSCJK
		} else {
			cps = defaultCPSLatin
		}
	}
	chars := len([]rune(strings.ReplaceAll(text, " ", "")))
	d := float64(chars) / cps
	if d < minEntryDuration {
		return minEntryDuration
	}
	if d > maxEntryDuration {
		return maxEntryDuration
	}
	return d
}

// isCJKText reports whether more than 30% of the letters are CJK.
func isCJKText(text string) bool {
	cjk, total := 0, 0
	for _, r := range text {
		isCJK := unicode.In(r, unicode.Han, unicode.Hiragana, unicode.Katakana, unicode.Hangul)
		if unicode.IsLetter(r) || isCJK {
			total++
			if isCJK {
				cjk++
			}
		}
	}
	if total == 0 {
		return false
	}
	return float64(cjk)/float64(total) > 0.3
}

// wrapText breaks text into lines no wider than MaxLineWidth, then merges
// trailing lines so the entry never exceeds MaxLineCount lines. Text
// without spaces (typical for CJK) wraps on rune boundaries instead.
func (f *Formatter) wrapText(text string) string {
	words := strings.Fields(text)
	if len(words) <= 1 && len([]rune(text)) > f.opts.MaxLineWidth {
		return f.wrapRunes(text)
	}

	var lines []string
	var line []string
	length := 0
	for _, w := range words {
		wl := len([]rune(w))
		if length+wl+len(line) > f.opts.MaxLineWidth {
			if len(line) > 0 {
				lines = append(lines, strings.Join(line, " "))
				line = []string{w}
				length = wl
			} else {
				lines = append(lines, w)
				length = 0
			}
		} else {
			line = append(line, w)
			length += wl
		}
	}
	if len(line) > 0 {
		lines = append(lines, strings.Join(line, " "))
	}

	for len(lines) > f.opts.MaxLineCount {
		last := lines[len(lines)-1]
		lines = lines[:len(lines)-1]
		lines[len(lines)-1] += " " + last
	}
	return strings.Join(lines, "\n")
}

func (f *Formatter) wrapRunes(text string) string {
	runes := []rune(text)
	var lines []string
	for len(runes) > f.opts.MaxLineWidth {
		lines = append(lines, string(runes[:f.opts.MaxLineWidth]))
		runes = runes[f.opts.MaxLineWidth:]
	}
	if len(runes) > 0 {
		lines = append(lines, string(runes))
	}
	for len(lines) > f.opts.MaxLineCount {
		last := lines[len(lines)-1]
		lines = lines[:len(lines)-1]
		lines[len(lines)-1] += last
	}
	return strings.Join(lines, "\n")
}

// Timestamp converts seconds to the SRT form HH:MM:SS,mmm.
func Timestamp(seconds float64) string {
	if seconds < 0 {
		seconds = 0
	}
	h := int(seconds) / 3600
	m := (int(seconds) % 3600) / 60
	s := int(seconds) % 60
	ms := int((seconds - float64(int(seconds))) * 1000)
	return fmt.Sprintf("%02d:%02d:%02d,%03d", h, m, s, ms)
}

func writeEntry(b *strings.Builder, n int, start, end float64, text string) {
	fmt.Fprintf(b, "%d\n%s --> %s\n%s\n\n", n, Timestamp(start), Timestamp(end), text)
}

func trimEntries(b *strings.Builder) string {
	return strings.TrimSuffix(b.String(), "\n")
}

func lastRune(s string) rune {
	var last rune
	for _, r := range s {
		last = r
	}
	return last
}
