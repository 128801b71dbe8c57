package srt

import (
	"strings"
	"testing"

	"subtitld/pkg/types"
)

func TestTimestamp(t *testing.T) {
	cases := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00,000"},
		{2.5, "00:00:02,500"},
		{61.042, "00:01:01,042"},
		{3661.999, "01:01:01,999"},
		{-1, "00:00:00,000"},
	}
	for _, c := range cases {
		if got := Timestamp(c.in); got != c.want {
			t.Errorf("Timestamp(%v) = %q, want %q", c.in, got, c.want)
		}
	}
}

func TestFormatSegmentLevel(t *testing.T) {
	f := New(Options{})
	got := f.Format([]types.Segment{
		{Start: 0, End: 2.5, Text: " Hello world. "},
		{Start: 2.5, End: 5, Text: "This is a test."},
	})
	want := "1\n00:00:00,000 --> 00:00:02,500\nHello world.\n" +
		"\n2\n00:00:02,500 --> 00:00:05,000\nThis is a test.\n"
	if got != want {
		t.Errorf("unexpected output:\n%q\nwant:\n%q", got, want)
	}
}

func TestFormatEmpty(t *testing.T) {
	if got := New(Options{}).Format(nil); got != "" {
		t.Errorf("expected empty output, got %q", got)
	}
}

func TestWordLevel(t *testing.T) {
	f := New(Options{WordLevel: true})
	got := f.Format([]types.Segment{
		{
			Start: 0, End: 1, Text: "Hello world",
			Words: []types.Word{
				{Word: " Hello", Start: 0, End: 0.4},
				{Word: " world", Start: 0.4, End: 1},
			},
		},
		// No word timestamps: falls back to one segment-level entry.
		{Start: 1, End: 2, Text: "Goodbye"},
	})
	lines := strings.Split(got, "\n")
	if lines[0] != "1" || lines[2] != "Hello" {
		t.Fatalf("unexpected first entry: %q", got)
	}
	if !strings.Contains(got, "3\n00:00:01,000 --> 00:00:02,000\nGoodbye") {
		t.Errorf("expected fallback entry numbered 3, got:\n%s", got)
	}
}

func TestWrapTextWidth(t *testing.T) {
	f := New(Options{MaxLineWidth: 10, MaxLineCount: 3})
	out := f.wrapText("one two three four five")
	for _, line := range strings.Split(out, "\n") {
		if len(line) > 10 {
			t.Errorf("line %q exceeds width 10", line)
		}
	}
}

func TestWrapTextLineCount(t *testing.T) {
	f := New(Options{MaxLineWidth: 5, MaxLineCount: 2})
	out := f.wrapText("aa bb cc dd ee ff")
	if n := len(strings.Split(out, "\n")); n != 2 {
		t.Errorf("expected 2 lines, got %d:\n%s", n, out)
	}
}

func TestWrapRunesNoSpaces(t *testing.T) {
	f := New(Options{MaxLineWidth: 4, MaxLineCount: 3})
	out := f.wrapText("一二三四五六七")
	lines := strings.Split(out, "\n")
	if len(lines) != 2 || lines[0] != "一二三四" || lines[1] != "五六七" {
		t.Errorf("unexpected rune wrap: %q", lines)
	}
}

func TestLineCountClamped(t *testing.T) {
	if f := New(Options{MaxLineCount: 9}); f.opts.MaxLineCount != 3 {
		t.Errorf("MaxLineCount = %d, want 3", f.opts.MaxLineCount)
	}
}

func TestAdjustTimingAnchorsEnd(t *testing.T) {
	// Short Latin text reads in under a second, so the duration clamps to
	// the minimum and the start is pulled up toward the end anchor.
	f := New(Options{AdjustTiming: true})
	got := f.Format([]types.Segment{{Start: 0, End: 10, Text: "Hi."}})
	if !strings.Contains(got, "00:00:09,000 --> 00:00:10,000") {
		t.Errorf("expected start recomputed back from end, got:\n%s", got)
	}
}

func TestAdjustTimingFixesOverlap(t *testing.T) {
	f := New(Options{AdjustTiming: true, CharsPerSecond: 1})
	// Both entries want ~7s of reading time. The second would start before
	// the first ends, so its start snaps to the first entry's end.
	got := f.Format([]types.Segment{
		{Start: 0, End: 5, Text: "aaaaaaaaaa"},
		{Start: 5, End: 8, Text: "bbbbbbbbbb"},
	})
	if !strings.Contains(got, "00:00:05,000 --> 00:00:08,000") {
		t.Errorf("expected overlap fixed to previous end, got:\n%s", got)
	}
}

func TestSplitByPunctuation(t *testing.T) {
	f := New(Options{AdjustTiming: true, SplitByPunctuation: true, CharsPerSecond: 100})
	seg := types.Segment{
		Start: 0, End: 4, Text: "你好。再见。",
		Words: []types.Word{
			{Word: "你好", Start: 0, End: 1},
			{Word: "。", Start: 1, End: 1.2},
			{Word: "再见", Start: 2, End: 3},
			{Word: "。", Start: 3, End: 3.2},
		},
	}
	got := f.Format([]types.Segment{seg})
	if !strings.Contains(got, "你好。") || !strings.Contains(got, "再见。") {
		t.Fatalf("expected two clauses, got:\n%s", got)
	}
	if !strings.Contains(got, "2\n") {
		t.Errorf("expected two entries, got:\n%s", got)
	}
}

func TestIsCJKText(t *testing.T) {
	if isCJKText("hello world") {
		t.Error("latin text misdetected as CJK")
	}
	if !isCJKText("这是中文字幕") {
		t.Error("CJK text not detected")
	}
	if isCJKText("... 123") {
		t.Error("no letters should not count as CJK")
	}
}

func TestReadingDurationClamped(t *testing.T) {
	f := New(Options{CharsPerSecond: 1})
	if d := f.readingDuration(strings.Repeat("a", 100)); d != maxEntryDuration {
		t.Errorf("duration = %v, want clamp to %v", d, maxEntryDuration)
	}
	f = New(Options{CharsPerSecond: 1000})
	if d := f.readingDuration("a"); d != minEntryDuration {
		t.Errorf("duration = %v, want clamp to %v", d, minEntryDuration)
	}
}
