package main

import (
	"testing"

	"github.com/rs/zerolog"
)

func TestSplitCSV(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"a,,c", []string{"a", "c"}},
		{"", nil},
	}
	for _, c := range cases {
		got := splitCSV(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
			}
		}
	}
}

func TestNewLogger(t *testing.T) {
	if lvl := newLogger("debug").GetLevel(); lvl != zerolog.DebugLevel {
		t.Errorf("level = %v, want debug", lvl)
	}
	if lvl := newLogger("").GetLevel(); lvl != zerolog.InfoLevel {
		t.Errorf("empty level = %v, want info", lvl)
	}
	if lvl := newLogger("bogus").GetLevel(); lvl != zerolog.InfoLevel {
		t.Errorf("bogus level = %v, want info", lvl)
	}
}

func TestServeCmdFlags(t *testing.T) {
	cmd := newServeCmd()
	for _, name := range []string{"config", "addr", "models-dir", "workers", "max-cached-models", "vram-limit-percent", "cors-origins"} {
		if cmd.Flags().Lookup(name) == nil {
			t.Errorf("serve is missing flag --%s", name)
		}
	}
}
