package sourcemap

import (
	"encoding/json"
	"strings"
	"testing"

	sourcemapv1 "gopkg.in/sourcemap.v1"
)

func TestVLQEncoding(t *testing.T) {
	tests := []struct {
		add  [][6]int
		want string
	}{
		{[][6]int{{0, 0, 0, 0, 0, -1}}, "AAAA"},
		{[][6]int{{0, 0, 0, 0, 0, -1}, {0, 5, 0, 10, 0, -1}}, "AAAA,KAAU"},
		{[][6]int{{0, 0, 0, 0, 0, -1}, {1, 0, 1, 0, 0, -1}}, "AAAA;AACA"},
		{[][6]int{{2, 3, 4, 5, 0, -1}}, ";;GAIK"},
	}
	for _, tt := range tests {
		b := NewBuilder("")
		b.AddSource("src")
		for _, m := range tt.add {
			b.Add(uint32(m[0]), uint32(m[1]), uint32(m[2]), uint32(m[3]), m[4], m[5])
		}
		if got := b.encodeMappings(); got != tt.want {
			t.Errorf("mappings %v encoded to %q, want %q", tt.add, got, tt.want)
		}
	}
}

func TestNegativeDelta(t *testing.T) {
	b := NewBuilder("")
	b.AddSource("src")
	b.Add(0, 10, 0, 20, 0, -1)
	// source column goes backwards: the delta encodes with the sign bit
	b.Add(0, 12, 0, 3, 0, -1)
	if !strings.Contains(b.encodeMappings(), ",") {
		t.Fatal("expected two segments")
	}
	if _, err := sourcemapv1.Parse("m.map", []byte(b.String())); err != nil {
		t.Fatalf("consumer rejects map with negative deltas: %v", err)
	}
}

func TestSerializedShape(t *testing.T) {
	b := NewBuilder("out.css")
	id := b.AddSource("in.css")
	b.SetSourceContents(id, ".a{}")
	name := b.AddName("a")
	b.Add(0, 0, 0, 0, id, name)

	var doc struct {
		Version        int       `json:"version"`
		File           string    `json:"file"`
		Sources        []string  `json:"sources"`
		SourcesContent []*string `json:"sourcesContent"`
		Names          []string  `json:"names"`
		Mappings       string    `json:"mappings"`
	}
	if err := json.Unmarshal([]byte(b.String()), &doc); err != nil {
		t.Fatalf("output is not valid JSON: %v", err)
	}
	if doc.Version != 3 {
		t.Errorf("version = %d, want 3", doc.Version)
	}
	if len(doc.Sources) != 1 || doc.Sources[0] != "in.css" {
		t.Errorf("sources = %v", doc.Sources)
	}
	if len(doc.SourcesContent) != 1 || doc.SourcesContent[0] == nil || *doc.SourcesContent[0] != ".a{}" {
		t.Errorf("sourcesContent = %v", doc.SourcesContent)
	}
	if len(doc.Names) != 1 || doc.Names[0] != "a" {
		t.Errorf("names = %v", doc.Names)
	}
	if doc.Mappings == "" {
		t.Error("empty mappings")
	}
}

func TestSourceDedupAndNameIntern(t *testing.T) {
	b := NewBuilder("")
	a1 := b.AddSource("a")
	a2 := b.AddSource("a")
	if a1 != a2 {
		t.Errorf("duplicate source registered twice: %d vs %d", a1, a2)
	}
	n1 := b.AddName("x")
	n2 := b.AddName("x")
	n3 := b.AddName("y")
	if n1 != n2 || n3 == n1 {
		t.Errorf("name interning broken: %d %d %d", n1, n2, n3)
	}
}

func TestConsumerLookup(t *testing.T) {
	b := NewBuilder("out")
	id := b.AddSource("input.wxml")
	b.SetSourceContents(id, "<div/>")
	b.Add(0, 0, 0, 0, id, -1)
	b.Add(0, 4, 0, 1, id, -1)

	smap, err := sourcemapv1.Parse("out.map", []byte(b.String()))
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for col := 0; col < 10 && !found; col++ {
		if source, _, _, _, ok := smap.Source(1, col); ok && source == "input.wxml" {
			found = true
		}
	}
	if !found {
		t.Error("no generated position resolves to the input source")
	}
}
