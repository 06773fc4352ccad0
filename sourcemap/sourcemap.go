// Package sourcemap builds "source map v3" documents: ordered mappings
// from generated positions back to source positions, VLQ-encoded. All
// columns are UTF-16 code units, zero-based.
package sourcemap

import (
	"encoding/json"
	"io"
	"strings"
)

// Mapping relates one generated position to one source position, with an
// optional name.
type Mapping struct {
	GenLine  uint32
	GenCol   uint32
	SrcLine  uint32
	SrcCol   uint32
	SourceID int
	NameID   int // -1 when the mapping carries no name
}

// Builder accumulates mappings plus the source-contents table and
// serializes them as a v3 JSON document.
type Builder struct {
	file           string
	sources        []string
	sourcesContent []*string
	names          []string
	nameIDs        map[string]int
	mappings       []Mapping
}

// NewBuilder returns an empty builder. file may be empty.
func NewBuilder(file string) *Builder {
	return &Builder{file: file, nameIDs: make(map[string]int)}
}

// AddSource registers a source path and returns its id. Registering the
// same path twice returns the existing id.
func (b *Builder) AddSource(path string) int {
	for i, s := range b.sources {
		if s == path {
			return i
		}
	}
	b.sources = append(b.sources, path)
	b.sourcesContent = append(b.sourcesContent, nil)
	return len(b.sources) - 1
}

// SetSourceContents attaches the original text of a registered source.
func (b *Builder) SetSourceContents(id int, content string) {
	if id >= 0 && id < len(b.sourcesContent) {
		b.sourcesContent[id] = &content
	}
}

// AddName interns a name and returns its id.
func (b *Builder) AddName(name string) int {
	if id, ok := b.nameIDs[name]; ok {
		return id
	}
	id := len(b.names)
	b.names = append(b.names, name)
	b.nameIDs[name] = id
	return id
}

// Add appends one mapping. nameID is -1 for a nameless mapping.
func (b *Builder) Add(genLine, genCol, srcLine, srcCol uint32, sourceID, nameID int) {
	b.mappings = append(b.mappings, Mapping{
		GenLine: genLine, GenCol: genCol,
		SrcLine: srcLine, SrcCol: srcCol,
		SourceID: sourceID, NameID: nameID,
	})
}

// Mappings returns the accumulated mappings in insertion order.
func (b *Builder) Mappings() []Mapping { return b.mappings }

type mapFile struct {
	Version        int       `json:"version"`
	File           string    `json:"file,omitempty"`
	Sources        []string  `json:"sources"`
	SourcesContent []*string `json:"sourcesContent"`
	Names          []string  `json:"names"`
	Mappings       string    `json:"mappings"`
}

// WriteTo serializes the map as v3 JSON.
func (b *Builder) WriteTo(w io.Writer) error {
	doc := mapFile{
		Version:        3,
		File:           b.file,
		Sources:        b.sources,
		SourcesContent: b.sourcesContent,
		Names:          b.names,
		Mappings:       b.encodeMappings(),
	}
	if doc.Sources == nil {
		doc.Sources = []string{}
	}
	if doc.SourcesContent == nil {
		doc.SourcesContent = []*string{}
	}
	if doc.Names == nil {
		doc.Names = []string{}
	}
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	return enc.Encode(doc)
}

// String returns the serialized v3 JSON document.
func (b *Builder) String() string {
	var sb strings.Builder
	_ = b.WriteTo(&sb)
	return strings.TrimSuffix(sb.String(), "\n")
}

// encodeMappings renders the VLQ `mappings` field. Mappings are grouped by
// generated line; mappings within a line must be added in column order for
// consumers to binary-search them.
func (b *Builder) encodeMappings() string {
	var sb strings.Builder
	var prevGenLine uint32
	var prevGenCol, prevSrcID, prevSrcLine, prevSrcCol, prevNameID int64
	firstInLine := true
	for _, m := range b.mappings {
		for prevGenLine < m.GenLine {
			sb.WriteByte(';')
			prevGenLine++
			prevGenCol = 0
			firstInLine = true
		}
		if !firstInLine {
			sb.WriteByte(',')
		}
		firstInLine = false
		writeVLQ(&sb, int64(m.GenCol)-prevGenCol)
		prevGenCol = int64(m.GenCol)
		writeVLQ(&sb, int64(m.SourceID)-prevSrcID)
		prevSrcID = int64(m.SourceID)
		writeVLQ(&sb, int64(m.SrcLine)-prevSrcLine)
		prevSrcLine = int64(m.SrcLine)
		writeVLQ(&sb, int64(m.SrcCol)-prevSrcCol)
		prevSrcCol = int64(m.SrcCol)
		if m.NameID >= 0 {
			writeVLQ(&sb, int64(m.NameID)-prevNameID)
			prevNameID = int64(m.NameID)
		}
	}
	return sb.String()
}

const base64Chars = "ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789+/"

// writeVLQ emits one base64 VLQ value: the sign moves into the lowest bit,
// then 5-bit groups little-endian with a continuation bit.
func writeVLQ(sb *strings.Builder, v int64) {
	u := uint64(v) << 1
	if v < 0 {
		u = uint64(-v)<<1 | 1
	}
	for {
		digit := u & 0x1F
		u >>= 5
		if u != 0 {
			digit |= 0x20
		}
		sb.WriteByte(base64Chars[digit])
		if u == 0 {
			return
		}
	}
}
