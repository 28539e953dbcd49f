// Package export assembles the side products of a pattern: the metadata
// record written next to the bitmap, an upscaled preview and palette swatches.
package export

import (
	"encoding/json"
	"fmt"
	"io"

	"loomquant/atomicfile"
	"loomquant/pattern"
	"loomquant/tile"
)

// Loom describes the machine a pattern is woven on.
type Loom struct {
	Name    string  `json:"name,omitempty"`
	EPI     float64 `json:"epi,omitempty"`
	PPI     float64 `json:"ppi,omitempty"`
	ReportW int     `json:"reportW,omitempty"`
	ReportH int     `json:"reportH,omitempty"`
}

// Report returns the loom's repeat size, or the zero size unless both sides are set.
func (l *Loom) Report() tile.Size {
	if l == nil || l.ReportW <= 0 || l.ReportH <= 0 {
		return tile.Size{}
	}
	return tile.Size{Width: l.ReportW, Height: l.ReportH}
}

// Labels supplies the optional yarn labels of palette entries. *palette.Set implements it.
type Labels interface {
	Code(i int) string
	YarnName(i int) string
}

type Entry struct {
	Index int    `json:"index"`
	R     uint8  `json:"r"`
	G     uint8  `json:"g"`
	B     uint8  `json:"b"`
	Label string `json:"label,omitempty"`
	Name  string `json:"name,omitempty"`
}

type Metadata struct {
	Width             int      `json:"width"`
	Height            int      `json:"height"`
	Palette           []Entry  `json:"palette"`
	SourceDescription string   `json:"sourceDescription"`
	PaletteName       string   `json:"paletteName,omitempty"`
	DeltaE            *float64 `json:"deltaE,omitempty"`
	Loom              *Loom    `json:"loom,omitempty"`
	Bitmap            string   `json:"bitmap,omitempty"`
}

// Build describes ix. labels may be nil.
func Build(ix *pattern.Indexed, labels Labels, source string) (*Metadata, error) {
	if err := ix.Validate(); err != nil {
		return nil, fmt.Errorf("could not build metadata: %w", err)
	}

	m := &Metadata{
		Width:             ix.Width,
		Height:            ix.Height,
		Palette:           make([]Entry, len(ix.Palette)),
		SourceDescription: source,
	}
	for i, c := range ix.Palette {
		e := Entry{Index: i, R: c.R, G: c.G, B: c.B}
		if labels != nil {
			e.Label = labels.Code(i)
			e.Name = labels.YarnName(i)
		}
		m.Palette[i] = e
	}
	return m, nil
}

// Encode writes m as indented JSON followed by a newline.
func (m *Metadata) Encode(w io.Writer) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(m); err != nil {
		return fmt.Errorf("could not encode metadata: %w", err)
	}
	return nil
}

func (m *Metadata) WriteFile(path string) error {
	return atomicfile.Write(path, m.Encode)
}

// ReadMetadata decodes a record written by Encode.
func ReadMetadata(r io.Reader) (*Metadata, error) {
	var m Metadata
	if err := json.NewDecoder(r).Decode(&m); err != nil {
		return nil, fmt.Errorf("could not decode metadata: %w", err)
	}
	return &m, nil
}
