package models

import (
	"database/sql/driver"
	"encoding/json"
)

// SectionKind tags a section within the generated batch. The set is closed;
// styling defaults dispatch over it via an explicit table.
type SectionKind string

const (
	// KindOpening is the leading section of a batch.
	KindOpening SectionKind = "opening"
	// KindBody sections carry the main content.
	KindBody SectionKind = "body"
	// KindClosing is the trailing section of a batch.
	KindClosing SectionKind = "closing"
)

// validSectionKinds maps every recognised SectionKind value to true for O(1) lookup.
var validSectionKinds = map[SectionKind]bool{
	KindOpening: true,
	KindBody:    true,
	KindClosing: true,
}

// IsValid reports whether k is a recognised section kind.
func (k SectionKind) IsValid() bool {
	return validSectionKinds[k]
}

// SectionStyle holds the display parameters of a section.
type SectionStyle struct {
	BackgroundColor string `json:"background_color"`
	FontFamily      string `json:"font_family"`
	FontSize        int    `json:"font_size"`
}

// defaultStyles is the explicit per-kind styling table.
var defaultStyles = map[SectionKind]SectionStyle{
	KindOpening: {BackgroundColor: "#1F2937", FontFamily: "Pretendard", FontSize: 22},
	KindBody:    {BackgroundColor: "#FFFFFF", FontFamily: "Pretendard", FontSize: 16},
	KindClosing: {BackgroundColor: "#F3F4F6", FontFamily: "Pretendard", FontSize: 18},
}

// DefaultStyle returns the styling defaults for a section kind. Unknown kinds
// fall back to the body style.
func DefaultStyle(kind SectionKind) SectionStyle {
	if style, ok := defaultStyles[kind]; ok {
		return style
	}
	return defaultStyles[KindBody]
}

// Value implements driver.Valuer for database storage.
func (s SectionStyle) Value() (driver.Value, error) {
	return json.Marshal(s)
}

// Scan implements sql.Scanner for database retrieval.
func (s *SectionStyle) Scan(value any) error {
	if value == nil {
		*s = SectionStyle{}
		return nil
	}
	bytes, ok := value.([]byte)
	if !ok {
		return ErrUnsupportedScan
	}
	return json.Unmarshal(bytes, s)
}

// Section is one displayable unit of generated output belonging to an item.
// Sections are created and replaced in batches; positions are totally ordered
// within the parent but not required to be contiguous.
type Section struct {
	ID       string       `db:"id"       json:"id"`
	ItemID   string       `db:"item_id"  json:"item_id"`
	Position int          `db:"position" json:"position"`
	Kind     SectionKind  `db:"kind"     json:"kind"`
	Title    string       `db:"title"    json:"title,omitempty"`
	Body     string       `db:"body"     json:"body"`
	Style    SectionStyle `db:"style"    json:"style"`
}

// CloneSections deep-copies a section batch. The chat engine snapshots the
// current batch with this before applying a mutation.
func CloneSections(sections []Section) []Section {
	if sections == nil {
		return nil
	}
	out := make([]Section, len(sections))
	copy(out, sections)
	return out
}
