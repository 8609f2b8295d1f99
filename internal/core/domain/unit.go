package domain

import "time"

type Granularity string

const (
	GranularitySection  Granularity = "section"
	GranularityFragment Granularity = "fragment"
)

func (g Granularity) Valid() bool {
	return g == GranularitySection || g == GranularityFragment
}

// BBox is the spatial region of a unit on its source page, in page coordinates.
type BBox struct {
	X0 float64 `json:"x0"`
	Y0 float64 `json:"y0"`
	X1 float64 `json:"x1"`
	Y1 float64 `json:"y1"`
}

// DocumentUnit is one indexable piece of extracted content. Sections are the
// coarse granularity; fragments are fine-grained and carry the id of their
// parent section. Units are immutable once indexed and are superseded as a
// whole when their document is re-processed.
type DocumentUnit struct {
	ID              string      `json:"id"`
	DocumentID      string      `json:"document_id"`
	Content         string      `json:"content"`
	Granularity     Granularity `json:"granularity"`
	ParentSectionID string      `json:"parent_section_id,omitempty"`
	Title           string      `json:"title,omitempty"`
	PageNumber      int         `json:"page_number,omitempty"`
	BBox            *BBox       `json:"bbox,omitempty"`
	CreatedAt       time.Time   `json:"created_at"`
}
