package domain

import "time"

// MemeArtifact is a generated meme image bound to a row index of the
// idea table it was generated from. The index is a back-reference, not
// ownership: regenerating the table invalidates every artifact.
type MemeArtifact struct {
	RowIndex  int       `json:"row_index"`
	Image     []byte    `json:"-"`
	SavedPath string    `json:"saved_path"`
	MIMEType  string    `json:"mime_type"`
	Width     int       `json:"width"`
	Height    int       `json:"height"`
	CreatedAt time.Time `json:"created_at"`
}

// ExportBundle is the final combined output of one export: the
// workbook with embedded images plus the standalone artifact files it
// references. Derived and stateless; rebuildable from the idea table
// and the current artifact set.
type ExportBundle struct {
	WorkbookPath string   `json:"workbook_path"`
	CSVPath      string   `json:"csv_path"`
	ImagePaths   []string `json:"image_paths"`
	RowCount     int      `json:"row_count"`
}
