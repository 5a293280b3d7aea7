package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/complytics/memegen/internal/domain"
	"github.com/complytics/memegen/internal/logger"
	"github.com/complytics/memegen/internal/storage"
	"github.com/xuri/excelize/v2"
)

// exportSheet is the single worksheet of the exported workbook.
const exportSheet = "Memes"

// embedSizePx is the edge length the embedded image is scaled towards.
const embedSizePx = 200.0

// exportHeaders are the workbook columns: the row index, the eight
// idea fields, and the embedded image cell.
var exportHeaders = []string{
	"Row", "Meme Template", "Prompt", "Company Background", "Marketing Message",
	"Call to Action", "Target Audience", "Platform", "Theme", "Image",
}

// ExportAssembler combines the idea table and the per-row artifacts
// into the final bundle: a workbook with embedded images, the CSV of
// the idea table, and the standalone image files. Rows without an
// artifact are omitted from the workbook. The bundle is derived state
// and can be rebuilt at any time.
type ExportAssembler struct {
	store        storage.ArtifactStore
	logger       *logger.Logger
	csvFile      string
	workbookFile string
}

// ExportFilesConfig holds the artifact file names of one run.
type ExportFilesConfig struct {
	CSVFile      string
	WorkbookFile string
}

// NewExportAssembler creates a new export assembler.
func NewExportAssembler(store storage.ArtifactStore, log *logger.Logger, cfg *ExportFilesConfig) *ExportAssembler {
	csvFile := "generated_marketing_data.csv"
	workbookFile := "memes_export.xlsx"
	if cfg != nil {
		if cfg.CSVFile != "" {
			csvFile = cfg.CSVFile
		}
		if cfg.WorkbookFile != "" {
			workbookFile = cfg.WorkbookFile
		}
	}
	return &ExportAssembler{
		store:        store,
		logger:       log,
		csvFile:      csvFile,
		workbookFile: workbookFile,
	}
}

// WriteCSV writes the idea table as the delimited-text artifact.
// Parameters:
//   - table: idea table to write.
//
// Returns:
//   - string: path of the written CSV file.
//   - error: non-nil if writing fails.
func (a *ExportAssembler) WriteCSV(table domain.IdeaTable) (string, error) {
	parser := NewTableParser()
	path, err := a.store.Save(a.csvFile, []byte(parser.Serialize(table)))
	if err != nil {
		return "", fmt.Errorf("failed to write csv artifact: %w", err)
	}
	return path, nil
}

// Assemble builds the export bundle. The workbook is built fully in
// memory and only replaces the destination on complete success.
// Parameters:
//   - ctx: context for logging.
//   - table: current idea table.
//   - artifacts: artifacts keyed by row index of that table.
//
// Returns:
//   - *domain.ExportBundle: paths of the written bundle.
//   - error: *domain.ExportError if an artifact's image file has gone
//     missing or workbook assembly/writing fails.
func (a *ExportAssembler) Assemble(ctx context.Context, table domain.IdeaTable, artifacts map[int]domain.MemeArtifact) (*domain.ExportBundle, error) {
	start := time.Now()

	indices := make([]int, 0, len(artifacts))
	for idx := range artifacts {
		indices = append(indices, idx)
	}
	sort.Ints(indices)

	// Verify every referenced image still exists before building
	// anything; a workbook with a broken embed must never be written.
	imagePaths := make([]string, 0, len(indices))
	for _, idx := range indices {
		art := artifacts[idx]
		name := fmt.Sprintf("meme_%d.png", idx)
		exists, err := a.store.Exists(name)
		if err != nil {
			return nil, &domain.ExportError{Reason: fmt.Sprintf("cannot stat image for row %d", idx), Err: err}
		}
		if !exists {
			return nil, &domain.ExportError{Reason: fmt.Sprintf("image for row %d no longer exists at %s", idx, art.SavedPath)}
		}
		imagePaths = append(imagePaths, a.store.Path(name))
	}

	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, &domain.ExportError{Reason: "failed to create sheet", Err: err}
	}

	for col, header := range exportHeaders {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			return nil, &domain.ExportError{Reason: "failed to address header cell", Err: err}
		}
		if err := f.SetCellValue(exportSheet, cell, header); err != nil {
			return nil, &domain.ExportError{Reason: "failed to write header", Err: err}
		}
	}

	for i, idx := range indices {
		art := artifacts[idx]
		rowNum := i + 2

		values := append([]interface{}{idx}, rowValues(&table[idx])...)
		for col, v := range values {
			cell, err := excelize.CoordinatesToCellName(col+1, rowNum)
			if err != nil {
				return nil, &domain.ExportError{Reason: "failed to address cell", Err: err}
			}
			if err := f.SetCellValue(exportSheet, cell, v); err != nil {
				return nil, &domain.ExportError{Reason: fmt.Sprintf("failed to write row %d", idx), Err: err}
			}
		}

		imageCell, err := excelize.CoordinatesToCellName(len(exportHeaders), rowNum)
		if err != nil {
			return nil, &domain.ExportError{Reason: "failed to address image cell", Err: err}
		}

		imageData := art.Image
		if len(imageData) == 0 {
			imageData, err = a.readArtifact(fmt.Sprintf("meme_%d.png", idx))
			if err != nil {
				return nil, &domain.ExportError{Reason: fmt.Sprintf("cannot read image for row %d", idx), Err: err}
			}
		}

		scaleX, scaleY := embedScale(art.Width, art.Height)
		if err := f.AddPictureFromBytes(exportSheet, imageCell, &excelize.Picture{
			Extension: ".png",
			File:      imageData,
			Format: &excelize.GraphicOptions{
				ScaleX:          scaleX,
				ScaleY:          scaleY,
				LockAspectRatio: true,
			},
		}); err != nil {
			return nil, &domain.ExportError{Reason: fmt.Sprintf("failed to embed image for row %d", idx), Err: err}
		}

		if err := f.SetRowHeight(exportSheet, rowNum, 155); err != nil {
			return nil, &domain.ExportError{Reason: "failed to size row", Err: err}
		}
	}

	imageCol, _ := excelize.ColumnNumberToName(len(exportHeaders))
	if err := f.SetColWidth(exportSheet, imageCol, imageCol, 30); err != nil {
		return nil, &domain.ExportError{Reason: "failed to size image column", Err: err}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, &domain.ExportError{Reason: "failed to render workbook", Err: err}
	}

	// The workbook rename is the bundle's commit point; the CSV goes
	// first so a failed bundle never replaces the previous workbook.
	csvPath, err := a.WriteCSV(table)
	if err != nil {
		return nil, &domain.ExportError{Reason: "failed to write csv", Err: err}
	}

	workbookPath, err := a.store.Save(a.workbookFile, buf.Bytes())
	if err != nil {
		return nil, &domain.ExportError{Reason: "failed to write workbook", Err: err}
	}

	logger.With(logger.Fields{
		logger.FieldDurationMs: time.Since(start).Milliseconds(),
		logger.FieldCount:      len(indices),
		logger.FieldSize:       buf.Len(),
	}).Info(ctx, "Export bundle assembled: workbook=%s", workbookPath)

	return &domain.ExportBundle{
		WorkbookPath: workbookPath,
		CSVPath:      csvPath,
		ImagePaths:   imagePaths,
		RowCount:     len(indices),
	}, nil
}

// WorkbookPath returns the destination path of the workbook artifact.
func (a *ExportAssembler) WorkbookPath() string {
	return a.store.Path(a.workbookFile)
}

func (a *ExportAssembler) readArtifact(name string) ([]byte, error) {
	r, err := a.store.Open(name)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return io.ReadAll(r)
}

func rowValues(row *domain.IdeaRow) []interface{} {
	fields := row.Fields()
	values := make([]interface{}, len(fields))
	for i, f := range fields {
		values[i] = f
	}
	return values
}

// embedScale scales the embed towards embedSizePx on the longer edge.
// Unknown dimensions fall back to a fixed reduction.
func embedScale(width, height int) (float64, float64) {
	longest := width
	if height > longest {
		longest = height
	}
	if longest <= 0 {
		return 0.2, 0.2
	}
	s := embedSizePx / float64(longest)
	if s > 1 {
		s = 1
	}
	return s, s
}
