package pipeline

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"routesheet/internal"
	"routesheet/internal/config"
	"routesheet/internal/util"
)

// ErrTemplateOverflow means the batch needs more rows than the template's
// print range allows. It is raised before any file I/O so a failed generation
// never leaves a corrupted artifact.
var ErrTemplateOverflow = errors.New("batch exceeds template capacity")

const currencyNumFmt = `"$"#,##0.00`

// Template describes the fixed route-sheet layout: header cells above
// StartRow, a repeating block from StartRow to MaxRow, columns A through
// LastCol. The downstream print step assumes this exact range.
type Template struct {
	Path     string
	Sheet    string
	MaxRow   int
	StartRow int
	LastCol  string
}

func DefaultTemplate() Template {
	return Template{Sheet: "Sheet1", MaxRow: 44, StartRow: 6, LastCol: "K"}
}

func TemplateFromConfig(cfg config.Config) Template {
	t := DefaultTemplate()
	t.Path = cfg.TemplatePath
	if cfg.TemplateSheet != "" {
		t.Sheet = cfg.TemplateSheet
	}
	if cfg.TemplateMaxRow > 0 {
		t.MaxRow = cfg.TemplateMaxRow
	}
	if cfg.TemplateStartRow > 1 {
		t.StartRow = cfg.TemplateStartRow
	}
	if cfg.TemplateLastCol != "" {
		t.LastCol = cfg.TemplateLastCol
	}
	return t
}

// PrintRange is the rectangular cell range handed to the print collaborator.
func (t Template) PrintRange() string {
	return fmt.Sprintf("A1:%s%d", t.LastCol, t.MaxRow)
}

// CapacityRows is the number of repeating rows available for record blocks.
func (t Template) CapacityRows() int {
	return t.MaxRow - t.StartRow + 1
}

// rowsFor counts the rows one slot occupies: a record row plus one row per
// line item.
func rowsFor(slot internal.Slot) int {
	return 1 + len(slot.Record.LineItems)
}

func rowsNeeded(sheet internal.RouteSheet) int {
	n := 0
	for _, slot := range sheet.Slots {
		n += rowsFor(slot)
	}
	return n
}

// SplitForCapacity packs slots greedily into continuation sheets that each
// fit the template. Slot order is preserved; the batch total travels with
// every continuation. A single slot too large for an empty sheet is a hard
// overflow.
func SplitForCapacity(sheet internal.RouteSheet, t Template) ([]internal.RouteSheet, error) {
	capacity := t.CapacityRows()
	if rowsNeeded(sheet) <= capacity {
		return []internal.RouteSheet{sheet}, nil
	}

	var parts []internal.RouteSheet
	current := internal.RouteSheet{BatchID: sheet.BatchID, Total: sheet.Total, Duplicates: sheet.Duplicates}
	used := 0
	for _, slot := range sheet.Slots {
		need := rowsFor(slot)
		if need > capacity {
			return nil, fmt.Errorf("record %s needs %d rows, template fits %d: %w", slot.Record.SourceID, need, capacity, ErrTemplateOverflow)
		}
		if used+need > capacity {
			parts = append(parts, current)
			current = internal.RouteSheet{BatchID: sheet.BatchID, Total: sheet.Total}
			used = 0
		}
		current.Slots = append(current.Slots, slot)
		used += need
	}
	if len(current.Slots) > 0 {
		parts = append(parts, current)
	}
	return parts, nil
}

// Generate renders one route sheet into a workbook at outputPath. The write
// is atomic (temp file, then rename) and never clobbers an existing artifact:
// a taken name gets a numeric suffix. Printing is the caller's collaborator;
// the artifact carries the path and print range it needs.
func Generate(sheet internal.RouteSheet, t Template, outputPath string) (internal.SheetArtifact, error) {
	needed := rowsNeeded(sheet)
	if needed > t.CapacityRows() {
		return internal.SheetArtifact{}, fmt.Errorf("%d rows needed, %d available: %w", needed, t.CapacityRows(), ErrTemplateOverflow)
	}

	f, err := openTemplate(t)
	if err != nil {
		return internal.SheetArtifact{}, err
	}
	defer f.Close()

	currencyStyle, err := f.NewStyle(&excelize.Style{CustomNumFmt: util.StringPtr(currencyNumFmt)})
	if err != nil {
		return internal.SheetArtifact{}, err
	}
	boldStyle, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return internal.SheetArtifact{}, err
	}

	set := func(col, row int, value any) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		_ = f.SetCellValue(t.Sheet, cell, value)
	}
	setMoney := func(col, row int, d decimal.Decimal) {
		cell, _ := excelize.CoordinatesToCellName(col, row)
		v, _ := d.Float64()
		_ = f.SetCellValue(t.Sheet, cell, v)
		_ = f.SetCellStyle(t.Sheet, cell, cell, currencyStyle)
	}

	// Header area. When a template workbook is loaded these cells are the
	// template's named header region; on a fresh file the labels are written
	// too.
	if t.Path == "" {
		set(1, 1, "ROUTE SHEET")
		_ = f.SetCellStyle(t.Sheet, "A1", "A1", boldStyle)
		set(1, 2, "Batch")
		set(1, 3, "Receipts")
		set(1, 4, "Batch Total")
		hdrRow := t.StartRow - 1
		for i, h := range []string{"#", "Vendor", "Date", "Description", "Amount", "Subtotal"} {
			set(i+1, hdrRow, h)
		}
		cellA, _ := excelize.CoordinatesToCellName(1, hdrRow)
		cellF, _ := excelize.CoordinatesToCellName(6, hdrRow)
		_ = f.SetCellStyle(t.Sheet, cellA, cellF, boldStyle)
	}
	set(2, 2, sheet.BatchID)
	set(2, 3, len(sheet.Slots))
	setMoney(2, 4, sheet.Total)

	row := t.StartRow
	running := decimal.Zero
	for _, slot := range sheet.Slots {
		rec := slot.Record
		set(1, row, slot.Position+1)
		set(2, row, rec.Vendor)
		if rec.Date != nil {
			set(3, row, rec.Date.Format("01/02/2006"))
		}
		if rec.Total != nil {
			setMoney(5, row, *rec.Total)
		}
		row++
		for _, item := range rec.LineItems {
			running = running.Add(item.Amount)
			set(4, row, item.Description)
			setMoney(5, row, item.Amount)
			setMoney(6, row, running)
			row++
		}
	}

	printRange := t.PrintRange()
	_ = f.SetDefinedName(&excelize.DefinedName{
		Name:     "_xlnm.Print_Area",
		RefersTo: fmt.Sprintf("'%s'!$A$1:$%s$%d", t.Sheet, t.LastCol, t.MaxRow),
		Scope:    t.Sheet,
	})

	finalPath, err := writeAtomic(f, outputPath)
	if err != nil {
		return internal.SheetArtifact{}, err
	}

	return internal.SheetArtifact{Path: finalPath, PrintRange: printRange, Rows: row - 1}, nil
}

func openTemplate(t Template) (*excelize.File, error) {
	if t.Path == "" {
		f := excelize.NewFile()
		defaultSheet := f.GetSheetName(0)
		if defaultSheet != t.Sheet {
			_ = f.SetSheetName(defaultSheet, t.Sheet)
		}
		return f, nil
	}
	f, err := excelize.OpenFile(t.Path)
	if err != nil {
		return nil, fmt.Errorf("open template %s: %w", t.Path, err)
	}
	return f, nil
}

// writeAtomic saves to a temp path in the target directory and renames into
// place, picking a suffixed name when the derived one already exists.
func writeAtomic(f *excelize.File, outputPath string) (string, error) {
	dir := filepath.Dir(outputPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", err
	}

	finalPath := uniquePath(outputPath)
	tmpPath := finalPath + ".tmp"
	if err := f.SaveAs(tmpPath); err != nil {
		return "", err
	}
	if err := os.Rename(tmpPath, finalPath); err != nil {
		_ = os.Remove(tmpPath)
		return "", err
	}
	return finalPath, nil
}

func uniquePath(path string) string {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return path
	}
	ext := filepath.Ext(path)
	base := strings.TrimSuffix(path, ext)
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s_%d%s", base, i, ext)
		if _, err := os.Stat(candidate); os.IsNotExist(err) {
			return candidate
		}
	}
}

// ArtifactName derives the per-batch file name; continuations get a part
// suffix.
func ArtifactName(batchID string, part, parts int) string {
	short := batchID
	if len(short) > 8 {
		short = short[:8]
	}
	if parts > 1 {
		return fmt.Sprintf("route_sheet_%s_p%d.xlsx", short, part+1)
	}
	return fmt.Sprintf("route_sheet_%s.xlsx", short)
}

// FormatBatchTotal is the display form used in CLI summaries.
func FormatBatchTotal(sheet internal.RouteSheet) string {
	return util.FormatAmount(sheet.Total)
}
