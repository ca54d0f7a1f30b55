package export

import (
	"bytes"
	"fmt"

	building "Hestia/internal/calc/building"
	heatloss "Hestia/internal/calc/heatloss"
	repo "Hestia/internal/repo"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Heat Loss"

var resultHeader = []string{
	"Room",
	"Area (m²)",
	"Volume (m³)",
	"Transmission (W)",
	"Ventilation (W)",
	"Total (W)",
	"Design load (W)",
}

var columnWidths = []float64{28, 12, 12, 17, 16, 13, 16}

// GenerateWorkbook renders the stored building results as a styled worksheet:
// one row per room, a totals row, then the method and safety factor. Room
// dimensions come from the current room list, matched by id; rooms deleted
// since the calculation ran keep their result row with blank dimensions.
func GenerateWorkbook(rooms []repo.Room, result building.Result) ([]byte, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create sheet: %w", err)
	}
	f.DeleteSheet("Sheet1")
	f.SetActiveSheet(index)

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#E6F3FF"},
			Pattern: 1,
		},
		Border: []excelize.Border{
			{Type: "left", Color: "000000", Style: 1},
			{Type: "top", Color: "000000", Style: 1},
			{Type: "bottom", Color: "000000", Style: 1},
			{Type: "right", Color: "000000", Style: 1},
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create header style: %w", err)
	}
	totalStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Bold: true},
		Border: []excelize.Border{{Type: "top", Color: "000000", Style: 1}},
	})
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to create totals style: %w", err)
	}

	for col, header := range resultHeader {
		cell, err := excelize.CoordinatesToCellName(col+1, 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetCellValue(sheetName, cell, header); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header cell %s: %w", cell, err)
		}
		if err := f.SetCellStyle(sheetName, cell, cell, headerStyle); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set header style: %w", err)
		}
	}
	for i := range resultHeader {
		col, err := excelize.ColumnNumberToName(i + 1)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert column number: %w", err)
		}
		if err := f.SetColWidth(sheetName, col, col, columnWidths[i]); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to set column width: %w", err)
		}
	}

	dims := make(map[string]repo.Room, len(rooms))
	for _, room := range rooms {
		dims[room.ID] = room
	}

	var transmissionSum, ventilationSum float64
	row := 2
	for _, rr := range result.Rooms {
		name := rr.Name
		if name == "" {
			name = rr.ID
		}
		values := []any{name, nil, nil,
			rr.Result.TransmissionLoss, rr.Result.VentilationLoss,
			rr.Result.TotalHeatLoss, rr.Result.DesignHeatLoad,
		}
		if room, ok := dims[rr.ID]; ok {
			values[1] = room.Area
			values[2] = room.Volume
		}
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write row %d: %w", row, err)
		}
		transmissionSum += rr.Result.TransmissionLoss
		ventilationSum += rr.Result.VentilationLoss
		row++
	}

	totals := []any{"Building total", nil, nil,
		heatloss.Round(transmissionSum, heatloss.DefaultPrecision),
		heatloss.Round(ventilationSum, heatloss.DefaultPrecision),
		result.TotalHeatLoss, result.TotalDesignLoad,
	}
	startCell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetSheetRow(sheetName, startCell, &totals); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write totals row: %w", err)
	}
	endCell, err := excelize.CoordinatesToCellName(len(resultHeader), row)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to convert coordinates: %w", err)
	}
	if err := f.SetCellStyle(sheetName, startCell, endCell, totalStyle); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to set totals style: %w", err)
	}

	footer := [][]any{
		{"Method", result.Method},
		{"Safety factor", result.SafetyFactor},
	}
	row += 2
	for _, line := range footer {
		cell, err := excelize.CoordinatesToCellName(1, row)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to convert coordinates: %w", err)
		}
		if err := f.SetSheetRow(sheetName, cell, &line); err != nil {
			f.Close()
			return nil, fmt.Errorf("failed to write footer row: %w", err)
		}
		row++
	}

	if err := f.SetPanes(sheetName, &excelize.Panes{
		Freeze:      true,
		Split:       false,
		XSplit:      0,
		YSplit:      1,
		TopLeftCell: "A2",
		ActivePane:  "bottomLeft",
	}); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to freeze panes: %w", err)
	}

	var buf bytes.Buffer
	if _, err := f.WriteTo(&buf); err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to write to buffer: %w", err)
	}
	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("failed to close file: %w", err)
	}
	return buf.Bytes(), nil
}
