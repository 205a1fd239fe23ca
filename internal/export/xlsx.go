package export

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"roomcal/internal/calendar"
	"roomcal/internal/models"

	"github.com/xuri/excelize/v2"
)

const sheetName = "Bookings"

var xlsxHeaders = []string{
	"Date", "Time", "Title", "Room", "Building", "Department", "Status", "Recurrence", "Booked by",
}

// WriteMonthXLSX пишет бронирования месяца в один лист Excel
func WriteMonthXLSX(w io.Writer, year int, month time.Month, occs []models.Occurrence) error {
	f, err := buildMonthWorkbook(year, month, occs)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write workbook: %w", err)
	}
	return nil
}

// SaveMonthXLSX сохраняет файл в dir и возвращает путь к нему
func SaveMonthXLSX(dir string, year int, month time.Month, occs []models.Occurrence) (string, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create export directory: %w", err)
	}

	f, err := buildMonthWorkbook(year, month, occs)
	if err != nil {
		return "", err
	}
	defer f.Close()

	filePath := filepath.Join(dir, FileName(year, month, "xlsx"))
	if err := f.SaveAs(filePath); err != nil {
		return "", fmt.Errorf("save workbook: %w", err)
	}
	return filePath, nil
}

// FileName is the attachment name of a month export.
func FileName(year int, month time.Month, ext string) string {
	return fmt.Sprintf("bookings_%04d-%02d.%s", year, int(month), ext)
}

func buildMonthWorkbook(year int, month time.Month, occs []models.Occurrence) (*excelize.File, error) {
	f := excelize.NewFile()

	index, err := f.NewSheet(sheetName)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	_ = f.DeleteSheet("Sheet1")

	first, last := calendar.MonthRange(year, month)

	// Заголовок периода
	_ = f.SetCellValue(sheetName, "A1", fmt.Sprintf("%s %d: %s - %s",
		month.String(), year, first.Format("02.01.2006"), last.Format("02.01.2006")))
	lastCol, _ := excelize.ColumnNumberToName(len(xlsxHeaders))
	_ = f.MergeCell(sheetName, "A1", lastCol+"1")
	titleStyle, _ := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 14},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	_ = f.SetCellStyle(sheetName, "A1", "A1", titleStyle)

	headerStyle, _ := f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#DDEBF7"}, Pattern: 1},
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	for i, h := range xlsxHeaders {
		cell, _ := excelize.CoordinatesToCellName(i+1, 2)
		_ = f.SetCellValue(sheetName, cell, h)
		_ = f.SetCellStyle(sheetName, cell, cell, headerStyle)
	}

	styles := make(map[string]int)
	row := 3
	for _, o := range sortedOccurrences(occs) {
		values := []interface{}{
			o.DateKey(),
			calendar.SlotLabel(calendar.FormatTime(o.StartTime), calendar.FormatTime(o.EndTime)),
			o.Title,
			o.RoomName,
			o.BuildingName,
			string(o.Department),
			string(o.Status),
			o.Recurring.String(),
			o.BookerName(),
		}
		cell, _ := excelize.CoordinatesToCellName(1, row)
		if err := f.SetSheetRow(sheetName, cell, &values); err != nil {
			f.Close()
			return nil, fmt.Errorf("write row %d: %w", row, err)
		}

		// Заливка цветом отдела
		deptCell, _ := excelize.CoordinatesToCellName(6, row)
		if styleID, err := departmentStyle(f, styles, o.Department.Color()); err == nil {
			_ = f.SetCellStyle(sheetName, deptCell, deptCell, styleID)
		}
		row++
	}

	_ = f.SetColWidth(sheetName, "A", "A", 12)
	_ = f.SetColWidth(sheetName, "B", "B", 22)
	_ = f.SetColWidth(sheetName, "C", "C", 30)
	_ = f.SetColWidth(sheetName, "D", lastCol, 18)

	return f, nil
}

func departmentStyle(f *excelize.File, cache map[string]int, color string) (int, error) {
	if id, ok := cache[color]; ok {
		return id, nil
	}
	id, err := f.NewStyle(&excelize.Style{
		Fill: excelize.Fill{Type: "pattern", Color: []string{color}, Pattern: 1},
	})
	if err != nil {
		return 0, err
	}
	cache[color] = id
	return id, nil
}
