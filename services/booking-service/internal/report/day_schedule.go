// Package report renders schedules into files staff can hand around.
package report

import (
	"fmt"
	"io"
	"sort"

	"github.com/xuri/excelize/v2"

	"github.com/slotline/slotline/services/booking-service/internal/model"
	"github.com/slotline/slotline/services/booking-service/internal/schedule"
)

// dayRow is one printed line of the sheet, appointment or block.
type dayRow struct {
	start  int
	end    int
	kind   string
	detail string
	status string
}

// WriteDaySchedule renders a worker's day as an XLSX sheet, appointments and
// blocks interleaved in start order.
func WriteDaySchedule(w io.Writer, workerName, day string, appts []model.Appointment, blocks []model.CalendarBlock) error {
	rows := make([]dayRow, 0, len(appts)+len(blocks))
	for _, a := range appts {
		rows = append(rows, dayRow{
			start:  a.StartMinute,
			end:    a.EndMinute,
			kind:   "appointment",
			detail: a.ServiceName,
			status: string(a.Status),
		})
	}
	for _, b := range blocks {
		rows = append(rows, dayRow{
			start:  b.StartMinute,
			end:    b.EndMinute,
			kind:   "block",
			detail: b.Note,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].start < rows[j].start })

	f := excelize.NewFile()
	defer func() { _ = f.Close() }()

	sheet := day
	if len(sheet) > 31 {
		sheet = sheet[:31]
	}
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Start", "End", "Type", "Detail", "Status"}
	for i, col := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 1)
		if err != nil {
			return err
		}
		if err := f.SetCellValue(sheet, cell, col); err != nil {
			return err
		}
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		start, _ := excelize.CoordinatesToCellName(1, 1)
		end, _ := excelize.CoordinatesToCellName(len(headers), 1)
		_ = f.SetCellStyle(sheet, start, end, style)
	}
	if err := f.SetCellValue(sheet, "G1", fmt.Sprintf("%s / %s", workerName, day)); err != nil {
		return err
	}

	for i, row := range rows {
		values := []any{
			schedule.FormatClock(row.start),
			schedule.FormatClock(row.end),
			row.kind,
			row.detail,
			row.status,
		}
		for j, v := range values {
			cell, err := excelize.CoordinatesToCellName(j+1, i+2)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, v); err != nil {
				return err
			}
		}
	}
	return f.Write(w)
}
