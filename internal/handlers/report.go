package handlers

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/evn/attendance_backendl/internal/attendance"
	"github.com/evn/attendance_backendl/internal/models"
	"github.com/evn/attendance_backendl/internal/pkg/response"
	"github.com/evn/attendance_backendl/internal/repositories"
)

type ReportHandler struct {
	ledger *attendance.Ledger
	staff  *repositories.StaffRepository
	loc    *time.Location
}

func NewReportHandler(ledger *attendance.Ledger, staff *repositories.StaffRepository, loc *time.Location) *ReportHandler {
	return &ReportHandler{ledger: ledger, staff: staff, loc: loc}
}

// Export streams an xlsx attendance report for the inclusive date range.
func (h *ReportHandler) Export(w http.ResponseWriter, r *http.Request) {
	from := r.URL.Query().Get("from")
	to := r.URL.Query().Get("to")
	fromDay, err := time.ParseInLocation("2006-01-02", from, h.loc)
	if err != nil {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid from date")
		return
	}
	toDay, err := time.ParseInLocation("2006-01-02", to, h.loc)
	if err != nil || toDay.Before(fromDay) {
		response.RespondWithError(w, http.StatusBadRequest, "Invalid to date")
		return
	}

	staff, err := h.staff.List(r.Context())
	if err != nil {
		respondDomainError(w, err)
		return
	}
	names := make(map[string]string, len(staff))
	for _, s := range staff {
		names[s.ID] = s.FirstName + " " + s.LastName
	}

	f := excelize.NewFile()
	defer f.Close()
	const sheet = "Attendance"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Date", "Staff", "Time In", "Time Out", "Overtime In", "Overtime Out",
		"Worked", "UnTime", "Forced Out"}
	for i, head := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, head)
	}

	row := 2
	for day := fromDay; !day.After(toDay); day = day.AddDate(0, 0, 1) {
		date := day.Format("2006-01-02")
		recs, err := h.ledger.ByDate(r.Context(), date)
		if err != nil {
			respondDomainError(w, err)
			return
		}
		for _, rec := range recs {
			name := names[rec.StaffID]
			if name == " " || name == "" {
				name = rec.StaffID
			}
			values := []any{
				rec.Date,
				name,
				stamp(rec.TimeIn, h.loc),
				stamp(rec.TimeOut, h.loc),
				stamp(rec.OvertimeIn, h.loc),
				stamp(rec.OvertimeOut, h.loc),
				response.FormatDuration(rec.WorkedSeconds()),
				response.FormatDuration(rec.UnTimeSeconds()),
				forcedMark(rec),
			}
			for i, v := range values {
				cell, _ := excelize.CoordinatesToCellName(i+1, row)
				f.SetCellValue(sheet, cell, v)
			}
			row++
		}
	}

	filename := fmt.Sprintf("attendance_%s_%s.xlsx", from, to)
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if err := f.Write(w); err != nil {
		log.Printf("[report] write xlsx: %v", err)
	}
}

func stamp(t *time.Time, loc *time.Location) string {
	if t == nil {
		return ""
	}
	return t.In(loc).Format("15:04")
}

func forcedMark(rec models.AttendanceRecord) string {
	if rec.IsForcedOut {
		return "yes"
	}
	return ""
}
