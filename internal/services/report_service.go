package services

import (
	"bytes"
	"context"
	"fmt"

	"recycle-backend/internal/models"
	"recycle-backend/internal/production"
	"recycle-backend/internal/timeutil"

	"github.com/jung-kurt/gofpdf/v2"
)

// ReportService renders shift summaries as printable PDFs for the
// plant office.
type ReportService struct {
	Shifts *ShiftService
}

func NewReportService(shifts *ShiftService) *ReportService {
	return &ReportService{Shifts: shifts}
}

// ShiftReport renders the per-station totals and by-products of a
// shift as a single-page A4 PDF.
func (s *ReportService) ShiftReport(ctx context.Context, shiftID int) ([]byte, error) {
	summary, err := s.Shifts.Summary(ctx, shiftID)
	if err != nil {
		return nil, err
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Shift %d Production Report", shiftID), false)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, "Production Shift Report")
	pdf.Ln(12)

	pdf.SetFont("Arial", "", 10)
	shift := summary.Shift
	pdf.Cell(0, 6, fmt.Sprintf("Shift ID: %d    Line: %d    Started: %s",
		shift.ID, shift.LineID,
		timeutil.ToIST(shift.StartTime).Format(timeutil.DateTimeLayout)))
	pdf.Ln(6)
	if shift.EndTime != nil {
		closedBy := "operator"
		if shift.AutoClosed {
			closedBy = "auto-close"
		}
		pdf.Cell(0, 6, fmt.Sprintf("Ended: %s (%s)",
			timeutil.ToIST(*shift.EndTime).Format(timeutil.DateTimeLayout), closedBy))
		pdf.Ln(6)
	}
	if shift.Remark != "" {
		pdf.Cell(0, 6, "Remark: "+shift.Remark)
		pdf.Ln(6)
	}
	pdf.Ln(4)

	pdf.SetFont("Arial", "B", 12)
	pdf.Cell(0, 8, "Station Output")
	pdf.Ln(9)

	pdf.SetFont("Arial", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	pdf.CellFormat(80, 7, "Station", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 7, "Bags", "1", 0, "R", true, 0, "")
	pdf.CellFormat(50, 7, "Total Weight (kg)", "1", 1, "R", true, 0, "")

	pdf.SetFont("Arial", "", 10)
	var totalBags int
	var totalWeight float64
	for _, t := range summary.Totals {
		pdf.CellFormat(80, 7, models.StationName(t.StationID), "1", 0, "L", false, 0, "")
		pdf.CellFormat(40, 7, fmt.Sprintf("%d", t.Bags), "1", 0, "R", false, 0, "")
		pdf.CellFormat(50, 7, fmt.Sprintf("%.2f", t.TotalWeight), "1", 1, "R", false, 0, "")
		totalBags += t.Bags
		totalWeight += t.TotalWeight
	}
	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(80, 7, "Total", "1", 0, "L", true, 0, "")
	pdf.CellFormat(40, 7, fmt.Sprintf("%d", totalBags), "1", 0, "R", true, 0, "")
	pdf.CellFormat(50, 7, fmt.Sprintf("%.2f", totalWeight), "1", 1, "R", true, 0, "")
	pdf.Ln(6)

	if len(summary.ByProducts) > 0 {
		pdf.SetFont("Arial", "B", 12)
		pdf.Cell(0, 8, "By-Products")
		pdf.Ln(9)

		pdf.SetFont("Arial", "B", 10)
		pdf.CellFormat(60, 7, "Station", "1", 0, "L", true, 0, "")
		pdf.CellFormat(50, 7, "Name", "1", 0, "L", true, 0, "")
		pdf.CellFormat(40, 7, "Category", "1", 0, "L", true, 0, "")
		pdf.CellFormat(20, 7, "Weight", "1", 1, "R", true, 0, "")

		pdf.SetFont("Arial", "", 10)
		for _, bp := range summary.ByProducts {
			pdf.CellFormat(60, 7, models.StationName(bp.StationID), "1", 0, "L", false, 0, "")
			pdf.CellFormat(50, 7, bp.Name, "1", 0, "L", false, 0, "")
			pdf.CellFormat(40, 7, bp.Category, "1", 0, "L", false, 0, "")
			pdf.CellFormat(20, 7, fmt.Sprintf("%.2f", bp.Weight), "1", 1, "R", false, 0, "")
		}
	}

	pdf.SetY(-20)
	pdf.SetFont("Arial", "I", 8)
	pdf.Cell(0, 6, "Generated "+timeutil.Now().Format(timeutil.DateTimeLayout)+" IST")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, production.Remote("render report", err)
	}
	return buf.Bytes(), nil
}
