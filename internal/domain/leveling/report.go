package leveling

import (
	"fmt"
	"io"

	"github.com/jung-kurt/gofpdf"
)

var scorecardColumns = []struct {
	title string
	width float64
	align string
}{
	{"Competency", 62, "L"},
	{"Required", 22, "C"},
	{"Assigned", 22, "C"},
	{"Weight", 20, "C"},
	{"Score", 22, "R"},
	{"Gap", 16, "C"},
}

// RenderScorecard writes a one-page PDF summary of a leveling.
func RenderScorecard(w io.Writer, lv Leveling) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(fmt.Sprintf("Competency leveling %d", lv.ID), false)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.Cell(0, 10, "Competency Leveling Scorecard")
	pdf.Ln(12)

	pdf.SetFont("Helvetica", "", 11)
	pdf.Cell(0, 7, fmt.Sprintf("Leveling #%d   Cycle %d   Status %s", lv.ID, lv.CycleID, lv.Status))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Employee %d   Supervisor %d   Department %d", lv.EmployeeID, lv.SupervisorID, lv.DepartmentID))
	pdf.Ln(6)
	pdf.Cell(0, 7, fmt.Sprintf("Last updated %s", lv.UpdatedAt.UTC().Format("2006-01-02 15:04 MST")))
	pdf.Ln(10)

	pdf.SetFont("Helvetica", "B", 10)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range scorecardColumns {
		pdf.CellFormat(col.width, 8, col.title, "1", 0, col.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	for _, item := range lv.Items {
		name := item.CompetencyName
		if name == "" {
			name = fmt.Sprintf("Competency %d", item.CompetencyID)
		}
		values := []string{
			name,
			fmt.Sprint(item.MPLRLevel),
			fmt.Sprint(item.AssignedLevel),
			fmt.Sprint(item.Weight),
			item.Score.String(),
			fmt.Sprint(item.AssignedLevel - item.MPLRLevel),
		}
		for i, col := range scorecardColumns {
			pdf.CellFormat(col.width, 7, values[i], "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	pdf.SetFont("Helvetica", "B", 10)
	pdf.CellFormat(106, 8, "Total", "1", 0, "L", true, 0, "")
	pdf.CellFormat(20, 8, fmt.Sprint(lv.TotalWeight), "1", 0, "C", true, 0, "")
	pdf.CellFormat(22, 8, lv.TotalScore.String(), "1", 0, "R", true, 0, "")
	pdf.CellFormat(16, 8, "", "1", 0, "C", true, 0, "")
	pdf.Ln(-1)

	if len(lv.Items) == 0 {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 10)
		pdf.Cell(0, 7, "No competencies are mapped to this employee's position.")
	}

	return pdf.Output(w)
}
