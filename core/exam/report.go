package exam

import (
	"io"
	"sort"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"

	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/user"
)

var reportColumns = []struct {
	title string
	width float64
	align string
}{
	{"Exam", 60, "L"},
	{"Subject", 50, "L"},
	{"Marks", 25, "R"},
	{"%", 25, "R"},
	{"Grade", 20, "C"},
}

// writeReport renders an A4 report card of the results of student.
func writeReport(w io.Writer, student user.User, results []Result) error {
	sort.SliceStable(results, func(i, j int) bool {
		if results[i].PublishedAt.Equal(results[j].PublishedAt) {
			return results[i].SubjectName < results[j].SubjectName
		}
		return results[i].PublishedAt.Before(results[j].PublishedAt)
	})

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetTitle(core.Conf.AppName+" - Report Card", true)
	pdf.SetAuthor(core.Conf.AppName, true)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(0, 10, core.Conf.AppName+" Report Card", "", 1, "C", false, 0, "")
	pdf.SetFont("Helvetica", "", 11)
	pdf.CellFormat(0, 7, "Student: "+student.Name, "", 1, "L", false, 0, "")
	pdf.CellFormat(0, 7, "Date: "+core.DateOf(core.NowFunc(), core.Conf.Location()).String(), "", 1, "L", false, 0, "")
	pdf.Ln(4)

	// header
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetFillColor(230, 230, 230)
	for _, col := range reportColumns {
		pdf.CellFormat(col.width, 8, col.title, "1", 0, col.align, true, 0, "")
	}
	pdf.Ln(-1)

	pdf.SetFont("Helvetica", "", 10)
	if len(results) == 0 {
		pdf.CellFormat(0, 8, "No results published yet.", "1", 1, "C", false, 0, "")
	}
	for _, r := range results {
		cells := []string{
			r.ExamName,
			r.SubjectName,
			r.Marks.String() + " / " + r.MaxMarks.String(),
			r.Percentage.StringFixed(1),
			r.Grade,
		}
		for i, col := range reportColumns {
			pdf.CellFormat(col.width, 8, cells[i], "1", 0, col.align, false, 0, "")
		}
		pdf.Ln(-1)
	}

	if err := pdf.Output(w); err != nil {
		return errors.Wrap(err, "rendering report")
	}
	return nil
}
