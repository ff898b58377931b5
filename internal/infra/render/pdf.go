package render

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"enrollment-docgen/internal/domain"
	"enrollment-docgen/internal/domain/model"
	"enrollment-docgen/internal/domain/ports/adapter"
)

var _ adapter.DocumentRenderer = (*PDFRenderer)(nil)

// PDFRenderer produces the enrollment declaration as an A4 PDF. Pure
// in-memory transform; any failure is deterministic for a given student.
type PDFRenderer struct {
	institution string
	city        string
}

func NewPDFRenderer(institution, city string) *PDFRenderer {
	if institution == "" {
		institution = "Academic Office"
	}
	if city == "" {
		city = "Porto Alegre"
	}
	return &PDFRenderer{institution: institution, city: city}
}

func (r *PDFRenderer) ContentType() string { return "application/pdf" }

func (r *PDFRenderer) Render(student *model.Student) ([]byte, error) {
	if student == nil {
		return nil, fmt.Errorf("%w: nil student", domain.ErrRender)
	}
	if strings.TrimSpace(student.Name) == "" || strings.TrimSpace(student.Course) == "" {
		return nil, fmt.Errorf("%w: student %q missing name or course", domain.ErrRender, student.ID)
	}

	pdf := fpdf.New("P", "pt", "A4", "")
	pdf.SetMargins(50, 50, 50)
	pdf.SetAutoPageBreak(true, 50)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 20)
	pdf.CellFormat(0, 24, "ENROLLMENT DECLARATION", "", 1, "C", false, 0, "")
	pdf.Ln(24)

	pdf.SetFont("Helvetica", "", 12)
	line := func(label, value string) {
		pdf.CellFormat(0, 18, fmt.Sprintf("%s: %s", label, value), "", 1, "L", false, 0, "")
		pdf.Ln(4)
	}
	line("Name", student.Name)
	line("Enrollment ID", student.ID)
	line("Course", student.Course)
	if student.Email != "" {
		line("E-mail", student.Email)
	}
	if student.Phone != "" {
		line("Phone", student.Phone)
	}

	pdf.Ln(24)
	pdf.SetFont("Helvetica", "", 11)
	pdf.MultiCell(0, 16, fmt.Sprintf(
		"We hereby declare that the student identified above is regularly "+
			"enrolled at this institution in the %s program.", student.Course),
		"", "J", false)

	pdf.Ln(32)
	pdf.SetFont("Helvetica", "", 10)
	pdf.CellFormat(0, 14, fmt.Sprintf("%s, %s", r.city, time.Now().Format("January 2, 2006")), "", 1, "C", false, 0, "")
	pdf.Ln(40)
	pdf.CellFormat(0, 14, "_______________________________", "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 14, r.institution, "", 1, "C", false, 0, "")

	pageW, pageH := pdf.GetPageSize()
	pdf.SetFont("Helvetica", "", 8)
	pdf.Text(pageW/2-110, pageH-40, "This document was generated automatically and is legally valid.")

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrRender, err)
	}
	return buf.Bytes(), nil
}
