// Package certpdf renders completion certificates as landscape A4 PDFs.
package certpdf

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"
)

type Data struct {
	Number         string
	StudentName    string
	FormationTitle string
	IssuedAt       time.Time
	City           string
}

var errMissingNumber = errors.New("certificate number is required")

var frenchMonths = [...]string{
	"janvier", "février", "mars", "avril", "mai", "juin",
	"juillet", "août", "septembre", "octobre", "novembre", "décembre",
}

// Filename is the attachment name used for downloads.
func Filename(number string) string {
	return "Certificat-" + number + ".pdf"
}

func frenchDate(t time.Time) string {
	return fmt.Sprintf("%d %s %d", t.Day(), frenchMonths[t.Month()-1], t.Year())
}

// Render writes the certificate to w.
func Render(w io.Writer, data Data) error {
	if data.Number == "" {
		return errMissingNumber
	}
	city := data.City
	if city == "" {
		city = "Tunis"
	}

	pdf := fpdf.New("L", "mm", "A4", "")
	pdf.SetTitle("Certificat "+data.Number, true)
	pdf.SetAutoPageBreak(false, 0)
	pdf.AddPage()
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pageW, _ := pdf.GetPageSize()
	left, right := 18.0, 18.0
	width := pageW - left - right

	centered := func(y float64, style string, size float64, r, g, b int, text string) {
		pdf.SetFont("Helvetica", style, size)
		pdf.SetTextColor(r, g, b)
		pdf.SetXY(left, y)
		pdf.CellFormat(width, size*0.5, tr(text), "", 0, "C", false, 0, "")
	}

	centered(14, "B", 24, 0, 0, 0, "ASTBA FORMATION")
	centered(28, "", 10, 0, 0, 0, "Académie des Sciences et Technologies")

	pdf.SetFillColor(0x33, 0x41, 0x55)
	pdf.Rect(left, 42, width, 0.7, "F")

	centered(55, "B", 30, 0x1e, 0x29, 0x3b, "CERTIFICAT DE RÉUSSITE")
	centered(78, "", 16, 0, 0, 0, "Ce certificat est fièrement décerné à :")
	centered(92, "B", 28, 0x25, 0x63, 0xeb, strings.ToUpper(data.StudentName))
	centered(112, "", 16, 0, 0, 0, "Pour avoir validé avec succès tous les niveaux de la formation :")
	centered(126, "B", 24, 0x0f, 0x17, 0x2a, data.FormationTitle)

	pdf.SetTextColor(0, 0, 0)
	pdf.SetFont("Helvetica", "", 12)
	pdf.SetXY(35, 160)
	pdf.CellFormat(100, 6, tr(fmt.Sprintf("Fait à %s, le %s", city, frenchDate(data.IssuedAt))), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetXY(190, 160)
	pdf.CellFormat(80, 6, tr("Le Responsable de Formation"), "", 0, "L", false, 0, "")
	pdf.SetFont("Helvetica", "I", 10)
	pdf.SetXY(190, 175)
	pdf.CellFormat(80, 6, tr("(Signature numérique)"), "", 0, "L", false, 0, "")

	pdf.Rect(left, 184, width, 0.7, "F")
	centered(190, "", 9, 0x80, 0x80, 0x80, "ID Certificat: "+data.Number)

	if err := pdf.Output(w); err != nil {
		return fmt.Errorf("render certificate: %w", err)
	}
	return nil
}
