package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/avakara/ewaste-platform/internal/model"
)

const fontName = "Helvetica"

type Generator struct {
	translate func(string) string
}

// NewGenerator uses the core Helvetica font; text is transcoded to cp1252 before drawing.
func NewGenerator() *Generator {
	pdf := gofpdf.New("P", "mm", "A4", "")
	return &Generator{translate: pdf.UnicodeTranslatorFromDescriptor("")}
}

func (g *Generator) Generate(doc model.Certificate) ([]byte, error) {
	if doc.Request.Status != model.RequestStatusCompleted {
		return nil, fmt.Errorf("request %s is not completed", doc.Request.ID)
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(20, 20, 20)
	pdf.AddPage()
	tr := g.translate

	pdf.SetFont(fontName, "B", 18)
	pdf.CellFormat(0, 12, "Certificate of E-Waste Recycling", "", 1, "C", false, 0, "")
	pdf.SetFont(fontName, "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("Request %s, issued %s", doc.Request.ID, formatDate(doc.IssuedAt))), "", 1, "C", false, 0, "")
	pdf.Ln(6)

	pdf.SetFont(fontName, "", 12)
	pdf.MultiCell(0, 7, tr(fmt.Sprintf(
		"This certifies that the electronic waste handed over by %s was collected on %s and processed by %s.",
		safeValue(doc.User.Name),
		formatDate(completedAt(doc.Request, model.MilestonePickupCompleted)),
		safeValue(doc.Agency.Name),
	)), "", "L", false)
	pdf.Ln(4)

	addPartyBlock(pdf, tr, "Recycler", []string{
		doc.Agency.Name,
		fmt.Sprintf("Address: %s", safeValue(doc.Agency.Address)),
		fmt.Sprintf("Phone: %s", safeValue(doc.Agency.Phone)),
	})
	pdf.Ln(2)
	addPartyBlock(pdf, tr, "Contributor", []string{
		doc.User.Name,
		fmt.Sprintf("Pickup address: %s", safeValue(doc.Request.PickupAddress)),
	})
	pdf.Ln(4)

	pdf.SetFont(fontName, "B", 12)
	pdf.CellFormat(0, 8, "Items recycled", "", 1, "L", false, 0, "")

	colWidths := []float64{110, 60}
	drawTableRow(pdf, tr, []string{"Waste type", "Quantity"}, colWidths, true)
	for _, item := range doc.Request.Items {
		drawTableRow(pdf, tr, []string{item.Type, fmt.Sprintf("%d", item.Quantity)}, colWidths, false)
	}

	pdf.Ln(2)
	pdf.SetFont(fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Total weight: %s kg", formatAmount(doc.Request.Weight, 3)), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Points awarded: %d", doc.PointsAwarded), "", 1, "R", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Processing completed: %s", formatDate(completedAt(doc.Request, model.MilestoneProcessingCompleted))), "", 1, "R", false, 0, "")

	pdf.Ln(8)
	signatureBlock(pdf, tr, "Authorised signatory", doc.Agency.ContactPerson)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func addPartyBlock(pdf *gofpdf.Fpdf, tr func(string) string, title string, lines []string) {
	pdf.SetFont(fontName, "B", 11)
	pdf.CellFormat(0, 6, title, "", 1, "L", false, 0, "")
	pdf.SetFont(fontName, "", 10)
	for _, line := range lines {
		pdf.MultiCell(0, 5, tr(line), "", "L", false)
	}
}

func drawTableRow(pdf *gofpdf.Fpdf, tr func(string) string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		align := "L"
		if i > 0 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, tr(col), "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func signatureBlock(pdf *gofpdf.Fpdf, tr func(string) string, label, head string) {
	pdf.SetFont(fontName, "", 11)
	pdf.CellFormat(0, 6, tr(fmt.Sprintf("%s: ______________________ /%s/", label, safeValue(head))), "", 1, "L", false, 0, "")
}

func completedAt(req model.Request, milestone model.Milestone) time.Time {
	for _, ev := range req.History {
		if ev.Milestone == milestone {
			return ev.CompletedAt
		}
	}
	return time.Time{}
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatAmount(value float64, precision int) string {
	format := fmt.Sprintf("%%.%df", precision)
	return fmt.Sprintf(format, value)
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("02 Jan 2006")
}
