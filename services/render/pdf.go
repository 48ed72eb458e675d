package rendersvc

import (
	"bytes"
	"io"
	"net/url"
	"strings"

	"github.com/jung-kurt/gofpdf"
	"github.com/pkg/errors"
	"github.com/skip2/go-qrcode"

	"github.com/trezcool/coachboard/core/tactic"
)

const (
	pdfMargin   = 15.0
	pdfPreviewH = 200.0
	pdfQRSize   = 40.0
	qrPixels    = 256
)

var categoryLabels = map[string]string{
	tactic.CategoryAttack:      "Attack",
	tactic.CategoryDefense:     "Defense",
	tactic.CategoryTransition:  "Transition",
	tactic.CategorySetPiece:    "Set piece",
	tactic.CategoryGoalkeeping: "Goalkeeping",
}

// PDFExporter lays a tactic out on an A4 sheet: metadata, the rendered preview and a QR code linking to the editor.
type PDFExporter struct {
	frontendBaseURL string
}

func NewPDFExporter(frontendBaseURL string) *PDFExporter {
	return &PDFExporter{frontendBaseURL: strings.TrimSuffix(frontendBaseURL, "/")}
}

// TacticURL is the editor address of a tactic.
func (e *PDFExporter) TacticURL(id string) string {
	return e.frontendBaseURL + "/tactics/editor?" + url.Values{"id": {id}}.Encode()
}

func (e *PDFExporter) Export(w io.Writer, t tactic.Tactic, preview []byte) error {
	qr, err := qrcode.Encode(e.TacticURL(t.ID), qrcode.Medium, qrPixels)
	if err != nil {
		return errors.Wrap(err, "encoding qr code")
	}

	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetTitle(t.Title, true)
	pdf.SetMargins(pdfMargin, pdfMargin, pdfMargin)
	pdf.AddPage()

	pdf.SetFont("Helvetica", "B", 18)
	pdf.CellFormat(0, 10, tr(t.Title), "", 1, "L", false, 0, "")

	visibility := "Private"
	if t.IsPublic {
		visibility = "Public"
	}
	pdf.SetFont("Helvetica", "", 11)
	pdf.SetTextColor(90, 90, 90)
	pdf.CellFormat(0, 6, tr(categoryLabel(t.Category)+"  |  "+visibility), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
	pdf.Ln(4)

	top := pdf.GetY()
	previewW := pdfPreviewH / 2
	opts := gofpdf.ImageOptions{ImageType: "PNG"}
	pdf.RegisterImageOptionsReader("preview", opts, bytes.NewReader(preview))
	pdf.ImageOptions("preview", pdfMargin, top, previewW, pdfPreviewH, false, opts, 0, "")

	pageW, _ := pdf.GetPageSize()
	sideX := pdfMargin + previewW + 10
	sideW := pageW - sideX - pdfMargin

	pdf.RegisterImageOptionsReader("qr", opts, bytes.NewReader(qr))
	pdf.ImageOptions("qr", pageW-pdfMargin-pdfQRSize, top, pdfQRSize, pdfQRSize, false, opts, 0, e.TacticURL(t.ID))

	if t.Description != "" {
		pdf.SetXY(sideX, top+pdfQRSize+8)
		pdf.SetFont("Helvetica", "B", 12)
		pdf.CellFormat(sideW, 7, "Notes", "", 2, "L", false, 0, "")
		pdf.SetFont("Helvetica", "", 10)
		pdf.MultiCell(sideW, 5, tr(t.Description), "", "L", false)
	}

	if err = pdf.Output(w); err != nil {
		return errors.Wrap(err, "writing pdf")
	}
	return nil
}

func categoryLabel(c string) string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return c
}
