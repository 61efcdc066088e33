// Package export writes quotes as PDF sheets and XLSX workbooks.
package export

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/go-pdf/fpdf"
	qrcode "github.com/skip2/go-qrcode"

	"github.com/philipparndt/printquote/pkg/analysis"
	"github.com/philipparndt/printquote/pkg/pricing"
)

// Page layout constants (A4 portrait in mm)
const (
	pageWidth    = 210.0
	marginLeft   = 18.0
	marginRight  = 18.0
	marginTop    = 18.0
	contentWidth = pageWidth - marginLeft - marginRight
	labelWidth   = 60.0
	rowHeight    = 6.5
	qrSize       = 32.0
)

// QuoteSheet is everything printed on a quote PDF
type QuoteSheet struct {
	Reference string
	ShopName  string
	FileName  string
	CreatedAt time.Time
	Geometry  analysis.Geometry
	Settings  pricing.Settings
	Result    pricing.Result
	Catalog   pricing.Catalog
	// Thumbnail is an optional PNG of the model
	Thumbnail []byte
}

// qrPayload is encoded into the sheet's QR code
type qrPayload struct {
	Reference  string `json:"ref"`
	GrandTotal string `json:"total"`
	Quantity   int    `json:"qty"`
}

// QuotePDF renders a one-page quote sheet
func QuotePDF(w io.Writer, sheet QuoteSheet) error {
	if sheet.Reference == "" {
		return errors.New("export: quote reference is required")
	}
	if sheet.CreatedAt.IsZero() {
		sheet.CreatedAt = time.Now()
	}
	display := sheet.Result.Display()

	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(marginLeft, marginTop, marginRight)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	// Header
	pdf.SetFont("Helvetica", "B", 18)
	title := "Print quote"
	if sheet.ShopName != "" {
		title = sheet.ShopName + " - print quote"
	}
	pdf.CellFormat(contentWidth-qrSize, 10, title, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.SetTextColor(100, 100, 100)
	pdf.CellFormat(contentWidth-qrSize, 5, "Reference "+sheet.Reference, "", 1, "L", false, 0, "")
	pdf.CellFormat(contentWidth-qrSize, 5, "Issued "+sheet.CreatedAt.Format("2006-01-02"), "", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	if err := placeQR(pdf, sheet, display); err != nil {
		return err
	}
	if len(sheet.Thumbnail) > 0 {
		pdf.RegisterImageOptionsReader("thumbnail", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(sheet.Thumbnail))
		pdf.ImageOptions("thumbnail", pageWidth-marginRight-qrSize, marginTop+qrSize+4, qrSize, qrSize, false,
			fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	}

	pdf.SetY(marginTop + 30)
	section(pdf, "Model")
	g := sheet.Geometry
	rows(pdf, [][2]string{
		{"File", sheet.FileName},
		{"Dimensions", fmt.Sprintf("%.1f x %.1f x %.1f mm", g.Dimensions.Width, g.Dimensions.Depth, g.Dimensions.Height)},
		{"Volume", g.VolumeString() + " cm3"},
		{"Triangles", fmt.Sprintf("%d", g.Triangles)},
	})

	section(pdf, "Print settings")
	s := sheet.Settings
	rows(pdf, [][2]string{
		{"Material", optionName(sheet.Catalog.Materials, s.Material)},
		{"Quality", optionName(sheet.Catalog.Qualities, s.Quality)},
		{"Infill", fmt.Sprintf("%d%% %s", s.InfillPercent, optionName(sheet.Catalog.Patterns, s.Pattern))},
		{"Walls", fmt.Sprintf("%d", s.Walls)},
		{"Turnaround", optionName(sheet.Catalog.RushTiers, s.Rush)},
		{"Delivery", optionName(sheet.Catalog.Deliveries, s.Delivery)},
	})

	section(pdf, "Estimate")
	rows(pdf, [][2]string{
		{"Filament", display.WeightG + " g"},
		{"Print time", display.PrintTime},
		{"Source", string(display.Source)},
		{"Ready by", display.EstimatedDate},
	})

	section(pdf, "Price")
	rows(pdf, [][2]string{
		{"Unit price", display.UnitPrice},
		{"Quantity", fmt.Sprintf("%d", display.Quantity)},
		{"Line total", display.LineTotal},
		{"Discount (" + display.DiscountPercent + "%)", "-" + display.DiscountAmount},
		{"Rush multiplier", "x" + display.RushMultiplier},
		{"Delivery", display.DeliveryFee},
		{"Subtotal", display.Subtotal},
		{fmt.Sprintf("VAT (%.0f%%)", sheet.Catalog.VATRate*100), display.VAT},
	})

	pdf.SetFont("Helvetica", "B", 12)
	pdf.SetFillColor(235, 242, 250)
	pdf.CellFormat(labelWidth, rowHeight+2, "Total", "T", 0, "L", true, 0, "")
	pdf.CellFormat(contentWidth-labelWidth, rowHeight+2, display.GrandTotal, "T", 1, "R", true, 0, "")

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to render quote pdf: %w", err)
	}
	return pdf.Output(w)
}

func placeQR(pdf *fpdf.Fpdf, sheet QuoteSheet, display pricing.Display) error {
	data, err := json.Marshal(qrPayload{Reference: sheet.Reference, GrandTotal: display.GrandTotal, Quantity: display.Quantity})
	if err != nil {
		return fmt.Errorf("failed to marshal qr payload: %w", err)
	}
	png, err := qrcode.Encode(string(data), qrcode.Medium, 256)
	if err != nil {
		return fmt.Errorf("failed to generate QR code: %w", err)
	}
	pdf.RegisterImageOptionsReader("qr", fpdf.ImageOptions{ImageType: "PNG"}, bytes.NewReader(png))
	pdf.ImageOptions("qr", pageWidth-marginRight-qrSize, marginTop, qrSize, qrSize, false, fpdf.ImageOptions{ImageType: "PNG"}, 0, "")
	return nil
}

func section(pdf *fpdf.Fpdf, title string) {
	pdf.Ln(3)
	pdf.SetFont("Helvetica", "B", 11)
	pdf.SetTextColor(40, 90, 160)
	pdf.CellFormat(contentWidth, 7, title, "B", 1, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}

func rows(pdf *fpdf.Fpdf, pairs [][2]string) {
	pdf.SetFont("Helvetica", "", 10)
	for _, p := range pairs {
		pdf.CellFormat(labelWidth, rowHeight, p[0], "", 0, "L", false, 0, "")
		pdf.CellFormat(contentWidth-labelWidth, rowHeight, p[1], "", 1, "R", false, 0, "")
	}
}

// named is any catalog entry with a display name
type named interface {
	pricing.Material | pricing.QualityPreset | pricing.InfillPattern | pricing.RushTier | pricing.DeliveryMethod
}

func optionName[V named](table map[string]V, key string) string {
	v, ok := table[key]
	if !ok {
		return key
	}
	switch e := any(v).(type) {
	case pricing.Material:
		return e.Name
	case pricing.QualityPreset:
		return e.Name
	case pricing.InfillPattern:
		return e.Name
	case pricing.RushTier:
		return e.Name
	case pricing.DeliveryMethod:
		return e.Name
	}
	return key
}
