package export

import (
	"fmt"
	"io"
	"math"

	"github.com/xuri/excelize/v2"

	"github.com/philipparndt/printquote/pkg/analysis"
	"github.com/philipparndt/printquote/pkg/pricing"
)

const quotesSheet = "Quotes"

// QuoteRow is one file of a batch quote
type QuoteRow struct {
	File     string
	Geometry analysis.Geometry
	Result   pricing.Result
	// Err is set when the file could not be priced
	Err error
}

var quoteColumns = []struct {
	title string
	width float64
}{
	{"File", 32}, {"Width mm", 10}, {"Depth mm", 10}, {"Height mm", 10},
	{"Volume cm3", 11}, {"Triangles", 10}, {"Weight g", 10}, {"Print time", 11},
	{"Unit price", 11}, {"Quantity", 9}, {"Discount %", 10}, {"Subtotal", 11},
	{"VAT", 10}, {"Grand total", 12}, {"Source", 13}, {"Ready by", 12}, {"Error", 30},
}

// grandTotalColumn is the 1-based column of "Grand total"
const grandTotalColumn = 14

// QuotesXLSX writes one row per file plus a totals row
func QuotesXLSX(w io.Writer, rows []QuoteRow) error {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), quotesSheet); err != nil {
		return err
	}
	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return err
	}
	money, err := f.NewStyle(&excelize.Style{NumFmt: 2})
	if err != nil {
		return err
	}

	for i, col := range quoteColumns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		if err := f.SetCellValue(quotesSheet, cell, col.title); err != nil {
			return err
		}
		name, _ := excelize.ColumnNumberToName(i + 1)
		if err := f.SetColWidth(quotesSheet, name, name, col.width); err != nil {
			return err
		}
	}
	if err := f.SetRowStyle(quotesSheet, 1, 1, bold); err != nil {
		return err
	}

	for i, row := range rows {
		if err := f.SetSheetRow(quotesSheet, fmt.Sprintf("A%d", i+2), rowValues(row)); err != nil {
			return fmt.Errorf("failed to write row for %s: %w", row.File, err)
		}
	}

	last := len(rows) + 1
	totalRow := last + 1
	gtCol, _ := excelize.ColumnNumberToName(grandTotalColumn)
	if err := f.SetCellValue(quotesSheet, fmt.Sprintf("A%d", totalRow), "Total"); err != nil {
		return err
	}
	totalCell := fmt.Sprintf("%s%d", gtCol, totalRow)
	if len(rows) > 0 {
		if err := f.SetCellFormula(quotesSheet, totalCell, fmt.Sprintf("SUM(%s2:%s%d)", gtCol, gtCol, last)); err != nil {
			return err
		}
	} else if err := f.SetCellValue(quotesSheet, totalCell, 0); err != nil {
		return err
	}
	if err := f.SetRowStyle(quotesSheet, totalRow, totalRow, bold); err != nil {
		return err
	}
	firstMoney, _ := excelize.ColumnNumberToName(9)
	if err := f.SetCellStyle(quotesSheet, firstMoney+"2", fmt.Sprintf("%s%d", gtCol, totalRow), money); err != nil {
		return err
	}
	if err := f.SetPanes(quotesSheet, &excelize.Panes{Freeze: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return err
	}

	return f.Write(w)
}

func rowValues(row QuoteRow) []any {
	g, r := row.Geometry, row.Result
	values := []any{
		row.File,
		round(g.Dimensions.Width, 2), round(g.Dimensions.Depth, 2), round(g.Dimensions.Height, 2),
		round(g.VolumeCM3, 1), g.Triangles,
	}
	if row.Err != nil {
		values = append(values, nil, nil, nil, nil, nil, nil, nil, nil, nil, nil, row.Err.Error())
		return values
	}
	return append(values,
		round(r.WeightG, 1), pricing.FormatHours(r.PrintTimeHours),
		round(r.UnitPrice, 2), r.Quantity, r.DiscountPercent, round(r.Subtotal, 2),
		round(r.VAT, 2), round(r.GrandTotal, 2), string(r.Source), r.EstimatedDate.Format("2006-01-02"), "",
	)
}

func round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
