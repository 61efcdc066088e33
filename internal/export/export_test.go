package export

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/philipparndt/printquote/pkg/analysis"
	"github.com/philipparndt/printquote/pkg/pricing"
)

func sampleQuote(t *testing.T) (analysis.Geometry, pricing.Result) {
	t.Helper()
	g := analysis.Geometry{
		Dimensions: analysis.Dimensions{Width: 40, Depth: 25.5, Height: 12},
		VolumeCM3:  6.25,
		Triangles:  1480,
		Format:     analysis.FormatBinary,
	}
	res, err := pricing.Estimate(pricing.DefaultCatalog(), pricing.Input{
		Geometry: g,
		Settings: pricing.DefaultSettings(),
		Today:    time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	return g, res
}

func TestQuotePDF(t *testing.T) {
	g, res := sampleQuote(t)
	var buf bytes.Buffer

	err := QuotePDF(&buf, QuoteSheet{
		Reference: "3f1c2a9e-0000-4000-8000-000000000001",
		ShopName:  "Layer Lab",
		FileName:  "bracket.stl",
		CreatedAt: time.Date(2026, 10, 17, 0, 0, 0, 0, time.UTC),
		Geometry:  g,
		Settings:  pricing.DefaultSettings(),
		Result:    res,
		Catalog:   pricing.DefaultCatalog(),
	})
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(buf.Bytes(), []byte("%PDF-")))
	assert.Greater(t, buf.Len(), 1000)
}

func TestQuotePDFRequiresReference(t *testing.T) {
	err := QuotePDF(&bytes.Buffer{}, QuoteSheet{})
	assert.Error(t, err)
}

func TestOptionName(t *testing.T) {
	c := pricing.DefaultCatalog()
	assert.Equal(t, "High detail", optionName(c.Qualities, "high_detail"))
	assert.Equal(t, "Parcel locker", optionName(c.Deliveries, "parcel_locker"))
	assert.Equal(t, "mystery", optionName(c.Materials, "mystery"))
}

func TestQuotesXLSX(t *testing.T) {
	g, res := sampleQuote(t)
	var buf bytes.Buffer

	err := QuotesXLSX(&buf, []QuoteRow{
		{File: "a.stl", Geometry: g, Result: res},
		{File: "b.stl", Geometry: analysis.Placeholder(), Err: errors.New("unknown material")},
	})
	require.NoError(t, err)

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()

	rows, err := f.GetRows(quotesSheet)
	require.NoError(t, err)
	require.Len(t, rows, 4)

	assert.Equal(t, "File", rows[0][0])
	assert.Equal(t, "Grand total", rows[0][grandTotalColumn-1])
	assert.Equal(t, "a.stl", rows[1][0])
	assert.Equal(t, "calculated", rows[1][14])
	assert.Equal(t, "b.stl", rows[2][0])
	assert.True(t, strings.Contains(rows[2][len(rows[2])-1], "unknown material"))
	assert.Equal(t, "Total", rows[3][0])

	formula, err := f.GetCellFormula(quotesSheet, "N4")
	require.NoError(t, err)
	assert.Equal(t, "SUM(N2:N3)", formula)
}

func TestQuotesXLSXEmpty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, QuotesXLSX(&buf, nil))

	f, err := excelize.OpenReader(&buf)
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(quotesSheet)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
}
