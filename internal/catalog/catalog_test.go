package catalog

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trogers1052/stock-sentiment-service/internal/models"
)

func TestDefault(t *testing.T) {
	c, err := Default()
	require.NoError(t, err)
	assert.Equal(t, 25, c.Len())

	stocks := c.Stocks()
	assert.Equal(t, "RELIANCE.NS", stocks[0].Symbol)
	assert.Equal(t, "POWERGRID.NS", stocks[24].Symbol)

	lt, ok := c.Lookup("LT.NS")
	require.True(t, ok)
	assert.Equal(t, "Larsen & Toubro Ltd", lt.Name)
	assert.Equal(t, "NSE", lt.Exchange)
	assert.Equal(t, "Infrastructure", lt.Sector)
}

func TestStocks_ReturnsCopy(t *testing.T) {
	c, err := New(TrackedStock{Symbol: "TCS.NS", Name: "Tata Consultancy Services Ltd"})
	require.NoError(t, err)

	stocks := c.Stocks()
	stocks[0].Name = "changed"

	got, ok := c.Lookup("TCS.NS")
	require.True(t, ok)
	assert.Equal(t, "Tata Consultancy Services Ltd", got.Name)
}

func TestNew_RejectsDuplicates(t *testing.T) {
	_, err := New(
		TrackedStock{Symbol: "infy", Name: "Infosys Ltd"},
		TrackedStock{Symbol: "INFY.NS", Name: "Infosys Ltd"},
	)
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestParse_RejectsEmptyCatalog(t *testing.T) {
	_, err := Parse([]byte("stocks: []\n"))
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestParse_RejectsMissingName(t *testing.T) {
	_, err := Parse([]byte("stocks:\n  - symbol: ITC.NS\n"))
	assert.ErrorIs(t, err, models.ErrValidation)
}

func TestLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "stocks.yaml")
	doc := "stocks:\n  - symbol: wipro\n    name: Wipro Ltd\n    exchange: NSE\n    sector: IT\n"
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o600))

	c, err := Load(path)
	require.NoError(t, err)
	got, ok := c.Lookup("wipro.ns")
	require.True(t, ok)
	assert.Equal(t, "WIPRO.NS", got.Symbol)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestNormalizeSymbol(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"reliance", "RELIANCE.NS"},
		{" TCS.NS ", "TCS.NS"},
		{"500325.BO", "500325.BO"},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeSymbol(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := NormalizeSymbol("   ")
	assert.ErrorIs(t, err, models.ErrValidation)
}
