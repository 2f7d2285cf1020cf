package catalog

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/trogers1052/stock-sentiment-service/internal/models"
)

//go:embed stocks.yaml
var defaultCatalog []byte

// DefaultExchangeSuffix is appended to bare tickers
const DefaultExchangeSuffix = ".NS"

// TrackedStock is a symbol the sweeper monitors
type TrackedStock struct {
	Symbol   string `yaml:"symbol" json:"symbol" validate:"required"`
	Name     string `yaml:"name" json:"name" validate:"required"`
	Exchange string `yaml:"exchange" json:"exchange"`
	Sector   string `yaml:"sector" json:"sector"`
}

type catalogFile struct {
	Stocks []TrackedStock `yaml:"stocks" validate:"required,min=1,dive"`
}

// Catalog is an immutable, ordered set of tracked stocks
type Catalog struct {
	stocks []TrackedStock
	index  map[string]int
}

// Default returns the built-in catalog of NSE large caps
func Default() (*Catalog, error) {
	return Parse(defaultCatalog)
}

// Load reads a catalog from a YAML file
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes a YAML catalog document
func Parse(data []byte) (*Catalog, error) {
	var file catalogFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse catalog: %w", err)
	}
	if err := validator.New().Struct(file); err != nil {
		return nil, models.Invalid("catalog: %v", err)
	}
	return New(file.Stocks...)
}

// New builds a catalog from the given stocks. Symbols are normalized and must be unique.
func New(stocks ...TrackedStock) (*Catalog, error) {
	c := &Catalog{
		stocks: make([]TrackedStock, 0, len(stocks)),
		index:  make(map[string]int, len(stocks)),
	}
	for _, s := range stocks {
		symbol, err := NormalizeSymbol(s.Symbol)
		if err != nil {
			return nil, err
		}
		if _, dup := c.index[symbol]; dup {
			return nil, models.Invalid("duplicate symbol %s in catalog", symbol)
		}
		s.Symbol = symbol
		c.index[symbol] = len(c.stocks)
		c.stocks = append(c.stocks, s)
	}
	return c, nil
}

// Stocks returns a copy of the tracked stocks in catalog order
func (c *Catalog) Stocks() []TrackedStock {
	out := make([]TrackedStock, len(c.stocks))
	copy(out, c.stocks)
	return out
}

// Lookup finds a tracked stock by symbol
func (c *Catalog) Lookup(symbol string) (TrackedStock, bool) {
	i, ok := c.index[strings.ToUpper(strings.TrimSpace(symbol))]
	if !ok {
		return TrackedStock{}, false
	}
	return c.stocks[i], true
}

// Len returns the number of tracked stocks
func (c *Catalog) Len() int {
	return len(c.stocks)
}

// NormalizeSymbol upper-cases a ticker and appends the NSE suffix when no
// exchange suffix is present.
func NormalizeSymbol(symbol string) (string, error) {
	s := strings.ToUpper(strings.TrimSpace(symbol))
	if s == "" {
		return "", models.Invalid("symbol is required")
	}
	if !strings.Contains(s, ".") {
		s += DefaultExchangeSuffix
	}
	return s, nil
}
