package upstream

import (
	"net/url"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// ProductFilters narrows a product listing. A nil field means "no constraint";
// zero values are never implied.
type ProductFilters struct {
	Category *string
	Search   *string
	MinPrice *decimal.Decimal
	MaxPrice *decimal.Decimal
	InStock  *bool
}

// IsZero reports whether no filter is set, so callers can serve cached
// unfiltered listings.
func (f ProductFilters) IsZero() bool {
	return f.Category == nil && f.Search == nil && f.MinPrice == nil && f.MaxPrice == nil && f.InStock == nil
}

func (f ProductFilters) encode() url.Values {
	values := url.Values{}
	if f.Category != nil {
		if trimmed := strings.TrimSpace(*f.Category); trimmed != "" {
			values.Set("category", trimmed)
		}
	}
	if f.Search != nil {
		if trimmed := strings.TrimSpace(*f.Search); trimmed != "" {
			values.Set("search", trimmed)
		}
	}
	if f.MinPrice != nil {
		values.Set("min_price", f.MinPrice.String())
	}
	if f.MaxPrice != nil {
		values.Set("max_price", f.MaxPrice.String())
	}
	if f.InStock != nil {
		values.Set("in_stock", strconv.FormatBool(*f.InStock))
	}
	return values
}
