package compress

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/aoi01/fridgesnap/internal/models"
)

// ItemsHeader is the column layout of an items CSV file.
var ItemsHeader = []string{"name", "category", "quantity", "price", "purchase_date", "expiry_date"}

// ItemRecord is one parsed CSV row. Row is the 1-based line number.
type ItemRecord struct {
	Row          int
	Name         string
	Category     string
	Quantity     int
	Price        decimal.Decimal
	PurchaseDate models.Date
	ExpiryDate   models.Date
}

// RowError points at the CSV line that could not be used.
type RowError struct {
	Row int
	Err error
}

func (e *RowError) Error() string {
	return fmt.Sprintf("row %d: %v", e.Row, e.Err)
}

func (e *RowError) Unwrap() error {
	return e.Err
}

// DecodeItems reads an items CSV. The header row is required; columns may be
// in any order and unknown columns are ignored. Empty quantity, price and
// dates are left zero.
func DecodeItems(r io.Reader) ([]ItemRecord, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	cr.FieldsPerRecord = -1

	header, err := cr.Read()
	if err == io.EOF {
		return nil, errors.New("empty CSV file")
	}
	if err != nil {
		return nil, &RowError{Row: 1, Err: err}
	}

	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))] = i
	}
	if _, ok := cols["name"]; !ok {
		return nil, &RowError{Row: 1, Err: errors.New("missing name column")}
	}

	var out []ItemRecord
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			var perr *csv.ParseError
			if errors.As(err, &perr) {
				return nil, &RowError{Row: perr.Line, Err: perr.Err}
			}
			return nil, err
		}
		row, _ := cr.FieldPos(0)

		get := func(col string) string {
			i, ok := cols[col]
			if !ok || i >= len(rec) {
				return ""
			}
			return strings.TrimSpace(rec[i])
		}
		if isBlank(rec) {
			continue
		}

		item := ItemRecord{Row: row, Name: get("name"), Category: get("category")}
		if s := get("quantity"); s != "" {
			if item.Quantity, err = strconv.Atoi(s); err != nil {
				return nil, &RowError{Row: row, Err: fmt.Errorf("invalid quantity %q", s)}
			}
		}
		if s := get("price"); s != "" {
			if item.Price, err = decimal.NewFromString(s); err != nil {
				return nil, &RowError{Row: row, Err: fmt.Errorf("invalid price %q", s)}
			}
		}
		if s := get("purchase_date"); s != "" {
			if item.PurchaseDate, err = models.ParseDate(s); err != nil {
				return nil, &RowError{Row: row, Err: err}
			}
		}
		if s := get("expiry_date"); s != "" {
			if item.ExpiryDate, err = models.ParseDate(s); err != nil {
				return nil, &RowError{Row: row, Err: err}
			}
		}
		out = append(out, item)
	}
}

// EncodeItems writes items as CSV with ItemsHeader.
func EncodeItems(w io.Writer, items []models.FoodItem) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(ItemsHeader); err != nil {
		return err
	}
	for _, it := range items {
		if err := cw.Write([]string{
			it.Name,
			string(it.Category),
			strconv.Itoa(it.Quantity),
			it.Price.String(),
			it.PurchaseDate.String(),
			it.ExpiryDate.String(),
		}); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func isBlank(rec []string) bool {
	for _, f := range rec {
		if strings.TrimSpace(f) != "" {
			return false
		}
	}
	return true
}
