package ingest

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/fashionstore/sales-ingest/internal/logging"
)

// Record is one typed row of the source extract.
type Record struct {
	SaleID     int64
	ItemID     int64
	SaleDate   time.Time
	CustomerID int64
	ProductID  int64

	FirstName  string
	LastName   string
	Email      string
	Gender     string
	AgeRange   string
	SignupDate time.Time // zero when absent or unparseable
	Country    string

	Channel  string
	Campaign string

	ProductName   string
	Category      string
	Brand         string
	Color         string
	Size          string
	CostPrice     float64
	OriginalPrice float64

	Quantity        int
	DiscountPercent float64
	TotalAmount     float64
}

// ParseResult holds the parsed rows plus counts for the run report.
// Dropped keeps the per-row reasons, with physical line numbers.
type ParseResult struct {
	Records   []Record
	RowsRead  int
	Malformed int
	Dropped   []*MalformedRecordError
}

func (r *ParseResult) drop(err *MalformedRecordError) {
	r.Malformed++
	r.Dropped = append(r.Dropped, err)
	logging.Warn().Int("line", err.Line).Str("reason", err.Reason).
		Msg("Dropping malformed record")
}

// Columns that must be present in the extract header.
var requiredColumns = []string{
	"sale_date", "sale_id", "item_id", "customer_id", "product_id",
	"channel", "channel_campaigns", "quantity", "discount_percent",
}

// Date layouts accepted for sale_date and signup_date values.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	time.RFC3339,
}

// ParseExtract reads the full CSV extract and returns its typed rows.
// Rows that cannot be parsed are logged, counted, and dropped; when
// the malformed fraction exceeds threshold the whole extract is
// rejected as corrupt. Parsing the same bytes twice yields the same
// result.
func ParseExtract(data []byte, threshold float64) (*ParseResult, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.TrimLeadingSpace = true

	header, err := r.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: unreadable header: %v", ErrSourceCorrupt, err)
	}

	cols := make(map[string]int, len(header))
	for i, name := range header {
		cols[strings.TrimSpace(strings.ToLower(name))] = i
	}
	for _, name := range requiredColumns {
		if _, ok := cols[name]; !ok {
			return nil, fmt.Errorf("%w: extract missing column %q", ErrSourceCorrupt, name)
		}
	}

	res := &ParseResult{}
	for {
		fields, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil && !errors.Is(err, csv.ErrFieldCount) {
			res.RowsRead++
			// No record to position on; the csv error carries the line.
			errLine := 0
			var pe *csv.ParseError
			if errors.As(err, &pe) {
				errLine = pe.Line
			}
			res.drop(&MalformedRecordError{Line: errLine, Reason: err.Error()})
			continue
		}

		res.RowsRead++
		// Physical line of the record start; quoted fields may span lines.
		line, _ := r.FieldPos(0)
		rec, perr := parseRecord(cols, fields, line)
		if perr != nil {
			res.drop(perr)
			continue
		}
		res.Records = append(res.Records, rec)
	}

	if res.RowsRead > 0 {
		rate := float64(res.Malformed) / float64(res.RowsRead)
		if rate > threshold {
			return nil, fmt.Errorf("%w: %d of %d rows malformed (threshold %.2f)",
				ErrSourceCorrupt, res.Malformed, res.RowsRead, threshold)
		}
	}

	return res, nil
}

// parseRecord converts one CSV row into a Record.
func parseRecord(cols map[string]int, fields []string, line int) (Record, *MalformedRecordError) {
	get := func(name string) string {
		idx, ok := cols[name]
		if !ok || idx >= len(fields) {
			return ""
		}
		return strings.TrimSpace(fields[idx])
	}

	fail := func(format string, args ...any) (Record, *MalformedRecordError) {
		return Record{}, &MalformedRecordError{Line: line, Reason: fmt.Sprintf(format, args...)}
	}

	var rec Record
	var err error

	if rec.SaleID, err = parseID(get("sale_id")); err != nil {
		return fail("sale_id: %v", err)
	}
	if rec.ItemID, err = parseID(get("item_id")); err != nil {
		return fail("item_id: %v", err)
	}
	if rec.CustomerID, err = parseID(get("customer_id")); err != nil {
		return fail("customer_id: %v", err)
	}
	if rec.ProductID, err = parseID(get("product_id")); err != nil {
		return fail("product_id: %v", err)
	}

	if rec.SaleDate, err = parseDate(get("sale_date")); err != nil {
		return fail("sale_date: %v", err)
	}
	// Unparseable signup dates become NULL rather than failing the row.
	rec.SignupDate, _ = parseDate(get("signup_date"))

	rec.Channel = get("channel")
	rec.Campaign = get("channel_campaigns")
	if rec.Channel == "" || rec.Campaign == "" {
		return fail("missing channel or campaign")
	}

	qty := get("quantity")
	q, err := strconv.Atoi(qty)
	if err != nil {
		return fail("quantity %q: not a number", qty)
	}
	if q < 1 {
		return fail("quantity %d: must be positive", q)
	}
	rec.Quantity = q

	if rec.DiscountPercent, err = parseDiscount(get("discount_percent")); err != nil {
		return fail("discount_percent: %v", err)
	}

	if rec.CostPrice, err = parseAmount(get("cost_price")); err != nil {
		return fail("cost_price: %v", err)
	}
	if rec.OriginalPrice, err = parseAmount(get("original_price")); err != nil {
		return fail("original_price: %v", err)
	}
	if rec.TotalAmount, err = parseAmount(get("total_amount")); err != nil {
		return fail("total_amount: %v", err)
	}

	rec.FirstName = get("first_name")
	rec.LastName = get("last_name")
	rec.Email = get("email")
	rec.Gender = get("gender")
	rec.AgeRange = get("age_range")
	rec.Country = get("country")
	rec.ProductName = get("product_name")
	rec.Category = get("category")
	rec.Brand = get("brand")
	rec.Color = get("color")
	rec.Size = get("size")

	return rec, nil
}

// parseID parses a required positive integer identifier.
func parseID(s string) (int64, error) {
	if s == "" {
		return 0, errors.New("missing")
	}
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not an integer", s)
	}
	return id, nil
}

// parseDate tries the accepted extract date layouts, returning the
// date truncated to midnight UTC.
func parseDate(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, errors.New("missing")
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC), nil
		}
	}
	return time.Time{}, fmt.Errorf("unparseable date %q", s)
}

// parseDiscount converts extract values like "12.50%" to the fraction
// 0.1250. A trailing percent sign is optional, comma decimal
// separators are accepted, the result is clamped to [0,1] and held at
// 4-decimal precision.
func parseDiscount(s string) (float64, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimSuffix(s, "%")
	if s == "" {
		return 0, nil
	}
	s = strings.ReplaceAll(s, ",", ".")

	pct, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a percentage", s)
	}

	d := pct / 100
	if d < 0 {
		d = 0
	}
	if d > 1 {
		d = 1
	}
	return math.Round(d*10000) / 10000, nil
}

// parseAmount parses a non-negative monetary value; empty means zero.
func parseAmount(s string) (float64, error) {
	if s == "" {
		return 0, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%q is not a number", s)
	}
	if v < 0 {
		return 0, fmt.Errorf("%v is negative", v)
	}
	return v, nil
}
