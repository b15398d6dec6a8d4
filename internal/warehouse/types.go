package warehouse

import "time"

// Customer is a business dimension keyed by an externally supplied
// identifier. Rows are immutable once inserted.
type Customer struct {
	ID         int64
	FirstName  string
	LastName   string
	Email      string
	Gender     string
	AgeRange   string
	SignupDate time.Time // zero means unknown
	CountryID  int32     // 0 means unknown
}

// Product is a business dimension keyed by an externally supplied
// identifier. Rows are immutable once inserted.
type Product struct {
	ID            int64
	Name          string
	CategoryID    int32
	BrandID       int32
	ColorID       int32
	SizeID        int32
	CostPrice     float64
	OriginalPrice float64
}

// Sale is the sale-level fact row.
type Sale struct {
	ID          int64
	Date        time.Time
	TotalAmount float64
	CustomerID  int64
	CampaignID  int32
}

// SaleItem is the line-item fact row.
type SaleItem struct {
	ID              int64
	SaleID          int64
	ProductID       int64
	Quantity        int
	DiscountPercent float64
}

// Outcome reports what an insert-if-absent operation did.
type Outcome int

const (
	// Inserted means a new row was written.
	Inserted Outcome = iota
	// Skipped means the natural key already existed and the row was
	// left untouched.
	Skipped
)

// String returns the outcome name.
func (o Outcome) String() string {
	if o == Inserted {
		return "inserted"
	}
	return "skipped"
}
