package datagen

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"
)

// ExtractHeader is the column layout of a generated sales extract,
// matching what the ingestion parser expects.
var ExtractHeader = []string{
	"sale_date", "sale_id", "item_id", "customer_id",
	"first_name", "last_name", "email", "gender", "age_range",
	"signup_date", "country",
	"channel", "channel_campaigns",
	"product_id", "product_name", "category", "brand", "color", "size",
	"cost_price", "original_price",
	"quantity", "discount_percent", "total_amount",
}

// Reference data
var (
	channels = []string{"Online", "Store", "Mobile App", "Marketplace"}

	campaignNames = []string{
		"Summer Sale", "Winter Clearance", "New Season", "Flash Friday",
		"Loyalty Week", "Back To School",
	}

	categories = []string{
		"Dresses", "Shirts", "Trousers", "Shoes", "Accessories",
		"Outerwear", "Knitwear",
	}

	brands = []string{
		"Nordic Thread", "Velvet Lane", "Urban Stitch", "Mira & Co",
		"Atelier Nine", "Coastline",
	}

	colors = []string{"Black", "White", "Navy", "Red", "Beige", "Olive", "Grey"}

	sizeLabels = []string{"XS", "S", "M", "L", "XL"}

	genders = []string{"Female", "Male", "Other"}

	ageRanges = []string{"18-24", "25-34", "35-44", "45-54", "55+"}
)

// ExtractSpec controls sample extract generation.
type ExtractSpec struct {
	// Rows is the number of sale item rows to generate.
	Rows int

	// Days is the number of consecutive sale dates, starting at Start.
	Days int

	// Start is the first sale date.
	Start time.Time

	// Seed makes generation reproducible when non-zero.
	Seed uint64
}

type extractCustomer struct {
	id         int64
	firstName  string
	lastName   string
	email      string
	gender     string
	ageRange   string
	signupDate time.Time
	country    string
}

type extractProduct struct {
	id            int64
	name          string
	category      string
	brand         string
	color         string
	size          string
	costPrice     float64
	originalPrice float64
}

// GenerateExtract produces a CSV sales extract in memory. Sales carry
// one to three item rows each; customer and product attributes repeat
// consistently across rows so dimension dedup has something to do.
func GenerateExtract(spec ExtractSpec) ([]byte, error) {
	if spec.Rows < 1 {
		return nil, fmt.Errorf("extract rows must be positive")
	}
	if spec.Days < 1 {
		spec.Days = 1
	}

	var f *Faker
	if spec.Seed != 0 {
		f = NewFakerWithSeed(spec.Seed)
	} else {
		f = NewFaker()
	}

	customers := make([]extractCustomer, spec.Rows/4+1)
	for i := range customers {
		customers[i] = extractCustomer{
			id:         int64(1000 + i),
			firstName:  f.FirstName(),
			lastName:   f.LastName(),
			email:      fmt.Sprintf("%d.%s", 1000+i, f.Email()),
			gender:     Choose(f, genders),
			ageRange:   Choose(f, ageRanges),
			signupDate: f.DateRange(spec.Start.AddDate(-5, 0, 0), spec.Start),
			country:    f.Country(),
		}
	}

	products := make([]extractProduct, spec.Rows/3+1)
	for i := range products {
		cost := f.Price(5, 80)
		products[i] = extractProduct{
			id:            int64(5000 + i),
			name:          f.ProductName(),
			category:      Choose(f, categories),
			brand:         Choose(f, brands),
			color:         Choose(f, colors),
			size:          Choose(f, sizeLabels),
			costPrice:     cost,
			originalPrice: cost * f.Float64(1.2, 2.5),
		}
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	if err := w.Write(ExtractHeader); err != nil {
		return nil, err
	}

	saleID := int64(100000)
	itemID := int64(500000)
	written := 0
	for written < spec.Rows {
		saleID++
		saleDate := spec.Start.AddDate(0, 0, f.Int(0, spec.Days-1))
		customer := Choose(f, customers)
		channel := Choose(f, channels)
		campaign := Choose(f, campaignNames)

		itemCount := f.Int(1, 3)
		if written+itemCount > spec.Rows {
			itemCount = spec.Rows - written
		}

		type line struct {
			product  extractProduct
			quantity int
			discount float64
		}
		lines := make([]line, itemCount)
		total := 0.0
		for i := range lines {
			lines[i] = line{
				product:  Choose(f, products),
				quantity: f.Int(1, 4),
				discount: float64(f.Int(0, 40)) / 100,
			}
			total += float64(lines[i].quantity) * lines[i].product.originalPrice * (1 - lines[i].discount)
		}

		for _, ln := range lines {
			itemID++
			row := []string{
				saleDate.Format("2006-01-02"),
				strconv.FormatInt(saleID, 10),
				strconv.FormatInt(itemID, 10),
				strconv.FormatInt(customer.id, 10),
				customer.firstName,
				customer.lastName,
				customer.email,
				customer.gender,
				customer.ageRange,
				customer.signupDate.Format("2006-01-02"),
				customer.country,
				channel,
				campaign,
				strconv.FormatInt(ln.product.id, 10),
				ln.product.name,
				ln.product.category,
				ln.product.brand,
				ln.product.color,
				ln.product.size,
				fmt.Sprintf("%.2f", ln.product.costPrice),
				fmt.Sprintf("%.2f", ln.product.originalPrice),
				strconv.Itoa(ln.quantity),
				fmt.Sprintf("%.2f%%", ln.discount*100),
				fmt.Sprintf("%.2f", total),
			}
			if err := w.Write(row); err != nil {
				return nil, err
			}
			written++
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
