package warehouse

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

// resolveSimple is the atomic insert-or-fetch primitive for dimensions
// with a single natural key column. The CTE inserts when the key is
// absent and the trailing select covers the case where another
// transaction already holds the row, so two concurrent runs can never
// both create it.
func (t *runTx) resolveSimple(ctx context.Context, table, idCol, nameCol, value string) (int32, error) {
	sql := fmt.Sprintf(`
        WITH ins AS (
            INSERT INTO %[1]s (%[3]s)
            VALUES ($1)
            ON CONFLICT (%[3]s) DO NOTHING
            RETURNING %[2]s
        )
        SELECT %[2]s FROM ins
        UNION ALL
        SELECT %[2]s FROM %[1]s WHERE %[3]s = $1
        LIMIT 1
    `, table, idCol, nameCol)

	var id int32
	if err := t.tx.QueryRow(ctx, sql, value).Scan(&id); err != nil {
		return 0, &ResolutionError{Dimension: table, Key: value, Err: err}
	}
	return id, nil
}

// ResolveChannel resolves or creates a channel by name.
func (t *runTx) ResolveChannel(ctx context.Context, name string) (int32, error) {
	return t.resolveSimple(ctx, "dim_channel", "channel_id", "channel_name", name)
}

// ResolveCategory resolves or creates a category by name.
func (t *runTx) ResolveCategory(ctx context.Context, name string) (int32, error) {
	return t.resolveSimple(ctx, "dim_category", "category_id", "category_name", name)
}

// ResolveBrand resolves or creates a brand by name.
func (t *runTx) ResolveBrand(ctx context.Context, name string) (int32, error) {
	return t.resolveSimple(ctx, "dim_brand", "brand_id", "brand_name", name)
}

// ResolveColor resolves or creates a color by name.
func (t *runTx) ResolveColor(ctx context.Context, name string) (int32, error) {
	return t.resolveSimple(ctx, "dim_color", "color_id", "color_name", name)
}

// ResolveSize resolves or creates a size by label.
func (t *runTx) ResolveSize(ctx context.Context, label string) (int32, error) {
	return t.resolveSimple(ctx, "dim_size", "size_id", "size_label", label)
}

// ResolveCountry resolves or creates a country by name.
func (t *runTx) ResolveCountry(ctx context.Context, name string) (int32, error) {
	return t.resolveSimple(ctx, "dim_country", "country_id", "country_name", name)
}

// ResolveCampaign resolves or creates a campaign under its channel.
// The natural key is the compound (channel_id, campaign_name); the
// channel must already be resolved.
func (t *runTx) ResolveCampaign(ctx context.Context, channelID int32, name string) (int32, error) {
	const sql = `
        WITH ins AS (
            INSERT INTO dim_campaign (channel_id, campaign_name)
            VALUES ($1, $2)
            ON CONFLICT (channel_id, campaign_name) DO NOTHING
            RETURNING campaign_id
        )
        SELECT campaign_id FROM ins
        UNION ALL
        SELECT campaign_id FROM dim_campaign
        WHERE channel_id = $1 AND campaign_name = $2
        LIMIT 1
    `

	var id int32
	if err := t.tx.QueryRow(ctx, sql, channelID, name).Scan(&id); err != nil {
		return 0, &ResolutionError{
			Dimension: "dim_campaign",
			Key:       fmt.Sprintf("%d/%s", channelID, name),
			Err:       err,
		}
	}
	return id, nil
}

// EnsureCustomer inserts the customer if absent. An existing row wins:
// no field is compared or overwritten on re-sighting of the same id.
func (t *runTx) EnsureCustomer(ctx context.Context, c Customer) error {
	const sql = `
        INSERT INTO dim_customer (
            customer_id, first_name, last_name, email, gender, age_range,
            signup_date, country_id
        )
        VALUES ($1, NULLIF($2, ''), NULLIF($3, ''), NULLIF($4, ''),
                NULLIF($5, ''), NULLIF($6, ''), $7, $8)
        ON CONFLICT (customer_id) DO NOTHING
    `

	var signup any
	if !c.SignupDate.IsZero() {
		signup = c.SignupDate
	}
	var country any
	if c.CountryID != 0 {
		country = c.CountryID
	}

	_, err := t.tx.Exec(ctx, sql,
		c.ID, c.FirstName, c.LastName, c.Email, c.Gender, c.AgeRange,
		signup, country)
	if err != nil {
		return &ResolutionError{
			Dimension: "dim_customer",
			Key:       fmt.Sprintf("%d", c.ID),
			Err:       err,
		}
	}
	return nil
}

// EnsureProduct inserts the product if absent, accept-first-write.
func (t *runTx) EnsureProduct(ctx context.Context, p Product) error {
	const sql = `
        INSERT INTO dim_product (
            product_id, product_name, category_id, brand_id, color_id,
            size_id, cost_price, original_price
        )
        VALUES ($1, NULLIF($2, ''), $3, $4, $5, $6, $7, $8)
        ON CONFLICT (product_id) DO NOTHING
    `

	_, err := t.tx.Exec(ctx, sql,
		p.ID, p.Name,
		nullableID(p.CategoryID), nullableID(p.BrandID),
		nullableID(p.ColorID), nullableID(p.SizeID),
		p.CostPrice, p.OriginalPrice)
	if err != nil {
		return &ResolutionError{
			Dimension: "dim_product",
			Key:       fmt.Sprintf("%d", p.ID),
			Err:       err,
		}
	}
	return nil
}

// nullableID maps the zero surrogate key to SQL NULL.
func nullableID(id int32) any {
	if id == 0 {
		return nil
	}
	return id
}

// isFKViolation reports whether err is a foreign-key constraint
// violation (SQLSTATE 23503).
func isFKViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23503"
}
