package warehouse

import "context"

// InsertSale loads one sale fact row. An already-present sale_id is
// skipped, never overwritten: historical facts are immutable once
// landed. A foreign-key violation means a dimension was not resolved
// before the fact referencing it, which is fatal to the run.
func (t *runTx) InsertSale(ctx context.Context, s Sale) (Outcome, error) {
	const sql = `
        INSERT INTO fact_sale (sale_id, sale_date, total_amount, customer_id, campaign_id)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (sale_id) DO NOTHING
    `

	tag, err := t.tx.Exec(ctx, sql, s.ID, s.Date, s.TotalAmount, s.CustomerID, s.CampaignID)
	if err != nil {
		if isFKViolation(err) {
			return Skipped, &IntegrityError{Table: "fact_sale", Key: s.ID, Err: err}
		}
		return Skipped, err
	}
	if tag.RowsAffected() == 0 {
		return Skipped, nil
	}
	return Inserted, nil
}

// InsertSaleItem loads one sale item fact row with the same
// insert-once semantics as InsertSale. The referenced sale and product
// must already exist.
func (t *runTx) InsertSaleItem(ctx context.Context, it SaleItem) (Outcome, error) {
	const sql = `
        INSERT INTO fact_sale_item (item_id, sale_id, product_id, quantity, discount_percent)
        VALUES ($1, $2, $3, $4, $5)
        ON CONFLICT (item_id) DO NOTHING
    `

	tag, err := t.tx.Exec(ctx, sql, it.ID, it.SaleID, it.ProductID, it.Quantity, it.DiscountPercent)
	if err != nil {
		if isFKViolation(err) {
			return Skipped, &IntegrityError{Table: "fact_sale_item", Key: it.ID, Err: err}
		}
		return Skipped, err
	}
	if tag.RowsAffected() == 0 {
		return Skipped, nil
	}
	return Inserted, nil
}
