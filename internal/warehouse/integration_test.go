//go:build integration
// +build integration

// Integration tests for the warehouse store.
// Run with: go test -tags=integration ./internal/warehouse/...
// Requires PostgreSQL to be available.
// Set SALES_INGEST_TEST_CONN environment variable to override connection string.

package warehouse_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/fashionstore/sales-ingest/internal/db"
	"github.com/fashionstore/sales-ingest/internal/testutil"
	"github.com/fashionstore/sales-ingest/internal/warehouse"
)

func setupWarehouse(t *testing.T, name string) *pgxpool.Pool {
	t.Helper()

	baseConn := testutil.SkipIfNoPostgres(t)
	connStr := testutil.CreateTestDB(t, baseConn, name)
	dbName := testutil.GetDBNameFromConnStr(connStr)

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	pool, err := db.Connect(ctx, connStr)
	if err != nil {
		t.Fatalf("Failed to connect: %v", err)
	}

	t.Cleanup(func() {
		pool.Close()
		testutil.DropTestDB(t, baseConn, dbName)
	})

	if err := warehouse.CreateSchema(ctx, pool); err != nil {
		t.Fatalf("Failed to create schema: %v", err)
	}

	return pool
}

func countRows(t *testing.T, pool *pgxpool.Pool, table string) int {
	t.Helper()
	var n int
	if err := pool.QueryRow(context.Background(), "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		t.Fatalf("Counting %s: %v", table, err)
	}
	return n
}

func testCustomer(id int64) warehouse.Customer {
	return warehouse.Customer{
		ID:        id,
		FirstName: "Ada",
		LastName:  "Meyer",
		Email:     "ada@example.com",
		Gender:    "Female",
		AgeRange:  "25-34",
	}
}

func TestResolveIdempotent(t *testing.T) {
	pool := setupWarehouse(t, "resolve")
	store := warehouse.NewStore(pool)
	ctx := context.Background()

	var first, second, third int32
	err := store.WithinRun(ctx, func(tx warehouse.RunTx) error {
		var err error
		if first, err = tx.ResolveChannel(ctx, "Online"); err != nil {
			return err
		}
		second, err = tx.ResolveChannel(ctx, "Online")
		return err
	})
	if err != nil {
		t.Fatalf("First run failed: %v", err)
	}

	// A later run sees the same surrogate key
	err = store.WithinRun(ctx, func(tx warehouse.RunTx) error {
		var err error
		third, err = tx.ResolveChannel(ctx, "Online")
		return err
	})
	if err != nil {
		t.Fatalf("Second run failed: %v", err)
	}

	if first != second || first != third {
		t.Errorf("Resolving the same channel gave keys %d, %d, %d", first, second, third)
	}
	if n := countRows(t, pool, "dim_channel"); n != 1 {
		t.Errorf("Expected 1 channel row, got %d", n)
	}
}

func TestCampaignScopedToChannel(t *testing.T) {
	pool := setupWarehouse(t, "campaign")
	store := warehouse.NewStore(pool)
	ctx := context.Background()

	var onlineSummer, onlineSummerAgain, storeSummer int32
	err := store.WithinRun(ctx, func(tx warehouse.RunTx) error {
		online, err := tx.ResolveChannel(ctx, "Online")
		if err != nil {
			return err
		}
		retail, err := tx.ResolveChannel(ctx, "Store")
		if err != nil {
			return err
		}
		if onlineSummer, err = tx.ResolveCampaign(ctx, online, "Summer Sale"); err != nil {
			return err
		}
		if onlineSummerAgain, err = tx.ResolveCampaign(ctx, online, "Summer Sale"); err != nil {
			return err
		}
		storeSummer, err = tx.ResolveCampaign(ctx, retail, "Summer Sale")
		return err
	})
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	if onlineSummer != onlineSummerAgain {
		t.Errorf("Same (channel, campaign) gave keys %d and %d", onlineSummer, onlineSummerAgain)
	}
	if onlineSummer == storeSummer {
		t.Error("Same campaign name under different channels shared a key")
	}
	if n := countRows(t, pool, "dim_campaign"); n != 2 {
		t.Errorf("Expected 2 campaign rows, got %d", n)
	}
}

func TestEnsureCustomerFirstWriteWins(t *testing.T) {
	pool := setupWarehouse(t, "customer")
	store := warehouse.NewStore(pool)
	ctx := context.Background()

	err := store.WithinRun(ctx, func(tx warehouse.RunTx) error {
		return tx.EnsureCustomer(ctx, testCustomer(7))
	})
	if err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	changed := testCustomer(7)
	changed.FirstName = "Beatrix"
	changed.Email = "bea@example.com"
	err = store.WithinRun(ctx, func(tx warehouse.RunTx) error {
		return tx.EnsureCustomer(ctx, changed)
	})
	if err != nil {
		t.Fatalf("Second insert failed: %v", err)
	}

	var firstName, email string
	err = pool.QueryRow(ctx,
		"SELECT first_name, email FROM dim_customer WHERE customer_id = 7").
		Scan(&firstName, &email)
	if err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if firstName != "Ada" || email != "ada@example.com" {
		t.Errorf("Re-insert changed customer attributes: %s %s", firstName, email)
	}
}

// seedSaleDims writes the dimensions one fact_sale row needs and
// returns the campaign key.
func seedSaleDims(ctx context.Context, t *testing.T, store *warehouse.Store, customerID int64) int32 {
	t.Helper()
	var campaignID int32
	err := store.WithinRun(ctx, func(tx warehouse.RunTx) error {
		channelID, err := tx.ResolveChannel(ctx, "Online")
		if err != nil {
			return err
		}
		if campaignID, err = tx.ResolveCampaign(ctx, channelID, "Summer Sale"); err != nil {
			return err
		}
		return tx.EnsureCustomer(ctx, testCustomer(customerID))
	})
	if err != nil {
		t.Fatalf("Seeding dimensions failed: %v", err)
	}
	return campaignID
}

func TestInsertSaleIdempotent(t *testing.T) {
	pool := setupWarehouse(t, "sale")
	store := warehouse.NewStore(pool)
	ctx := context.Background()

	campaignID := seedSaleDims(ctx, t, store, 7)
	sale := warehouse.Sale{
		ID:          101,
		Date:        time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC),
		TotalAmount: 53.82,
		CustomerID:  7,
		CampaignID:  campaignID,
	}

	var first, second warehouse.Outcome
	err := store.WithinRun(ctx, func(tx warehouse.RunTx) error {
		var err error
		first, err = tx.InsertSale(ctx, sale)
		return err
	})
	if err != nil {
		t.Fatalf("First insert failed: %v", err)
	}

	// Conflicting re-insert leaves the stored row untouched
	sale.TotalAmount = 999.99
	err = store.WithinRun(ctx, func(tx warehouse.RunTx) error {
		var err error
		second, err = tx.InsertSale(ctx, sale)
		return err
	})
	if err != nil {
		t.Fatalf("Second insert failed: %v", err)
	}

	if first != warehouse.Inserted {
		t.Errorf("First insert outcome = %s, want inserted", first)
	}
	if second != warehouse.Skipped {
		t.Errorf("Second insert outcome = %s, want skipped", second)
	}

	var total float64
	if err := pool.QueryRow(ctx,
		"SELECT total_amount FROM fact_sale WHERE sale_id = 101").Scan(&total); err != nil {
		t.Fatalf("Query failed: %v", err)
	}
	if total != 53.82 {
		t.Errorf("Re-insert changed total_amount to %.2f", total)
	}
}

func TestInsertSaleDanglingCustomer(t *testing.T) {
	pool := setupWarehouse(t, "dangling")
	store := warehouse.NewStore(pool)
	ctx := context.Background()

	campaignID := seedSaleDims(ctx, t, store, 7)

	err := store.WithinRun(ctx, func(tx warehouse.RunTx) error {
		_, err := tx.InsertSale(ctx, warehouse.Sale{
			ID:         102,
			Date:       time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC),
			CustomerID: 999, // never inserted
			CampaignID: campaignID,
		})
		return err
	})

	var integrity *warehouse.IntegrityError
	if !errors.As(err, &integrity) {
		t.Fatalf("Expected IntegrityError, got %v", err)
	}
	if n := countRows(t, pool, "fact_sale"); n != 0 {
		t.Errorf("Failed run left %d fact_sale rows", n)
	}
}

func TestItemConstraints(t *testing.T) {
	pool := setupWarehouse(t, "constraints")
	store := warehouse.NewStore(pool)
	ctx := context.Background()

	campaignID := seedSaleDims(ctx, t, store, 7)
	err := store.WithinRun(ctx, func(tx warehouse.RunTx) error {
		if err := tx.EnsureProduct(ctx, warehouse.Product{ID: 501, Name: "Linen Shirt", OriginalPrice: 29.90}); err != nil {
			return err
		}
		_, err := tx.InsertSale(ctx, warehouse.Sale{
			ID: 101, Date: time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC),
			CustomerID: 7, CampaignID: campaignID,
		})
		return err
	})
	if err != nil {
		t.Fatalf("Seeding failed: %v", err)
	}

	tests := []struct {
		name string
		item warehouse.SaleItem
	}{
		{"zero quantity", warehouse.SaleItem{ID: 1, SaleID: 101, ProductID: 501, Quantity: 0}},
		{"negative quantity", warehouse.SaleItem{ID: 2, SaleID: 101, ProductID: 501, Quantity: -3}},
		{"discount above one", warehouse.SaleItem{ID: 3, SaleID: 101, ProductID: 501, Quantity: 1, DiscountPercent: 1.5}},
		{"negative discount", warehouse.SaleItem{ID: 4, SaleID: 101, ProductID: 501, Quantity: 1, DiscountPercent: -0.1}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			err := store.WithinRun(ctx, func(tx warehouse.RunTx) error {
				_, err := tx.InsertSaleItem(ctx, tc.item)
				return err
			})
			if err == nil {
				t.Error("Expected constraint violation")
			}
		})
	}

	if n := countRows(t, pool, "fact_sale_item"); n != 0 {
		t.Errorf("Constraint violations left %d rows", n)
	}
}

func TestSaleItemsView(t *testing.T) {
	pool := setupWarehouse(t, "view")
	store := warehouse.NewStore(pool)
	ctx := context.Background()

	err := store.WithinRun(ctx, func(tx warehouse.RunTx) error {
		channelID, err := tx.ResolveChannel(ctx, "Online")
		if err != nil {
			return err
		}
		campaignID, err := tx.ResolveCampaign(ctx, channelID, "Summer Sale")
		if err != nil {
			return err
		}
		countryID, err := tx.ResolveCountry(ctx, "Germany")
		if err != nil {
			return err
		}
		categoryID, err := tx.ResolveCategory(ctx, "Shirts")
		if err != nil {
			return err
		}

		customer := testCustomer(7)
		customer.CountryID = countryID
		if err := tx.EnsureCustomer(ctx, customer); err != nil {
			return err
		}
		if err := tx.EnsureProduct(ctx, warehouse.Product{
			ID: 501, Name: "Linen Shirt", CategoryID: categoryID,
			CostPrice: 40, OriginalPrice: 100,
		}); err != nil {
			return err
		}

		if _, err := tx.InsertSale(ctx, warehouse.Sale{
			ID: 101, Date: time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC),
			TotalAmount: 150, CustomerID: 7, CampaignID: campaignID,
		}); err != nil {
			return err
		}
		_, err = tx.InsertSaleItem(ctx, warehouse.SaleItem{
			ID: 1001, SaleID: 101, ProductID: 501,
			Quantity: 2, DiscountPercent: 0.25,
		})
		return err
	})
	if err != nil {
		t.Fatalf("Loading failed: %v", err)
	}

	var (
		channel, campaign, country, category string
		gross, unitPrice, discountApplied, itemTotal float64
	)
	err = pool.QueryRow(ctx, `
        SELECT channel_name, campaign_name, country_name, category_name,
               gross_amount, unit_price, discount_applied, item_total
        FROM v_sale_items WHERE item_id = 1001`).
		Scan(&channel, &campaign, &country, &category,
			&gross, &unitPrice, &discountApplied, &itemTotal)
	if err != nil {
		t.Fatalf("View query failed: %v", err)
	}

	if channel != "Online" || campaign != "Summer Sale" || country != "Germany" || category != "Shirts" {
		t.Errorf("Dimension names wrong: %s/%s/%s/%s", channel, campaign, country, category)
	}
	// qty 2 at 100.00 with 25% off
	if gross != 200 {
		t.Errorf("gross_amount = %v, want 200", gross)
	}
	if unitPrice != 75 {
		t.Errorf("unit_price = %v, want 75", unitPrice)
	}
	if discountApplied != 50 {
		t.Errorf("discount_applied = %v, want 50", discountApplied)
	}
	if itemTotal != 150 {
		t.Errorf("item_total = %v, want 150", itemTotal)
	}
}

func TestRunHistory(t *testing.T) {
	pool := setupWarehouse(t, "runs")
	ctx := context.Background()

	started := time.Now().UTC().Truncate(time.Second)
	recs := []warehouse.RunRecord{
		{
			RunDate: time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC),
			Status:  warehouse.RunStatusCommitted,
			RowsRead: 100, RowsMatched: 40, FactsInserted: 40,
			StartedAt: started, FinishedAt: started.Add(2 * time.Second),
		},
		{
			RunDate: time.Date(2025, 6, 16, 0, 0, 0, 0, time.UTC),
			Status:  warehouse.RunStatusFailed,
			RowsRead:  100,
			StartedAt: started.Add(time.Minute),
			Error:     "source unavailable",
		},
	}
	for _, rec := range recs {
		if err := warehouse.RecordRun(ctx, pool, rec); err != nil {
			t.Fatalf("RecordRun failed: %v", err)
		}
	}

	got, err := warehouse.RecentRuns(ctx, pool, 10)
	if err != nil {
		t.Fatalf("RecentRuns failed: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("Expected 2 runs, got %d", len(got))
	}

	// Newest first
	if got[0].Status != warehouse.RunStatusFailed || got[0].Error != "source unavailable" {
		t.Errorf("Unexpected newest run: %+v", got[0])
	}
	if got[1].Status != warehouse.RunStatusCommitted || got[1].FactsInserted != 40 {
		t.Errorf("Unexpected oldest run: %+v", got[1])
	}
	// Failed run has no finished_at; RecentRuns falls back to started_at
	if got[0].FinishedAt.IsZero() {
		t.Error("FinishedAt should fall back to started_at")
	}
}
