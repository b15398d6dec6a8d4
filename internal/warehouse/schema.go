// Package warehouse implements the normalized sales warehouse: schema
// definitions, dimension resolution, fact loading, and run history.
package warehouse

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Schema SQL for the snowflake-schema warehouse. Dimension tables carry
// a unique natural key; facts are keyed by externally supplied ids.
const createSchemaSQL = `
-- Channel: sales channel (Online, Store, ...)
CREATE TABLE IF NOT EXISTS dim_channel (
    channel_id   SERIAL PRIMARY KEY,
    channel_name VARCHAR(100) NOT NULL UNIQUE
);

-- Campaign: marketing campaign, scoped to a channel. The same campaign
-- name may exist under different channels as distinct rows.
CREATE TABLE IF NOT EXISTS dim_campaign (
    campaign_id   SERIAL PRIMARY KEY,
    channel_id    INTEGER NOT NULL REFERENCES dim_channel(channel_id),
    campaign_name VARCHAR(200) NOT NULL,
    UNIQUE(channel_id, campaign_name)
);

-- Category: product category
CREATE TABLE IF NOT EXISTS dim_category (
    category_id   SERIAL PRIMARY KEY,
    category_name VARCHAR(100) NOT NULL UNIQUE
);

-- Brand: product manufacturer
CREATE TABLE IF NOT EXISTS dim_brand (
    brand_id   SERIAL PRIMARY KEY,
    brand_name VARCHAR(100) NOT NULL UNIQUE
);

-- Color: product color
CREATE TABLE IF NOT EXISTS dim_color (
    color_id   SERIAL PRIMARY KEY,
    color_name VARCHAR(50) NOT NULL UNIQUE
);

-- Size: product size label
CREATE TABLE IF NOT EXISTS dim_size (
    size_id    SERIAL PRIMARY KEY,
    size_label VARCHAR(50) NOT NULL UNIQUE
);

-- Country: customer country
CREATE TABLE IF NOT EXISTS dim_country (
    country_id   SERIAL PRIMARY KEY,
    country_name VARCHAR(100) NOT NULL UNIQUE
);

-- Customer: externally keyed, immutable once inserted
CREATE TABLE IF NOT EXISTS dim_customer (
    customer_id BIGINT PRIMARY KEY,
    first_name  VARCHAR(100),
    last_name   VARCHAR(100),
    email       VARCHAR(255) UNIQUE,
    gender      VARCHAR(20),
    age_range   VARCHAR(20),
    signup_date DATE,
    country_id  INTEGER REFERENCES dim_country(country_id)
);

-- Product: externally keyed, immutable once inserted
CREATE TABLE IF NOT EXISTS dim_product (
    product_id     BIGINT PRIMARY KEY,
    product_name   VARCHAR(200),
    category_id    INTEGER REFERENCES dim_category(category_id),
    brand_id       INTEGER REFERENCES dim_brand(brand_id),
    color_id       INTEGER REFERENCES dim_color(color_id),
    size_id        INTEGER REFERENCES dim_size(size_id),
    cost_price     NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (cost_price >= 0),
    original_price NUMERIC(10,2) NOT NULL DEFAULT 0 CHECK (original_price >= 0)
);

-- Sale: one row per sale, one customer and one campaign each
CREATE TABLE IF NOT EXISTS fact_sale (
    sale_id      BIGINT PRIMARY KEY,
    sale_date    DATE NOT NULL,
    total_amount NUMERIC(12,2) NOT NULL DEFAULT 0 CHECK (total_amount >= 0),
    customer_id  BIGINT NOT NULL REFERENCES dim_customer(customer_id),
    campaign_id  INTEGER NOT NULL REFERENCES dim_campaign(campaign_id)
);

-- Sale item: line items, many per sale
CREATE TABLE IF NOT EXISTS fact_sale_item (
    item_id          BIGINT PRIMARY KEY,
    sale_id          BIGINT NOT NULL REFERENCES fact_sale(sale_id),
    product_id       BIGINT NOT NULL REFERENCES dim_product(product_id),
    quantity         INTEGER NOT NULL CHECK (quantity > 0),
    discount_percent NUMERIC(5,4) NOT NULL DEFAULT 0
        CHECK (discount_percent >= 0 AND discount_percent <= 1)
);

-- Run history, one row per ingestion run
CREATE TABLE IF NOT EXISTS ingest_runs (
    run_id         BIGSERIAL PRIMARY KEY,
    run_date       DATE NOT NULL,
    status         VARCHAR(20) NOT NULL,
    rows_read      INTEGER NOT NULL DEFAULT 0,
    rows_matched   INTEGER NOT NULL DEFAULT 0,
    rows_malformed INTEGER NOT NULL DEFAULT 0,
    facts_inserted INTEGER NOT NULL DEFAULT 0,
    facts_skipped  INTEGER NOT NULL DEFAULT 0,
    started_at     TIMESTAMPTZ NOT NULL,
    finished_at    TIMESTAMPTZ,
    error          TEXT
);

-- Create indexes
CREATE INDEX IF NOT EXISTS idx_campaign_channel ON dim_campaign(channel_id);
CREATE INDEX IF NOT EXISTS idx_customer_country ON dim_customer(country_id);
CREATE INDEX IF NOT EXISTS idx_sale_date ON fact_sale(sale_date);
CREATE INDEX IF NOT EXISTS idx_sale_customer ON fact_sale(customer_id);
CREATE INDEX IF NOT EXISTS idx_sale_campaign ON fact_sale(campaign_id);
CREATE INDEX IF NOT EXISTS idx_item_sale ON fact_sale_item(sale_id);
CREATE INDEX IF NOT EXISTS idx_item_product ON fact_sale_item(product_id);
CREATE INDEX IF NOT EXISTS idx_ingest_runs_date ON ingest_runs(run_date);

-- Analytical view: one row per sale item joined to all dimensions.
-- Monetary derivations are computed at read time, never persisted.
CREATE OR REPLACE VIEW v_sale_items AS
SELECT
    si.item_id,
    s.sale_id,
    s.sale_date,
    c.customer_id,
    c.first_name,
    c.last_name,
    c.email,
    co.country_name,
    ch.channel_name,
    cp.campaign_name,
    p.product_id,
    p.product_name,
    cat.category_name,
    b.brand_name,
    col.color_name,
    sz.size_label,
    si.quantity,
    si.discount_percent,
    p.cost_price,
    p.original_price,
    si.quantity * p.original_price                             AS gross_amount,
    p.original_price * (1 - si.discount_percent)               AS unit_price,
    si.quantity * p.original_price * si.discount_percent       AS discount_applied,
    si.quantity * p.original_price * (1 - si.discount_percent) AS item_total
FROM fact_sale_item si
JOIN fact_sale     s   ON s.sale_id      = si.sale_id
JOIN dim_product   p   ON p.product_id   = si.product_id
JOIN dim_customer  c   ON c.customer_id  = s.customer_id
JOIN dim_campaign  cp  ON cp.campaign_id = s.campaign_id
JOIN dim_channel   ch  ON ch.channel_id  = cp.channel_id
LEFT JOIN dim_country  co  ON co.country_id   = c.country_id
LEFT JOIN dim_category cat ON cat.category_id = p.category_id
LEFT JOIN dim_brand    b   ON b.brand_id      = p.brand_id
LEFT JOIN dim_color    col ON col.color_id    = p.color_id
LEFT JOIN dim_size     sz  ON sz.size_id      = p.size_id;
`

// Drop schema SQL
const dropSchemaSQL = `
DROP VIEW IF EXISTS v_sale_items;
DROP TABLE IF EXISTS ingest_runs CASCADE;
DROP TABLE IF EXISTS fact_sale_item CASCADE;
DROP TABLE IF EXISTS fact_sale CASCADE;
DROP TABLE IF EXISTS dim_product CASCADE;
DROP TABLE IF EXISTS dim_customer CASCADE;
DROP TABLE IF EXISTS dim_campaign CASCADE;
DROP TABLE IF EXISTS dim_channel CASCADE;
DROP TABLE IF EXISTS dim_category CASCADE;
DROP TABLE IF EXISTS dim_brand CASCADE;
DROP TABLE IF EXISTS dim_color CASCADE;
DROP TABLE IF EXISTS dim_size CASCADE;
DROP TABLE IF EXISTS dim_country CASCADE;
`

// CreateSchema creates the warehouse schema, view, and run table.
func CreateSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, createSchemaSQL)
	return err
}

// DropSchema drops the warehouse schema.
func DropSchema(ctx context.Context, pool *pgxpool.Pool) error {
	_, err := pool.Exec(ctx, dropSchemaSQL)
	return err
}
