package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/fashionstore/sales-ingest/internal/config"
	"github.com/fashionstore/sales-ingest/internal/warehouse"
)

// State identifies where a run is in its lifecycle.
type State string

const (
	StateIdle       State = "idle"
	StateFetching   State = "fetching"
	StateFiltering  State = "filtering"
	StateResolving  State = "resolving"
	StateLoading    State = "loading"
	StateCommitted  State = "committed"
	StateRolledBack State = "rolled_back"
	StateFailed     State = "failed"
)

// Source fetches the raw extract bytes.
type Source interface {
	Fetch(ctx context.Context) ([]byte, error)
}

// Store provides the transactional warehouse boundary for a run.
type Store interface {
	WithinRun(ctx context.Context, fn func(warehouse.RunTx) error) error
}

// Orchestrator sequences fetch, parse, filter, resolve, and load for a
// single run date. Each invocation is independent: re-running a date
// against the same warehouse inserts nothing new.
type Orchestrator struct {
	source Source
	store  Store
	cfg    config.IngestConfig
	logger zerolog.Logger
	state  State
}

// New creates an orchestrator with injected collaborators. State
// transitions are reported to logger.
func New(source Source, store Store, cfg config.IngestConfig, logger zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		source: source,
		store:  store,
		cfg:    cfg,
		logger: logger,
		state:  StateIdle,
	}
}

// State returns the state reached by the most recent run.
func (o *Orchestrator) State() State {
	return o.state
}

func (o *Orchestrator) transition(s State, runDate time.Time) {
	o.state = s
	o.logger.Info().
		Str("state", string(s)).
		Str("run_date", runDate.Format("20060102")).
		Msg("Ingestion state")
}

// Run ingests all extract rows whose sale date equals runDate. The
// resolve and load phases execute inside one transaction: a failure
// anywhere rolls back every write of the run.
func (o *Orchestrator) Run(ctx context.Context, runDate time.Time) (*Report, error) {
	report := &Report{RunDate: runDate}

	o.transition(StateFetching, runDate)
	fetchCtx, cancelFetch := context.WithTimeout(ctx,
		time.Duration(o.cfg.FetchTimeoutSeconds)*time.Second)
	data, err := o.source.Fetch(fetchCtx)
	cancelFetch()
	if err != nil {
		o.transition(StateFailed, runDate)
		return report, fmt.Errorf("%w: fetching extract: %w", ErrSourceUnavailable, err)
	}

	o.transition(StateFiltering, runDate)
	parsed, err := ParseExtract(data, o.cfg.MalformedThreshold)
	if err != nil {
		o.transition(StateFailed, runDate)
		return report, err
	}
	report.RowsRead = parsed.RowsRead
	report.RowsMalformed = parsed.Malformed

	matched := FilterByDate(parsed.Records, runDate)
	report.RowsMatched = len(matched)
	if len(matched) == 0 {
		o.logger.Info().
			Str("run_date", runDate.Format("20060102")).
			Int("rows_read", report.RowsRead).
			Msg("No rows for run date, nothing to ingest")
		o.transition(StateCommitted, runDate)
		return report, nil
	}

	storeCtx, cancelStore := context.WithTimeout(ctx,
		time.Duration(o.cfg.StoreTimeoutSeconds)*time.Second)
	defer cancelStore()

	err = o.store.WithinRun(storeCtx, func(tx warehouse.RunTx) error {
		return o.resolveAndLoad(storeCtx, tx, matched, report)
	})
	if err != nil {
		// Nothing from this run survives the rollback.
		report.SalesInserted, report.SalesSkipped = 0, 0
		report.ItemsInserted, report.ItemsSkipped = 0, 0
		o.transition(StateRolledBack, runDate)
		if errors.Is(err, context.DeadlineExceeded) {
			return report, fmt.Errorf("%w: %w", ErrStoreUnavailable, err)
		}
		return report, err
	}

	o.transition(StateCommitted, runDate)
	o.logger.Info().
		Str("run_date", runDate.Format("20060102")).
		Int("rows_read", report.RowsRead).
		Int("rows_matched", report.RowsMatched).
		Int("rows_malformed", report.RowsMalformed).
		Int("facts_inserted", report.FactsInserted()).
		Int("facts_skipped", report.FactsSkipped()).
		Msg("Ingestion committed")

	return report, nil
}

// resolveAndLoad resolves every dimension referenced by the matched
// rows, then loads sale facts before their item facts. Dimensions are
// append-only, so each distinct value is resolved once per run.
func (o *Orchestrator) resolveAndLoad(ctx context.Context, tx warehouse.RunTx, records []Record, report *Report) error {
	o.transition(StateResolving, report.RunDate)

	dims := newDimCache(tx)
	for _, rec := range records {
		if err := dims.resolveRecord(ctx, rec); err != nil {
			return err
		}
	}

	o.transition(StateLoading, report.RunDate)

	loadedSales := make(map[int64]bool, len(records))
	for _, rec := range records {
		if !loadedSales[rec.SaleID] {
			campaignID, err := dims.campaign(ctx, rec.Channel, rec.Campaign)
			if err != nil {
				return err
			}
			outcome, err := tx.InsertSale(ctx, warehouse.Sale{
				ID:          rec.SaleID,
				Date:        rec.SaleDate,
				TotalAmount: rec.TotalAmount,
				CustomerID:  rec.CustomerID,
				CampaignID:  campaignID,
			})
			if err != nil {
				return err
			}
			if outcome == warehouse.Inserted {
				report.SalesInserted++
			} else {
				report.SalesSkipped++
			}
			loadedSales[rec.SaleID] = true
		}

		outcome, err := tx.InsertSaleItem(ctx, warehouse.SaleItem{
			ID:              rec.ItemID,
			SaleID:          rec.SaleID,
			ProductID:       rec.ProductID,
			Quantity:        rec.Quantity,
			DiscountPercent: rec.DiscountPercent,
		})
		if err != nil {
			return err
		}
		if outcome == warehouse.Inserted {
			report.ItemsInserted++
		} else {
			report.ItemsSkipped++
		}
	}

	return nil
}
