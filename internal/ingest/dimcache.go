package ingest

import (
	"context"
	"errors"
	"fmt"

	"github.com/fashionstore/sales-ingest/internal/warehouse"
)

// dimCache memoizes dimension resolution within a run. Dimension rows
// are never deleted or mutated by the ingestion path, so a key
// resolved once stays valid for the rest of the transaction.
type dimCache struct {
	tx warehouse.RunTx

	channels   map[string]int32
	campaigns  map[string]int32
	categories map[string]int32
	brands     map[string]int32
	colors     map[string]int32
	sizes      map[string]int32
	countries  map[string]int32

	customers map[int64]bool
	products  map[int64]bool
}

func newDimCache(tx warehouse.RunTx) *dimCache {
	return &dimCache{
		tx:         tx,
		channels:   make(map[string]int32),
		campaigns:  make(map[string]int32),
		categories: make(map[string]int32),
		brands:     make(map[string]int32),
		colors:     make(map[string]int32),
		sizes:      make(map[string]int32),
		countries:  make(map[string]int32),
		customers:  make(map[int64]bool),
		products:   make(map[int64]bool),
	}
}

type resolveFunc func(ctx context.Context, name string) (int32, error)

func (d *dimCache) lookup(ctx context.Context, cache map[string]int32, name string, resolve resolveFunc) (int32, error) {
	if id, ok := cache[name]; ok {
		return id, nil
	}
	id, err := resolve(ctx, name)
	if err != nil {
		if id, err = retryResolve(ctx, name, err, resolve); err != nil {
			return 0, err
		}
	}
	cache[name] = id
	return id, nil
}

// retryResolve reruns a failed resolve once. A concurrent run
// committing the same natural key mid-statement leaves the first
// statement's snapshot unable to see the row; the rerun takes a fresh
// snapshot and fetches it. Only resolution errors are retried, and
// only once: a second failure is not a snapshot race.
func retryResolve(ctx context.Context, name string, err error, resolve resolveFunc) (int32, error) {
	var rerr *warehouse.ResolutionError
	if !errors.As(err, &rerr) {
		return 0, err
	}
	return resolve(ctx, name)
}

func (d *dimCache) channel(ctx context.Context, name string) (int32, error) {
	return d.lookup(ctx, d.channels, name, d.tx.ResolveChannel)
}

// campaign resolves the compound (channel, campaign name) key; the
// channel resolves first since campaigns are scoped to it.
func (d *dimCache) campaign(ctx context.Context, channel, name string) (int32, error) {
	channelID, err := d.channel(ctx, channel)
	if err != nil {
		return 0, err
	}

	key := fmt.Sprintf("%d|%s", channelID, name)
	if id, ok := d.campaigns[key]; ok {
		return id, nil
	}
	resolve := func(ctx context.Context, n string) (int32, error) {
		return d.tx.ResolveCampaign(ctx, channelID, n)
	}
	id, err := resolve(ctx, name)
	if err != nil {
		if id, err = retryResolve(ctx, name, err, resolve); err != nil {
			return 0, err
		}
	}
	d.campaigns[key] = id
	return id, nil
}

// resolveRecord resolves every dimension the record references and
// ensures its customer and product rows exist.
func (d *dimCache) resolveRecord(ctx context.Context, rec Record) error {
	if _, err := d.campaign(ctx, rec.Channel, rec.Campaign); err != nil {
		return err
	}

	var countryID int32
	if rec.Country != "" {
		id, err := d.lookup(ctx, d.countries, rec.Country, d.tx.ResolveCountry)
		if err != nil {
			return err
		}
		countryID = id
	}

	if !d.customers[rec.CustomerID] {
		err := d.tx.EnsureCustomer(ctx, warehouse.Customer{
			ID:         rec.CustomerID,
			FirstName:  rec.FirstName,
			LastName:   rec.LastName,
			Email:      rec.Email,
			Gender:     rec.Gender,
			AgeRange:   rec.AgeRange,
			SignupDate: rec.SignupDate,
			CountryID:  countryID,
		})
		if err != nil {
			return err
		}
		d.customers[rec.CustomerID] = true
	}

	if d.products[rec.ProductID] {
		return nil
	}

	var categoryID, brandID, colorID, sizeID int32
	var err error
	if rec.Category != "" {
		if categoryID, err = d.lookup(ctx, d.categories, rec.Category, d.tx.ResolveCategory); err != nil {
			return err
		}
	}
	if rec.Brand != "" {
		if brandID, err = d.lookup(ctx, d.brands, rec.Brand, d.tx.ResolveBrand); err != nil {
			return err
		}
	}
	if rec.Color != "" {
		if colorID, err = d.lookup(ctx, d.colors, rec.Color, d.tx.ResolveColor); err != nil {
			return err
		}
	}
	if rec.Size != "" {
		if sizeID, err = d.lookup(ctx, d.sizes, rec.Size, d.tx.ResolveSize); err != nil {
			return err
		}
	}

	err = d.tx.EnsureProduct(ctx, warehouse.Product{
		ID:            rec.ProductID,
		Name:          rec.ProductName,
		CategoryID:    categoryID,
		BrandID:       brandID,
		ColorID:       colorID,
		SizeID:        sizeID,
		CostPrice:     rec.CostPrice,
		OriginalPrice: rec.OriginalPrice,
	})
	if err != nil {
		return err
	}
	d.products[rec.ProductID] = true

	return nil
}
