package reconciler

import (
	"context"
	"time"

	"golang.org/x/xerrors"

	"csgo-seller/internal/metrics"
	"csgo-seller/internal/models"
)

// undercut is how far below the best buy offer an item is listed, before
// the one-unit adjustment.
const undercut = 10

// SellPrice is the listing price for an item whose best competing buy
// offer is bestOffer.
func SellPrice(bestOffer int64) int64 {
	return bestOffer - undercut + 1
}

// Profitable reports whether listing against bestOffer clears the minimum price.
func Profitable(bestOffer, minPrice int64) bool {
	return bestOffer > minPrice
}

// SellInventory refreshes the marketplace inventory and lists every item
// whose best buy offer is above the minimum sale price. Items are handled one
// at a time in inventory order; a failure on one item only skips that item.
func (r *Reconciler) SellInventory(ctx context.Context) (*models.SellReport, error) {
	report := &models.SellReport{StartedAt: time.Now()}

	if err := r.market.UpdateInventory(ctx); err != nil {
		// The marketplace may still serve the previous inventory copy.
		log.Warnw("cant update inventory", "err", err)
	}

	items, err := r.market.Inventory(ctx)
	if err != nil {
		return nil, xerrors.Errorf("cant load inventory: %w", err)
	}
	report.Considered = len(items)

	for i := range items {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		item := &items[i]

		best, err := r.market.BestBuyOffer(ctx, item.ClassID, item.InstanceID)
		if err != nil {
			log.Errorw("cant get best price", "item", item.MarketHashName, "err", err)
			metrics.SellOutcomes.WithLabelValues("failed").Inc()
			continue
		}

		if !Profitable(best, r.minSalePrice) {
			log.Infow("too low price", "item", item.MarketHashName, "best_offer", best, "min_price", r.minSalePrice)
			metrics.SellOutcomes.WithLabelValues("skipped_price").Inc()
			continue
		}

		item.SellPrice = SellPrice(best)

		if err := r.market.SetPrice(ctx, item.ListingID, item.SellPrice); err != nil {
			log.Errorw("cant sell item", "item", item.MarketHashName, "price", item.SellPrice, "err", err)
			metrics.SellOutcomes.WithLabelValues("failed").Inc()
			continue
		}

		log.Infow("sold", "item", item.MarketHashName, "price", float64(item.SellPrice)/100)
		metrics.SellOutcomes.WithLabelValues("listed").Inc()

		report.Listed = append(report.Listed, *item)
		report.TotalCost += item.SellPrice
	}

	report.FinishedAt = time.Now()
	log.Infow("sell cycle complete",
		"sold", report.Count(),
		"items", report.Considered,
		"total_cost", float64(report.TotalCost)/100)

	r.lastReport.Store(report)
	return report, nil
}
