package portfolio

import (
	"context"
	"sort"
	"sync"

	"github.com/aristath/stockledger/internal/domain"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/floats"
)

// PositionCalculator folds transactions into net positions and prices them.
type PositionCalculator struct {
	gateway     domain.MarketDataGateway
	concurrency int
	partial     bool
}

// NewPositionCalculator creates a calculator that runs at most concurrency
// gateway lookups at a time. With partial set, an instrument whose lookup
// fails is left out and reported instead of failing the whole computation.
func NewPositionCalculator(gateway domain.MarketDataGateway, concurrency int, partial bool) *PositionCalculator {
	if concurrency < 1 {
		concurrency = 1
	}
	return &PositionCalculator{gateway: gateway, concurrency: concurrency, partial: partial}
}

// NetQuantities sums the signed quantities per instrument.
func NetQuantities(txs []*domain.Transaction) map[string]float64 {
	signed := make(map[string][]float64)
	for _, tx := range txs {
		signed[tx.InstrumentID] = append(signed[tx.InstrumentID], tx.SignedQuantity())
	}

	net := make(map[string]float64, len(signed))
	for id, quantities := range signed {
		net[id] = floats.Sum(quantities)
	}
	return net
}

// Compute returns one NetPosition per instrument in txs. The gateway is asked
// once per distinct instrument. In partial mode, failed instruments are
// returned in the error map; otherwise the first failure is returned.
func (c *PositionCalculator) Compute(ctx context.Context, txs []*domain.Transaction) (map[string]*domain.NetPosition, map[string]error, error) {
	net := NetQuantities(txs)

	ids := make([]string, 0, len(net))
	for id := range net {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var (
		mu        sync.Mutex
		positions = make(map[string]*domain.NetPosition, len(ids))
		failed    = make(map[string]error)
	)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(c.concurrency)

	for _, id := range ids {
		id := id
		g.Go(func() error {
			quote, err := c.gateway.GetQuoteAndHistory(gctx, id)
			if err != nil {
				if !c.partial {
					return err
				}
				mu.Lock()
				failed[id] = err
				mu.Unlock()
				return nil
			}

			position := &domain.NetPosition{
				InstrumentID: id,
				DisplayName:  quote.DisplayName,
				Quantity:     net[id],
				CurrentPrice: quote.CurrentPrice,
				NetValue:     net[id] * quote.CurrentPrice,
				PriceHistory: quote.History,
			}

			mu.Lock()
			positions[id] = position
			mu.Unlock()
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return positions, failed, nil
}
