package analytics

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/aristath/stockledger/internal/domain"
	testingpkg "github.com/aristath/stockledger/internal/testing"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func history() []domain.PricePoint {
	return []domain.PricePoint{
		{Date: day(2024, 1, 2), Price: 100},
		{Date: day(2024, 1, 3), Price: 110},
		{Date: day(2024, 1, 4), Price: 99},
		{Date: day(2024, 1, 5), Price: 108.9},
		{Date: day(2024, 1, 8), Price: 120},
	}
}

func newService() *Service {
	gateway := testingpkg.NewStaticGateway().SetQuote("XYZ", 121).SetHistory("XYZ", history())
	return NewService(gateway, zerolog.Nop())
}

func TestHistoricReturns_Window(t *testing.T) {
	summary, err := newService().HistoricReturns(context.Background(), "XYZ", day(2024, 1, 2), day(2024, 1, 5))
	require.NoError(t, err)

	assert.Equal(t, "XYZ Inc.", summary.DisplayName)
	assert.Equal(t, 121.0, summary.CurrentPrice)
	assert.Equal(t, "2024-01-02", summary.Start)
	assert.Equal(t, "2024-01-05", summary.End)
	assert.Equal(t, 4, summary.Observations)
	assert.InDelta(t, 0.089, summary.TotalReturn, 1e-9)

	// returns: +10%, -10%, +10%
	assert.InDelta(t, 0.1/3, summary.MeanDailyReturn, 1e-9)
	expectedVol := math.Sqrt((2*math.Pow(0.1-0.1/3, 2) + math.Pow(-0.1-0.1/3, 2)) / 2)
	assert.InDelta(t, expectedVol, summary.DailyVolatility, 1e-9)
}

func TestHistoricReturns_OpenEnded(t *testing.T) {
	summary, err := newService().HistoricReturns(context.Background(), "XYZ", time.Time{}, time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 5, summary.Observations)
	assert.Empty(t, summary.Start)
	assert.Empty(t, summary.End)
	assert.InDelta(t, 0.2, summary.TotalReturn, 1e-9)
}

func TestHistoricReturns_SinglePoint(t *testing.T) {
	summary, err := newService().HistoricReturns(context.Background(), "XYZ", day(2024, 1, 8), time.Time{})
	require.NoError(t, err)

	assert.Equal(t, 1, summary.Observations)
	assert.Zero(t, summary.TotalReturn)
	assert.Zero(t, summary.MeanDailyReturn)
	assert.Zero(t, summary.DailyVolatility)
}

func TestHistoricReturns_TwoPoints(t *testing.T) {
	summary, err := newService().HistoricReturns(context.Background(), "XYZ", day(2024, 1, 5), day(2024, 1, 8))
	require.NoError(t, err)

	assert.Equal(t, 2, summary.Observations)
	assert.InDelta(t, 120/108.9-1, summary.MeanDailyReturn, 1e-9)
	assert.Zero(t, summary.DailyVolatility)
}

func TestHistoricReturns_EmptyWindow(t *testing.T) {
	summary, err := newService().HistoricReturns(context.Background(), "XYZ", day(2023, 1, 1), day(2023, 12, 31))
	require.NoError(t, err)

	assert.Zero(t, summary.Observations)
	assert.Empty(t, summary.Series)
}

func TestHistoricReturns_InvalidInput(t *testing.T) {
	svc := newService()

	_, err := svc.HistoricReturns(context.Background(), "xyz!", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, domain.ErrInvalidInstrumentID)

	_, err = svc.HistoricReturns(context.Background(), "XYZ", day(2024, 2, 1), day(2024, 1, 1))
	assert.ErrorIs(t, err, ErrInvalidRange)
}

func TestHistoricReturns_GatewayError(t *testing.T) {
	gateway := testingpkg.NewMockGateway()
	gateway.On("GetQuoteAndHistory", mock.Anything, "XYZ").
		Return(nil, domain.NewMarketDataError("XYZ", errors.New("timeout")))

	_, err := NewService(gateway, zerolog.Nop()).HistoricReturns(context.Background(), "XYZ", time.Time{}, time.Time{})
	assert.ErrorIs(t, err, domain.ErrMarketDataUnavailable)
	gateway.AssertExpectations(t)
}

func TestBetween_IgnoresTimeOfDay(t *testing.T) {
	points := []domain.PricePoint{
		{Date: time.Date(2024, 1, 2, 21, 0, 0, 0, time.UTC), Price: 1},
		{Date: time.Date(2024, 1, 3, 21, 0, 0, 0, time.UTC), Price: 2},
	}

	kept := Between(points, day(2024, 1, 3), day(2024, 1, 3))
	require.Len(t, kept, 1)
	assert.Equal(t, 2.0, kept[0].Price)
}

func TestDailyReturns(t *testing.T) {
	assert.Nil(t, DailyReturns(nil))
	assert.Nil(t, DailyReturns(history()[:1]))

	returns := DailyReturns(history()[:3])
	require.Len(t, returns, 2)
	assert.InDelta(t, 0.1, returns[0], 1e-9)
	assert.InDelta(t, -0.1, returns[1], 1e-9)
}
