package domain

import (
	"errors"
	"io/fs"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMarketDataError(t *testing.T) {
	cause := errors.New("no bars returned")
	err := NewMarketDataError("XYZ", cause)

	assert.ErrorIs(t, err, ErrMarketDataUnavailable)
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "market data unavailable for XYZ: no bars returned", err.Error())
	assert.Equal(t, "market data unavailable for XYZ", NewMarketDataError("XYZ", nil).Error())
}

func TestLedgerError(t *testing.T) {
	readErr := &LedgerError{Op: LedgerOpRead, Path: "/data/stock_data.csv", Err: fs.ErrPermission}
	assert.ErrorIs(t, readErr, ErrLedgerRead)
	assert.NotErrorIs(t, readErr, ErrLedgerWrite)
	assert.ErrorIs(t, readErr, fs.ErrPermission)

	writeErr := &LedgerError{Op: LedgerOpWrite, Path: "/data/stock_data.csv", Err: fs.ErrClosed}
	assert.ErrorIs(t, writeErr, ErrLedgerWrite)
	assert.Contains(t, writeErr.Error(), "ledger write failed")
}

func TestIsValidationError(t *testing.T) {
	assert.True(t, IsValidationError(&ValidationError{Err: ErrInvalidDateFormat}))
	assert.False(t, IsValidationError(ErrNotFound))
	assert.False(t, IsValidationError(NewMarketDataError("XYZ", nil)))
}
