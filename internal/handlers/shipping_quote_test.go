package handlers

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQuoteShippingFee(t *testing.T) {
	fee, err := quoteShippingFee("inner_city", 100000)
	require.NoError(t, err)
	assert.Equal(t, int64(15000), fee)

	fee, err = quoteShippingFee("remote", 100000)
	require.NoError(t, err)
	assert.Equal(t, int64(55000), fee)

	// region matching is case and whitespace insensitive
	fee, err = quoteShippingFee("  Suburban ", 100000)
	require.NoError(t, err)
	assert.Equal(t, int64(25000), fee)
}

func TestQuoteShippingFeeFreeThreshold(t *testing.T) {
	fee, err := quoteShippingFee("regional", freeShippingThreshold)
	require.NoError(t, err)
	assert.Equal(t, int64(0), fee)

	fee, err = quoteShippingFee("regional", freeShippingThreshold-1)
	require.NoError(t, err)
	assert.Equal(t, int64(35000), fee)
}

func TestQuoteShippingFeeUnknownRegion(t *testing.T) {
	_, err := quoteShippingFee("atlantis", 100000)
	assert.ErrorIs(t, err, errUnknownRegion)
}
