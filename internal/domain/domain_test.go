package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseProductCode_Valid(t *testing.T) {
	code, err := ParseProductCode("gtopup_FREEFIRE_100")
	require.NoError(t, err)
	assert.Equal(t, CategoryGameTopup, code.Category)
	assert.Equal(t, "FREEFIRE", code.Company)
	assert.True(t, code.FaceValue.Equal(decimal.NewFromInt(100)))
	assert.Equal(t, "gtopup_FREEFIRE_100", code.String())
}

func TestParseProductCode_FractionalFaceValue(t *testing.T) {
	code, err := ParseProductCode("mtopup_AIS_49.5")
	require.NoError(t, err)
	assert.True(t, code.FaceValue.Equal(decimal.RequireFromString("49.5")))
}

func TestParseProductCode_RejectsBadShapes(t *testing.T) {
	cases := []string{
		"",
		"gtopup",
		"gtopup_FREEFIRE",
		"gtopup_FREEFIRE_100_extra",
		"unknown_FREEFIRE_100",
		"gtopup__100",
		"gtopup_FREEFIRE_abc",
		"gtopup_FREEFIRE_0",
		"gtopup_FREEFIRE_-5",
	}
	for _, raw := range cases {
		_, err := ParseProductCode(raw)
		assert.Error(t, err, "expected rejection for %q", raw)
		var appErr *AppError
		require.ErrorAs(t, err, &appErr)
		assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
	}
}

func TestTxStatus_Terminal(t *testing.T) {
	assert.False(t, TxPending.Terminal())
	assert.True(t, TxSuccess.Terminal())
	assert.True(t, TxFailed.Terminal())
}

func TestReserveParams_PartnerIsPayer(t *testing.T) {
	p := ReserveParams{}
	p.PayerWalletID = p.PartnerWalletID
	assert.True(t, p.PartnerIsPayer())
}

func TestValidatePositiveAmount(t *testing.T) {
	assert.NoError(t, ValidatePositiveAmount(decimal.RequireFromString("0.01")))
	assert.Error(t, ValidatePositiveAmount(decimal.Zero))
	assert.Error(t, ValidatePositiveAmount(decimal.NewFromInt(-10)))
}

func TestValidateTargetRef(t *testing.T) {
	assert.NoError(t, ValidateTargetRef("player-123"))
	assert.NoError(t, ValidateTargetRef("UID_9.88"))
	assert.Error(t, ValidateTargetRef(""))
	assert.Error(t, ValidateTargetRef("has space"))
	assert.Error(t, ValidateTargetRef("semi;colon"))
}

func TestAppError_UnwrapAndMessage(t *testing.T) {
	cause := assert.AnError
	err := ErrUpstreamFailure("provider rejected payment", cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "UPSTREAM_FAILURE")
	assert.Equal(t, 502, err.Status)
}
