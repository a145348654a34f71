// internal/utils/validator_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type identifierFixture struct {
	Wallet  string `validate:"required,wallet_address"`
	AssetID string `validate:"required,asset_id"`
}

func TestIdentifierValidation(t *testing.T) {
	valid := identifierFixture{
		Wallet:  "9xQeWvG816bUx9EPjHmaT23yvVM2ZWbrrpZb9PusVFin",
		AssetID: "asset-0001",
	}
	assert.NoError(t, ValidateStruct(&valid))

	tooShort := valid
	tooShort.AssetID = "short"
	assert.Error(t, ValidateStruct(&tooShort))

	badChars := valid
	badChars.Wallet = "wallet with spaces!"
	assert.Error(t, ValidateStruct(&badChars))
}

func TestGetValidationErrors(t *testing.T) {
	err := ValidateStruct(&identifierFixture{Wallet: "", AssetID: "ok-asset-1"})
	require.Error(t, err)

	errs := GetValidationErrors(err)
	require.Len(t, errs, 1)
	assert.Equal(t, "wallet", errs[0].Field)
	assert.Equal(t, "required", errs[0].Tag)
	assert.Contains(t, errs[0].Message, "required")

	assert.Empty(t, GetValidationErrors(nil))
}
