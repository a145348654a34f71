// internal/indexer/decoder_test.go
package indexer

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/creatorclaim/backend/internal/ledger"
)

func TestDecodeLineIgnoresPlainLogs(t *testing.T) {
	for _, line := range []string{
		"",
		"Program log: Purchasing licence for certificate: asset-1",
		"Program invoke depth 1",
		"some completely unrelated output",
	} {
		event, err := DecodeLine(line)
		assert.NoError(t, err, line)
		assert.Nil(t, event, line)
	}
}

func TestDecodeLineMalformedPayload(t *testing.T) {
	_, err := DecodeLine("Program data: !!!not-base64!!!")
	assert.Error(t, err)

	notJSON := "Program data: " + base64.StdEncoding.EncodeToString([]byte("garbage"))
	_, err = DecodeLine(notJSON)
	assert.Error(t, err)
}

func TestDecodeLineUnknownEvent(t *testing.T) {
	line, err := ledger.EncodeEventLine("SomeOtherProgramEvent", map[string]string{"k": "v"})
	require.NoError(t, err)

	event, err := DecodeLine(line)
	assert.NoError(t, err, "foreign events are skipped, not fatal")
	assert.Nil(t, event)
}

func TestDecodeCertificateRegistered(t *testing.T) {
	line, err := ledger.EncodeEventLine(ledger.EventNewCertificateRegistered, ledger.CertificateRegisteredEvent{
		AssetID: "asset-1",
		Creator: "creator",
		Price:   100,
		RoyaltySplits: []ledger.RoyaltySplit{
			{Beneficiary: "creator", ShareBps: 10000},
		},
	})
	require.NoError(t, err)

	event, err := DecodeLine(line)
	require.NoError(t, err)

	registered, ok := event.(CertificateRegistered)
	require.True(t, ok)
	assert.Equal(t, "asset-1", registered.AssetID)
	assert.Equal(t, "asset-1", registered.PartitionKey())
}

func TestDecodeLicenceStatusVariants(t *testing.T) {
	payload := ledger.LicenceStatusEvent{CertificateAssetID: "asset-1", Buyer: "buyer"}

	line, err := ledger.EncodeEventLine(ledger.EventLicenceRevoked, payload)
	require.NoError(t, err)
	event, err := DecodeLine(line)
	require.NoError(t, err)
	changed, ok := event.(LicenceStatusChanged)
	require.True(t, ok)
	assert.Equal(t, "Revoked", changed.Status)
	assert.Equal(t, "asset-1/buyer", changed.PartitionKey())

	line, err = ledger.EncodeEventLine(ledger.EventLicenceExpired, payload)
	require.NoError(t, err)
	event, err = DecodeLine(line)
	require.NoError(t, err)
	changed, ok = event.(LicenceStatusChanged)
	require.True(t, ok)
	assert.Equal(t, "Expired", changed.Status)
}

func TestPurchaseAndStatusShareAPartition(t *testing.T) {
	purchase := LicencePurchased{ledger.LicencePurchasedEvent{
		CertificateAssetID: "asset-1",
		Buyer:              "buyer",
	}}
	status := LicenceStatusChanged{
		LicenceStatusEvent: ledger.LicenceStatusEvent{CertificateAssetID: "asset-1", Buyer: "buyer"},
		Status:             "Revoked",
	}
	assert.Equal(t, purchase.PartitionKey(), status.PartitionKey())
}
