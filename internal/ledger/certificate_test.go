// internal/ledger/certificate_test.go
package ledger

import (
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestLedger(t *testing.T, opts ...Option) *Ledger {
	t.Helper()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return New("treasury", logger, opts...)
}

func testHash() [32]byte {
	var h [32]byte
	for i := range h {
		h[i] = byte(i + 1)
	}
	return h
}

func validParams() RegisterCertificateParams {
	return RegisterCertificateParams{
		AssetID:           "asset-1",
		Authority:         "creator-wallet",
		MetadataURIHash:   testHash(),
		LicenceTemplateID: 7,
		Price:             1_000_000,
		RoyaltySplits: []RoyaltySplit{
			{Beneficiary: "creator-wallet", ShareBps: 7000},
			{Beneficiary: "collaborator", ShareBps: 3000},
		},
		Title: "Sunset Over Water",
	}
}

func TestRegisterCertificate(t *testing.T) {
	l := newTestLedger(t)

	receipt, err := l.RegisterCertificate(validParams())
	require.NoError(t, err)
	assert.NotEmpty(t, receipt.Signature)
	assert.Equal(t, uint64(1), receipt.FinalizationIndex)

	details, err := l.GetCertificate("asset-1")
	require.NoError(t, err)
	assert.Equal(t, "creator-wallet", details.Authority)
	assert.Equal(t, uint64(1_000_000), details.Price)
	assert.Len(t, details.RoyaltySplits, 2)
}

func TestRegisterCertificateMissingMetadataHash(t *testing.T) {
	l := newTestLedger(t)

	params := validParams()
	params.MetadataURIHash = [32]byte{}
	// Zero price too: metadata is checked first.
	params.Price = 0

	_, err := l.RegisterCertificate(params)
	assert.ErrorIs(t, err, ErrMissingMetadataHash)
}

func TestRegisterCertificateZeroPrice(t *testing.T) {
	l := newTestLedger(t)

	params := validParams()
	params.Price = 0
	params.RoyaltySplits = nil // split check comes after the price check

	_, err := l.RegisterCertificate(params)
	assert.ErrorIs(t, err, ErrZeroPriceNotAllowed)
}

func TestRegisterCertificateSplitValidation(t *testing.T) {
	l := newTestLedger(t)

	params := validParams()
	params.RoyaltySplits = []RoyaltySplit{
		{Beneficiary: "a", ShareBps: 5000},
		{Beneficiary: "b", ShareBps: 4000},
	}
	_, err := l.RegisterCertificate(params)
	assert.ErrorIs(t, err, ErrInvalidRoyaltySum)

	params.RoyaltySplits = nil
	_, err = l.RegisterCertificate(params)
	assert.ErrorIs(t, err, ErrInvalidRoyaltySum, "empty split list fails the sum check")

	splits := make([]RoyaltySplit, 11)
	for i := range splits {
		splits[i] = RoyaltySplit{Beneficiary: "w", ShareBps: 909}
	}
	params.RoyaltySplits = splits
	_, err = l.RegisterCertificate(params)
	assert.ErrorIs(t, err, ErrTooManyRecipients, "length check precedes the sum check")

	// Nothing was registered by the failed attempts.
	_, err = l.GetCertificate("asset-1")
	assert.ErrorIs(t, err, ErrCertificateNotFound)
}

func TestRegisterCertificateDuplicate(t *testing.T) {
	l := newTestLedger(t)

	_, err := l.RegisterCertificate(validParams())
	require.NoError(t, err)

	_, err = l.RegisterCertificate(validParams())
	assert.ErrorIs(t, err, ErrCertificateAlreadyExists)

	assert.Len(t, l.Logs(0), 1, "failed registration emits nothing")
}

func TestFailedInstructionEmitsNoEvents(t *testing.T) {
	l := newTestLedger(t)

	params := validParams()
	params.Price = 0
	_, err := l.RegisterCertificate(params)
	require.Error(t, err)

	assert.Empty(t, l.Logs(0))
}

func TestLogsAndSubscribe(t *testing.T) {
	l := newTestLedger(t)

	entries, cancel := l.Subscribe(8)
	defer cancel()

	_, err := l.RegisterCertificate(validParams())
	require.NoError(t, err)

	params := validParams()
	params.AssetID = "asset-2"
	_, err = l.RegisterCertificate(params)
	require.NoError(t, err)

	select {
	case entry := <-entries:
		assert.Equal(t, uint64(1), entry.FinalizationIndex)
	case <-time.After(time.Second):
		t.Fatal("expected a live log entry")
	}

	logs := l.Logs(2)
	require.Len(t, logs, 1)
	assert.Equal(t, uint64(2), logs[0].FinalizationIndex)
}
