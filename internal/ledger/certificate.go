// internal/ledger/certificate.go
package ledger

import (
	"encoding/hex"
	"fmt"
)

// MaxRoyaltyRecipients bounds the royalty split list for deterministic
// record sizing.
const MaxRoyaltyRecipients = 10

// totalShareBps is the required sum of all royalty shares.
const totalShareBps = 10000

// RegisterCertificateParams are the inputs to RegisterCertificate.
type RegisterCertificateParams struct {
	AssetID           string
	Authority         string
	MetadataURIHash   [32]byte
	LicenceTemplateID uint16
	Price             uint64
	RoyaltySplits     []RoyaltySplit
	Title             string
}

// ValidateRoyaltySplits checks the split list bounds and the exact 10000 bps
// sum. An empty list fails the sum check, not the length check.
func ValidateRoyaltySplits(splits []RoyaltySplit) error {
	if len(splits) > MaxRoyaltyRecipients {
		return ErrTooManyRecipients
	}
	var total uint32
	for _, s := range splits {
		total += uint32(s.ShareBps)
	}
	if total != totalShareBps {
		return ErrInvalidRoyaltySum
	}
	return nil
}

// RegisterCertificate validates and stores an immutable certificate record
// for an asset. Validation order is fixed; the first failure wins and no
// state is written. On success the instruction is finalized and a
// NewCertificateRegistered event is emitted.
func (l *Ledger) RegisterCertificate(params RegisterCertificateParams) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if isZeroHash(params.MetadataURIHash) {
		return Receipt{}, ErrMissingMetadataHash
	}
	if params.Price == 0 {
		return Receipt{}, ErrZeroPriceNotAllowed
	}
	if err := ValidateRoyaltySplits(params.RoyaltySplits); err != nil {
		return Receipt{}, err
	}
	if _, exists := l.certificates[params.AssetID]; exists {
		return Receipt{}, ErrCertificateAlreadyExists
	}

	details := &CertificateDetails{
		AssetID:           params.AssetID,
		Authority:         params.Authority,
		MetadataURIHash:   params.MetadataURIHash,
		LicenceTemplateID: params.LicenceTemplateID,
		Price:             params.Price,
		RoyaltySplits:     append([]RoyaltySplit(nil), params.RoyaltySplits...),
		Title:             params.Title,
	}
	l.certificates[params.AssetID] = details

	receipt := l.finalize([]string{
		fmt.Sprintf("Program log: Certificate details registered for asset: %s", params.AssetID),
		fmt.Sprintf("Program log: Royalty beneficiaries: %s", summarizeSplits(params.RoyaltySplits)),
		mustEncodeEventLine(EventNewCertificateRegistered, CertificateRegisteredEvent{
			AssetID:           details.AssetID,
			Creator:           details.Authority,
			LicenceTemplateID: details.LicenceTemplateID,
			Price:             details.Price,
			MetadataURIHash:   hex.EncodeToString(details.MetadataURIHash[:]),
			Title:             details.Title,
			RoyaltySplits:     details.RoyaltySplits,
		}),
	})
	return receipt, nil
}

// GetCertificate returns the registered details for an asset, or
// ErrCertificateNotFound.
func (l *Ledger) GetCertificate(assetID string) (*CertificateDetails, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	details, ok := l.certificates[assetID]
	if !ok {
		return nil, ErrCertificateNotFound
	}
	copied := *details
	copied.RoyaltySplits = append([]RoyaltySplit(nil), details.RoyaltySplits...)
	return &copied, nil
}
