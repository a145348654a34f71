// internal/ledger/licence.go
package ledger

import "fmt"

// PurchaseLicenceParams are the inputs to PurchaseLicence.
type PurchaseLicenceParams struct {
	CertificateAssetID string
	Buyer              string
	PurchasePrice      uint64
	ExpiryTimestamp    *int64
}

// PurchaseLicence creates an Active licence for (certificate, buyer) and
// atomically settles the purchase price from the buyer's funds into the
// treasury. A second purchase for the same pair fails with
// LicenceAlreadyExists; renewal is a separate, unmodeled operation. On any
// failure no funds move and no licence record is created.
//
// Royalty distribution does not happen here: the emitted LicencePurchased
// event carries the certificate's royalty splits for downstream
// distribution and reporting.
func (l *Ledger) PurchaseLicence(params PurchaseLicenceParams) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	details, ok := l.certificates[params.CertificateAssetID]
	if !ok {
		return Receipt{}, ErrCertificateNotFound
	}

	key := licenceKey{certificateAssetID: params.CertificateAssetID, buyer: params.Buyer}
	if _, exists := l.licences[key]; exists {
		return Receipt{}, ErrLicenceAlreadyExists
	}

	if l.balances[params.Buyer] < params.PurchasePrice {
		return Receipt{}, ErrInsufficientFunds
	}
	l.balances[params.Buyer] -= params.PurchasePrice
	l.balances[l.treasury] += params.PurchasePrice

	licence := &Licence{
		CertificateAssetID: params.CertificateAssetID,
		Buyer:              params.Buyer,
		PurchasePrice:      params.PurchasePrice,
		PurchaseTimestamp:  l.now().Unix(),
		ExpiryTimestamp:    params.ExpiryTimestamp,
		Status:             LicenceStatusActive,
	}
	l.licences[key] = licence

	receipt := l.finalize([]string{
		fmt.Sprintf("Program log: Purchasing licence for certificate: %s", params.CertificateAssetID),
		fmt.Sprintf("Program log: Buyer: %s, Price: %d", params.Buyer, params.PurchasePrice),
		mustEncodeEventLine(EventLicencePurchased, LicencePurchasedEvent{
			CertificateAssetID: licence.CertificateAssetID,
			Buyer:              licence.Buyer,
			PurchasePrice:      licence.PurchasePrice,
			PurchaseTimestamp:  licence.PurchaseTimestamp,
			ExpiryTimestamp:    licence.ExpiryTimestamp,
			RoyaltySplits:      append([]RoyaltySplit(nil), details.RoyaltySplits...),
		}),
	})
	return receipt, nil
}

// RevokeLicence transitions an Active licence to Revoked. Only the
// certificate authority may revoke. Revocation moves no funds; refunds are
// a separate, unmodeled instruction.
func (l *Ledger) RevokeLicence(certificateAssetID, buyer, revoker string) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := licenceKey{certificateAssetID: certificateAssetID, buyer: buyer}
	licence, ok := l.licences[key]
	if !ok {
		return Receipt{}, ErrLicenceNotFound
	}

	details, ok := l.certificates[certificateAssetID]
	if !ok || licence.CertificateAssetID != certificateAssetID {
		return Receipt{}, ErrCertificateMismatch
	}
	if details.Authority != revoker {
		return Receipt{}, ErrUnauthorizedRevoker
	}
	if licence.Status != LicenceStatusActive {
		return Receipt{}, ErrLicenceRevoked
	}

	licence.Status = LicenceStatusRevoked

	receipt := l.finalize([]string{
		fmt.Sprintf("Program log: Licence revoked for certificate %s, buyer %s", certificateAssetID, buyer),
		mustEncodeEventLine(EventLicenceRevoked, LicenceStatusEvent{
			CertificateAssetID: certificateAssetID,
			Buyer:              buyer,
			Revoker:            revoker,
		}),
	})
	return receipt, nil
}

// EvaluateExpiry persists the Expired status for an Active licence whose
// expiry timestamp has passed. Applying it to an already Expired or Revoked
// licence is a no-op, not an error; an Active licence that has not yet
// expired is also left untouched. The no-op paths finalize nothing and
// return an empty receipt.
func (l *Ledger) EvaluateExpiry(certificateAssetID, buyer string) (Receipt, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	key := licenceKey{certificateAssetID: certificateAssetID, buyer: buyer}
	licence, ok := l.licences[key]
	if !ok {
		return Receipt{}, ErrLicenceNotFound
	}

	if licence.Status != LicenceStatusActive {
		return Receipt{}, nil
	}
	if licence.ExpiryTimestamp == nil || *licence.ExpiryTimestamp > l.now().Unix() {
		return Receipt{}, nil
	}

	licence.Status = LicenceStatusExpired

	receipt := l.finalize([]string{
		fmt.Sprintf("Program log: Licence expired for certificate %s, buyer %s", certificateAssetID, buyer),
		mustEncodeEventLine(EventLicenceExpired, LicenceStatusEvent{
			CertificateAssetID: certificateAssetID,
			Buyer:              buyer,
		}),
	})
	return receipt, nil
}

// GetLicence returns the licence record for (certificate, buyer), or
// ErrLicenceNotFound. The stored status is returned as-is; readers acting
// on it must consult EffectiveStatus for lazy expiry.
func (l *Ledger) GetLicence(certificateAssetID, buyer string) (*Licence, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	licence, ok := l.licences[licenceKey{certificateAssetID: certificateAssetID, buyer: buyer}]
	if !ok {
		return nil, ErrLicenceNotFound
	}
	copied := *licence
	return &copied, nil
}
