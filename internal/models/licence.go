// internal/models/licence.go
package models

import "time"

// Licence is the indexed projection of an on-ledger licence record, keyed
// by (certificate, buyer).
type Licence struct {
	CertificateAssetID string        `json:"certificate_asset_id" gorm:"primaryKey;size:64;index"`
	Buyer              string        `json:"buyer" gorm:"primaryKey;size:64;index"`
	PurchasePrice      uint64        `json:"purchase_price" gorm:"not null"`
	PurchaseTimestamp  time.Time     `json:"purchase_timestamp"`
	ExpiryTimestamp    *time.Time    `json:"expiry_timestamp"`
	Status             LicenceStatus `json:"status" gorm:"type:varchar(20);default:'Active';index"`
	TxSignature        string        `json:"tx_signature" gorm:"size:88;index"`
	LastUpdateAt       time.Time     `json:"last_update_timestamp"`
	CreatedAt          time.Time     `json:"created_at"`

	// Relationships
	Certificate Certificate `json:"certificate,omitempty" gorm:"foreignKey:CertificateAssetID;references:AssetID"`
}

// Effective returns the status a dashboard must display: an Active licence
// past its expiry is Expired even if no instruction has persisted that.
func (l *Licence) Effective(now time.Time) LicenceStatus {
	if l.Status == LicenceStatusActive && l.ExpiryTimestamp != nil && !l.ExpiryTimestamp.After(now) {
		return LicenceStatusExpired
	}
	return l.Status
}
