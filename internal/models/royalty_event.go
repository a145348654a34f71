// internal/models/royalty_event.go
package models

// RoyaltyEvent is one beneficiary's share of one licence sale, persisted
// for dashboard history and replayed to live stream subscribers.
type RoyaltyEvent struct {
	BaseModel
	CertificateAssetID string             `json:"certificate_asset_id" gorm:"size:64;not null;index"`
	CertificateTitle   string             `json:"certificate_title" gorm:"size:255"`
	Beneficiary        string             `json:"beneficiary" gorm:"size:64;not null;index;uniqueIndex:idx_royalty_events_sig_beneficiary"`
	Amount             uint64             `json:"amount" gorm:"not null"`
	ShareBps           uint16             `json:"share_bps"`
	Source             RoyaltyEventSource `json:"source" gorm:"type:varchar(30);default:'licence_sale'"`
	TxSignature        string             `json:"tx_signature" gorm:"size:88;uniqueIndex:idx_royalty_events_sig_beneficiary"`

	// Relationships
	Certificate Certificate `json:"certificate,omitempty" gorm:"foreignKey:CertificateAssetID;references:AssetID"`
}
