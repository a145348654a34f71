// internal/models/certificate.go
package models

import (
	"encoding/json"
	"time"

	"github.com/lib/pq"
)

// Certificate is the indexed projection of an on-ledger certificate record.
// Owned solely by the event ingestion pipeline; read by dashboards.
type Certificate struct {
	AssetID           string         `json:"asset_id" gorm:"primaryKey;size:64"`
	Creator           string         `json:"creator" gorm:"size:64;not null;index"`
	Title             string         `json:"title" gorm:"size:255"`
	LicenceTemplateID uint16         `json:"licence_template_id"`
	Price             uint64         `json:"price" gorm:"not null"`
	MetadataURIHash   string         `json:"metadata_uri_hash" gorm:"size:64"`
	RoyaltySplits     JSONB          `json:"royalty_splits" gorm:"type:jsonb"`
	Beneficiaries     pq.StringArray `json:"beneficiaries" gorm:"type:text[];index:,type:gin"`
	TxSignature       string         `json:"tx_signature" gorm:"size:88;index"`
	LastUpdateAt      time.Time      `json:"last_update_timestamp"`
	CreatedAt         time.Time      `json:"created_at"`

	// Relationships
	Licences []Licence `json:"licences,omitempty" gorm:"foreignKey:CertificateAssetID;references:AssetID"`
}

// SplitEntry is one decoded royalty split stored inside the JSONB column.
type SplitEntry struct {
	Beneficiary string `json:"beneficiary"`
	ShareBps    uint16 `json:"share_bps"`
}

// Splits decodes the royalty splits column.
func (c *Certificate) Splits() ([]SplitEntry, error) {
	raw, ok := c.RoyaltySplits["splits"]
	if !ok {
		return nil, nil
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var splits []SplitEntry
	if err := json.Unmarshal(data, &splits); err != nil {
		return nil, err
	}
	return splits, nil
}

// SplitsJSONB encodes royalty splits for storage.
func SplitsJSONB(splits []SplitEntry) JSONB {
	entries := make([]map[string]interface{}, 0, len(splits))
	for _, s := range splits {
		entries = append(entries, map[string]interface{}{
			"beneficiary": s.Beneficiary,
			"share_bps":   s.ShareBps,
		})
	}
	return JSONB{"splits": entries}
}
