// internal/ledger/events.go
package ledger

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// Event names as they appear on the log wire.
const (
	EventNewCertificateRegistered = "NewCertificateRegistered"
	EventLicencePurchased         = "LicencePurchased"
	EventLicenceRevoked           = "LicenceRevoked"
	EventLicenceExpired           = "LicenceExpired"
)

// eventDataPrefix marks log lines that carry an encoded event payload.
// Other log lines are free-form commentary emitted during execution.
const eventDataPrefix = "Program data: "

// CertificateRegisteredEvent is emitted once per successful registration.
type CertificateRegisteredEvent struct {
	AssetID           string         `json:"asset_id"`
	Creator           string         `json:"creator"`
	LicenceTemplateID uint16         `json:"licence_template_id"`
	Price             uint64         `json:"price"`
	MetadataURIHash   string         `json:"metadata_uri_hash"`
	Title             string         `json:"title,omitempty"`
	RoyaltySplits     []RoyaltySplit `json:"royalty_splits"`
}

// LicencePurchasedEvent is emitted once per successful purchase. It carries
// the certificate's royalty splits so downstream distribution and reporting
// never need to re-read ledger state.
type LicencePurchasedEvent struct {
	CertificateAssetID string         `json:"certificate_asset_id"`
	Buyer              string         `json:"buyer"`
	PurchasePrice      uint64         `json:"purchase_price"`
	PurchaseTimestamp  int64          `json:"purchase_timestamp"`
	ExpiryTimestamp    *int64         `json:"expiry_timestamp,omitempty"`
	RoyaltySplits      []RoyaltySplit `json:"royalty_splits"`
}

// LicenceStatusEvent is emitted for revocation and persisted expiry.
type LicenceStatusEvent struct {
	CertificateAssetID string `json:"certificate_asset_id"`
	Buyer              string `json:"buyer"`
	Revoker            string `json:"revoker,omitempty"`
}

// eventEnvelope is the serialized form embedded in a log line.
type eventEnvelope struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

// EncodeEventLine encodes an event payload as a log line the way the ledger
// writes it: a fixed prefix followed by base64 of a JSON envelope.
func EncodeEventLine(name string, data interface{}) (string, error) {
	raw, err := json.Marshal(data)
	if err != nil {
		return "", fmt.Errorf("failed to marshal event data: %w", err)
	}
	env, err := json.Marshal(eventEnvelope{Name: name, Data: raw})
	if err != nil {
		return "", fmt.Errorf("failed to marshal event envelope: %w", err)
	}
	return eventDataPrefix + base64.StdEncoding.EncodeToString(env), nil
}

func mustEncodeEventLine(name string, data interface{}) string {
	line, err := EncodeEventLine(name, data)
	if err != nil {
		// Event payloads are plain structs; marshalling cannot fail at runtime.
		panic(err)
	}
	return line
}
