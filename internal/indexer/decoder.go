// internal/indexer/decoder.go
package indexer

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/creatorclaim/backend/internal/ledger"
)

// Event is the closed set of domain events the pipeline ingests. Decoding
// happens exactly once, at this boundary; downstream code switches over the
// concrete variants.
type Event interface {
	// PartitionKey groups events that must apply in order.
	PartitionKey() string
	isEvent()
}

// CertificateRegistered mirrors the NewCertificateRegistered ledger event.
type CertificateRegistered struct {
	ledger.CertificateRegisteredEvent
}

func (e CertificateRegistered) PartitionKey() string { return e.AssetID }
func (e CertificateRegistered) isEvent()             {}

// LicencePurchased mirrors the LicencePurchased ledger event.
type LicencePurchased struct {
	ledger.LicencePurchasedEvent
}

func (e LicencePurchased) PartitionKey() string {
	return e.CertificateAssetID + "/" + e.Buyer
}
func (e LicencePurchased) isEvent() {}

// LicenceStatusChanged mirrors LicenceRevoked and LicenceExpired events.
type LicenceStatusChanged struct {
	ledger.LicenceStatusEvent
	Status string
}

func (e LicenceStatusChanged) PartitionKey() string {
	return e.CertificateAssetID + "/" + e.Buyer
}
func (e LicenceStatusChanged) isEvent() {}

const eventDataPrefix = "Program data: "

type eventEnvelope struct {
	Name string          `json:"name"`
	Data json.RawMessage `json:"data"`
}

// DecodeLine decodes one raw log line. Lines without the event prefix, and
// events of kinds this pipeline does not ingest, yield (nil, nil); only a
// line that claims to carry an event but cannot be decoded yields an error.
// Decoding is deterministic and never panics on unrelated log content.
func DecodeLine(line string) (Event, error) {
	if !strings.HasPrefix(line, eventDataPrefix) {
		return nil, nil
	}

	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(line, eventDataPrefix))
	if err != nil {
		return nil, fmt.Errorf("invalid event encoding: %w", err)
	}

	var env eventEnvelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, fmt.Errorf("invalid event envelope: %w", err)
	}

	switch env.Name {
	case ledger.EventNewCertificateRegistered:
		var data ledger.CertificateRegisteredEvent
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", env.Name, err)
		}
		return CertificateRegistered{data}, nil

	case ledger.EventLicencePurchased:
		var data ledger.LicencePurchasedEvent
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", env.Name, err)
		}
		return LicencePurchased{data}, nil

	case ledger.EventLicenceRevoked, ledger.EventLicenceExpired:
		var data ledger.LicenceStatusEvent
		if err := json.Unmarshal(env.Data, &data); err != nil {
			return nil, fmt.Errorf("invalid %s payload: %w", env.Name, err)
		}
		status := "Revoked"
		if env.Name == ledger.EventLicenceExpired {
			status = "Expired"
		}
		return LicenceStatusChanged{LicenceStatusEvent: data, Status: status}, nil

	default:
		// Event from a program family this pipeline does not watch.
		return nil, nil
	}
}
