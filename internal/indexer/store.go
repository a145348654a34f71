// internal/indexer/store.go
package indexer

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/creatorclaim/backend/internal/models"
)

// Store is the durable projection the pipeline writes into. Every method is
// idempotent: applying the same event twice leaves the same state as once.
type Store interface {
	// InsertCertificate is an insert-or-ignore; it reports whether a new
	// row was created.
	InsertCertificate(ctx context.Context, cert *models.Certificate) (bool, error)
	// InsertLicence is an insert-or-ignore; it reports whether a new row
	// was created.
	InsertLicence(ctx context.Context, licence *models.Licence) (bool, error)
	// UpdateLicenceStatus updates status and last-update timestamp
	// unconditionally when the row exists; it reports whether it did.
	UpdateLicenceStatus(ctx context.Context, certificateAssetID, buyer string, status models.LicenceStatus, txSignature string, at time.Time) (bool, error)
	// InsertRoyaltyEvents inserts rows, ignoring ones already recorded for
	// the same (tx_signature, beneficiary). It returns the rows that were
	// actually created, so a rerun after a partial failure announces only
	// what is still missing.
	InsertRoyaltyEvents(ctx context.Context, events []*models.RoyaltyEvent) ([]*models.RoyaltyEvent, error)
	// GetCertificate reads an indexed certificate, or nil when absent.
	GetCertificate(ctx context.Context, assetID string) (*models.Certificate, error)
}

// GormStore is the PostgreSQL-backed Store.
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) InsertCertificate(ctx context.Context, cert *models.Certificate) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "asset_id"}}, DoNothing: true}).
		Create(cert)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *GormStore) InsertLicence(ctx context.Context, licence *models.Licence) (bool, error) {
	result := s.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "certificate_asset_id"}, {Name: "buyer"}},
			DoNothing: true,
		}).
		Create(licence)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *GormStore) UpdateLicenceStatus(ctx context.Context, certificateAssetID, buyer string, status models.LicenceStatus, txSignature string, at time.Time) (bool, error) {
	result := s.db.WithContext(ctx).Model(&models.Licence{}).
		Where("certificate_asset_id = ? AND buyer = ?", certificateAssetID, buyer).
		Updates(map[string]interface{}{
			"status":         status,
			"tx_signature":   txSignature,
			"last_update_at": at,
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (s *GormStore) InsertRoyaltyEvents(ctx context.Context, events []*models.RoyaltyEvent) ([]*models.RoyaltyEvent, error) {
	inserted := make([]*models.RoyaltyEvent, 0, len(events))
	for _, event := range events {
		result := s.db.WithContext(ctx).
			Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "tx_signature"}, {Name: "beneficiary"}},
				DoNothing: true,
			}).
			Create(event)
		if result.Error != nil {
			return inserted, result.Error
		}
		if result.RowsAffected > 0 {
			inserted = append(inserted, event)
		}
	}
	return inserted, nil
}

func (s *GormStore) GetCertificate(ctx context.Context, assetID string) (*models.Certificate, error) {
	var cert models.Certificate
	err := s.db.WithContext(ctx).First(&cert, "asset_id = ?", assetID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &cert, nil
}
