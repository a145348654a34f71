// internal/services/royalty_service.go
package services

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/creatorclaim/backend/internal/models"
	"github.com/creatorclaim/backend/internal/utils"
)

type RoyaltyService struct {
	db *gorm.DB
}

type RoyaltyStats struct {
	Beneficiary       string `json:"beneficiary"`
	TotalEarned       uint64 `json:"total_earned"`
	EventCount        int64  `json:"event_count"`
	CertificatesCount int64  `json:"certificates_count"`
}

func NewRoyaltyService(db *gorm.DB) *RoyaltyService {
	return &RoyaltyService{db: db}
}

type RoyaltyFilter struct {
	Beneficiary        string
	CertificateAssetID string
	Source             models.RoyaltyEventSource
}

// ListEvents returns persisted royalty events, newest first by default.
// This is the history a dashboard shows alongside the live stream.
func (s *RoyaltyService) ListEvents(filter RoyaltyFilter, params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.RoyaltyEvent{})

	if filter.Beneficiary != "" {
		query = query.Where("beneficiary = ?", filter.Beneficiary)
	}
	if filter.CertificateAssetID != "" {
		query = query.Where("certificate_asset_id = ?", filter.CertificateAssetID)
	}
	if filter.Source != "" {
		query = query.Where("source = ?", filter.Source)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count royalty events: %w", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "amount"})
	query = utils.ApplyPagination(query, params)

	var events []models.RoyaltyEvent
	if err := query.Find(&events).Error; err != nil {
		return nil, fmt.Errorf("failed to list royalty events: %w", err)
	}

	result := utils.CreatePaginationResult(events, total, params)
	return &result, nil
}

// GetStats aggregates a beneficiary's royalty history.
func (s *RoyaltyService) GetStats(beneficiary string) (*RoyaltyStats, error) {
	stats := &RoyaltyStats{Beneficiary: beneficiary}

	row := s.db.Model(&models.RoyaltyEvent{}).
		Where("beneficiary = ?", beneficiary).
		Select("COALESCE(SUM(amount), 0)::bigint AS total, COUNT(*) AS events, COUNT(DISTINCT certificate_asset_id) AS certificates").
		Row()
	if err := row.Scan(&stats.TotalEarned, &stats.EventCount, &stats.CertificatesCount); err != nil {
		return nil, fmt.Errorf("failed to aggregate royalty stats: %w", err)
	}

	return stats, nil
}
