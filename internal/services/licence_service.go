// internal/services/licence_service.go
package services

import (
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/creatorclaim/backend/internal/ledger"
	"github.com/creatorclaim/backend/internal/models"
	"github.com/creatorclaim/backend/internal/utils"
)

type LicenceService struct {
	db     *gorm.DB
	ledger *ledger.Ledger
}

type PurchaseLicenceRequest struct {
	CertificateAssetID string `json:"certificate_asset_id" validate:"required,asset_id"`
	// PurchasePrice of zero means "pay the listed certificate price".
	PurchasePrice   uint64 `json:"purchase_price"`
	ExpiryTimestamp *int64 `json:"expiry_timestamp,omitempty"`
}

type RevokeLicenceRequest struct {
	CertificateAssetID string `json:"certificate_asset_id" validate:"required,asset_id"`
	Buyer              string `json:"buyer" validate:"required,wallet_address"`
}

// LicenceView is the API representation of a ledger licence record.
type LicenceView struct {
	CertificateAssetID string               `json:"certificate_asset_id"`
	Buyer              string               `json:"buyer"`
	PurchasePrice      uint64               `json:"purchase_price"`
	PurchaseTimestamp  int64                `json:"purchase_timestamp"`
	ExpiryTimestamp    *int64               `json:"expiry_timestamp,omitempty"`
	Status             ledger.LicenceStatus `json:"status"`
	EffectiveStatus    ledger.LicenceStatus `json:"effective_status"`
	Valid              bool                 `json:"valid"`
}

type LicenceReceiptResponse struct {
	Receipt ledger.Receipt `json:"receipt"`
	Licence LicenceView    `json:"licence"`
}

func NewLicenceService(db *gorm.DB, ledgerHandle *ledger.Ledger) *LicenceService {
	return &LicenceService{
		db:     db,
		ledger: ledgerHandle,
	}
}

// Purchase submits a licence purchase for the authenticated buyer. The
// price paid is the certificate's listed price unless the request names a
// different (pre-agreed) amount; settlement and the funds check happen
// atomically inside the instruction.
func (s *LicenceService) Purchase(buyer string, req *PurchaseLicenceRequest) (*LicenceReceiptResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	price := req.PurchasePrice
	if price == 0 {
		details, err := s.ledger.GetCertificate(req.CertificateAssetID)
		if err != nil {
			return nil, err
		}
		price = details.Price
	}

	receipt, err := s.ledger.PurchaseLicence(ledger.PurchaseLicenceParams{
		CertificateAssetID: req.CertificateAssetID,
		Buyer:              buyer,
		PurchasePrice:      price,
		ExpiryTimestamp:    req.ExpiryTimestamp,
	})
	if err != nil {
		return nil, err
	}

	return s.receiptResponse(receipt, req.CertificateAssetID, buyer)
}

// Revoke transitions the named licence to Revoked. The ledger enforces that
// only the certificate authority may do this.
func (s *LicenceService) Revoke(revoker string, req *RevokeLicenceRequest) (*LicenceReceiptResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	receipt, err := s.ledger.RevokeLicence(req.CertificateAssetID, req.Buyer, revoker)
	if err != nil {
		return nil, err
	}

	return s.receiptResponse(receipt, req.CertificateAssetID, req.Buyer)
}

// EvaluateExpiry persists the Expired status for a lapsed licence. A no-op
// on licences that are not past expiry or already terminal.
func (s *LicenceService) EvaluateExpiry(certificateAssetID, buyer string) (*LicenceReceiptResponse, error) {
	receipt, err := s.ledger.EvaluateExpiry(certificateAssetID, buyer)
	if err != nil {
		return nil, err
	}
	return s.receiptResponse(receipt, certificateAssetID, buyer)
}

// Verify answers "may this buyer use this asset right now" against the
// ledger, applying lazy expiry.
func (s *LicenceService) Verify(certificateAssetID, buyer string) (*LicenceView, error) {
	licence, err := s.ledger.GetLicence(certificateAssetID, buyer)
	if err != nil {
		return nil, err
	}
	view := licenceView(licence, time.Now())
	return &view, nil
}

type LicenceFilter struct {
	Buyer              string
	CertificateAssetID string
	Status             models.LicenceStatus
}

// ListLicences returns indexed licences filtered by buyer, certificate or
// stored status.
func (s *LicenceService) ListLicences(filter LicenceFilter, params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Licence{})

	if filter.Buyer != "" {
		query = query.Where("buyer = ?", filter.Buyer)
	}
	if filter.CertificateAssetID != "" {
		query = query.Where("certificate_asset_id = ?", filter.CertificateAssetID)
	}
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count licences: %w", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "purchase_timestamp", "purchase_price", "status"})
	query = utils.ApplyPagination(query, params)

	var licences []models.Licence
	if err := query.Preload("Certificate").Find(&licences).Error; err != nil {
		return nil, fmt.Errorf("failed to list licences: %w", err)
	}

	result := utils.CreatePaginationResult(licences, total, params)
	return &result, nil
}

// GetLicence reads one licence from the index.
func (s *LicenceService) GetLicence(certificateAssetID, buyer string) (*models.Licence, error) {
	var licence models.Licence
	err := s.db.Preload("Certificate").
		First(&licence, "certificate_asset_id = ? AND buyer = ?", certificateAssetID, buyer).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrLicenceNotFound
		}
		return nil, fmt.Errorf("failed to get licence: %w", err)
	}
	return &licence, nil
}

func (s *LicenceService) receiptResponse(receipt ledger.Receipt, certificateAssetID, buyer string) (*LicenceReceiptResponse, error) {
	licence, err := s.ledger.GetLicence(certificateAssetID, buyer)
	if err != nil {
		return nil, err
	}
	return &LicenceReceiptResponse{
		Receipt: receipt,
		Licence: licenceView(licence, time.Now()),
	}, nil
}

func licenceView(licence *ledger.Licence, now time.Time) LicenceView {
	effective := licence.EffectiveStatus(now)
	return LicenceView{
		CertificateAssetID: licence.CertificateAssetID,
		Buyer:              licence.Buyer,
		PurchasePrice:      licence.PurchasePrice,
		PurchaseTimestamp:  licence.PurchaseTimestamp,
		ExpiryTimestamp:    licence.ExpiryTimestamp,
		Status:             licence.Status,
		EffectiveStatus:    effective,
		Valid:              effective == ledger.LicenceStatusActive,
	}
}
