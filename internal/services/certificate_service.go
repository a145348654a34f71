// internal/services/certificate_service.go
package services

import (
	"encoding/hex"
	"errors"
	"fmt"

	"gorm.io/gorm"

	"github.com/creatorclaim/backend/internal/ledger"
	"github.com/creatorclaim/backend/internal/models"
	"github.com/creatorclaim/backend/internal/utils"
)

type CertificateService struct {
	db     *gorm.DB
	ledger *ledger.Ledger
}

type RegisterCertificateRequest struct {
	AssetID           string                `json:"asset_id" validate:"required,asset_id"`
	Title             string                `json:"title" validate:"required,max=255"`
	LicenceTemplateID uint16                `json:"licence_template_id"`
	Price             uint64                `json:"price"`
	MetadataURI       string                `json:"metadata_uri,omitempty" validate:"omitempty,max=2048"`
	MetadataURIHash   string                `json:"metadata_uri_hash,omitempty" validate:"omitempty,len=64,hexadecimal"`
	RoyaltySplits     []ledger.RoyaltySplit `json:"royalty_splits" validate:"dive"`
}

// CertificateView is the API representation of a registered certificate.
type CertificateView struct {
	AssetID           string                `json:"asset_id"`
	Creator           string                `json:"creator"`
	Title             string                `json:"title"`
	LicenceTemplateID uint16                `json:"licence_template_id"`
	Price             uint64                `json:"price"`
	MetadataURIHash   string                `json:"metadata_uri_hash"`
	RoyaltySplits     []ledger.RoyaltySplit `json:"royalty_splits"`
}

type RegisterCertificateResponse struct {
	Receipt     ledger.Receipt  `json:"receipt"`
	Certificate CertificateView `json:"certificate"`
}

func NewCertificateService(db *gorm.DB, ledgerHandle *ledger.Ledger) *CertificateService {
	return &CertificateService{
		db:     db,
		ledger: ledgerHandle,
	}
}

// Register submits a certificate registration for the authenticated wallet.
// The caller may supply the metadata URI (hashed here) or a precomputed
// hash. Substantive validation lives in the ledger instruction so that the
// error codes match what any other submission path would see.
func (s *CertificateService) Register(authority string, req *RegisterCertificateRequest) (*RegisterCertificateResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	hash, err := s.resolveMetadataHash(req)
	if err != nil {
		return nil, err
	}

	receipt, err := s.ledger.RegisterCertificate(ledger.RegisterCertificateParams{
		AssetID:           req.AssetID,
		Authority:         authority,
		MetadataURIHash:   hash,
		LicenceTemplateID: req.LicenceTemplateID,
		Price:             req.Price,
		RoyaltySplits:     req.RoyaltySplits,
		Title:             req.Title,
	})
	if err != nil {
		return nil, err
	}

	return &RegisterCertificateResponse{
		Receipt: receipt,
		Certificate: CertificateView{
			AssetID:           req.AssetID,
			Creator:           authority,
			Title:             req.Title,
			LicenceTemplateID: req.LicenceTemplateID,
			Price:             req.Price,
			MetadataURIHash:   hex.EncodeToString(hash[:]),
			RoyaltySplits:     req.RoyaltySplits,
		},
	}, nil
}

func (s *CertificateService) resolveMetadataHash(req *RegisterCertificateRequest) ([32]byte, error) {
	if req.MetadataURIHash != "" {
		hash, ok := utils.DecodeURIHash(req.MetadataURIHash)
		if !ok {
			return [32]byte{}, errors.New("metadata_uri_hash is not a valid 32-byte hex digest")
		}
		return hash, nil
	}
	if req.MetadataURI != "" {
		return utils.HashURI(req.MetadataURI), nil
	}
	// Neither supplied: the zero hash makes the instruction fail with the
	// canonical missing-metadata error.
	return [32]byte{}, nil
}

// GetCertificate reads a certificate from the index. Records appear here
// once the ingestion pipeline has applied the registration event.
func (s *CertificateService) GetCertificate(assetID string) (*models.Certificate, error) {
	var certificate models.Certificate
	if err := s.db.First(&certificate, "asset_id = ?", assetID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ledger.ErrCertificateNotFound
		}
		return nil, fmt.Errorf("failed to get certificate: %w", err)
	}
	return &certificate, nil
}

type CertificateFilter struct {
	Creator     string
	Beneficiary string
}

// ListCertificates returns indexed certificates, optionally filtered by
// creator or by royalty beneficiary.
func (s *CertificateService) ListCertificates(filter CertificateFilter, params utils.PaginationParams) (*utils.PaginationResult, error) {
	query := s.db.Model(&models.Certificate{})

	if filter.Creator != "" {
		query = query.Where("creator = ?", filter.Creator)
	}
	if filter.Beneficiary != "" {
		query = query.Where("? = ANY(beneficiaries)", filter.Beneficiary)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, fmt.Errorf("failed to count certificates: %w", err)
	}

	query = utils.ApplySort(query, params, []string{"created_at", "last_update_at", "price", "title"})
	query = utils.ApplyPagination(query, params)

	var certificates []models.Certificate
	if err := query.Find(&certificates).Error; err != nil {
		return nil, fmt.Errorf("failed to list certificates: %w", err)
	}

	result := utils.CreatePaginationResult(certificates, total, params)
	return &result, nil
}

// VerifyCertificate checks the ledger directly, so a just-registered
// certificate verifies before the index catches up.
func (s *CertificateService) VerifyCertificate(assetID string) (*CertificateView, error) {
	details, err := s.ledger.GetCertificate(assetID)
	if err != nil {
		return nil, err
	}
	return &CertificateView{
		AssetID:           details.AssetID,
		Creator:           details.Authority,
		Title:             details.Title,
		LicenceTemplateID: details.LicenceTemplateID,
		Price:             details.Price,
		MetadataURIHash:   hex.EncodeToString(details.MetadataURIHash[:]),
		RoyaltySplits:     details.RoyaltySplits,
	}, nil
}
