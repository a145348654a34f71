// internal/handlers/certificate.go
package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/creatorclaim/backend/internal/services"
	"github.com/creatorclaim/backend/internal/utils"
)

type CertificateHandler struct {
	certificateService *services.CertificateService
	storageService     *services.StorageService
}

func NewCertificateHandler(certificateService *services.CertificateService, storageService *services.StorageService) *CertificateHandler {
	return &CertificateHandler{
		certificateService: certificateService,
		storageService:     storageService,
	}
}

// POST /certificates
func (h *CertificateHandler) RegisterCertificate(c *gin.Context) {
	wallet, exists := utils.GetWalletFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.RegisterCertificateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	response, err := h.certificateService.Register(wallet, &req)
	if err != nil {
		utils.LedgerErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, response)
}

// POST /certificates/metadata
func (h *CertificateHandler) UploadMetadata(c *gin.Context) {
	if _, exists := utils.GetWalletFromContext(c); !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var doc services.MetadataDocument
	if err := c.ShouldBindJSON(&doc); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	result, err := h.storageService.UploadMetadata(&doc)
	if err != nil {
		utils.BadRequestResponse(c, err.Error(), nil)
		return
	}

	utils.CreatedResponse(c, result)
}

// GET /certificates/metadata/:key/url
func (h *CertificateHandler) GetMetadataURL(c *gin.Context) {
	key := "metadata/" + c.Param("key")

	url, err := h.storageService.GeneratePresignedURL(key, 15*time.Minute)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, gin.H{"url": url})
}

// GET /certificates/:asset_id
func (h *CertificateHandler) GetCertificate(c *gin.Context) {
	assetID := c.Param("asset_id")

	certificate, err := h.certificateService.GetCertificate(assetID)
	if err != nil {
		utils.LedgerErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, certificate)
}

// GET /certificates/:asset_id/verify
func (h *CertificateHandler) VerifyCertificate(c *gin.Context) {
	assetID := c.Param("asset_id")

	view, err := h.certificateService.VerifyCertificate(assetID)
	if err != nil {
		utils.LedgerErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, view)
}

// GET /certificates
func (h *CertificateHandler) ListCertificates(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := services.CertificateFilter{
		Creator:     c.Query("creator"),
		Beneficiary: c.Query("beneficiary"),
	}

	result, err := h.certificateService.ListCertificates(filter, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.PaginatedResponse(c, *result)
}
