// internal/handlers/licence.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/creatorclaim/backend/internal/models"
	"github.com/creatorclaim/backend/internal/services"
	"github.com/creatorclaim/backend/internal/utils"
)

type LicenceHandler struct {
	licenceService *services.LicenceService
}

func NewLicenceHandler(licenceService *services.LicenceService) *LicenceHandler {
	return &LicenceHandler{
		licenceService: licenceService,
	}
}

// POST /licences
func (h *LicenceHandler) PurchaseLicence(c *gin.Context) {
	wallet, exists := utils.GetWalletFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.PurchaseLicenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	response, err := h.licenceService.Purchase(wallet, &req)
	if err != nil {
		utils.LedgerErrorResponse(c, err)
		return
	}

	utils.CreatedResponse(c, response)
}

// POST /licences/revoke
func (h *LicenceHandler) RevokeLicence(c *gin.Context) {
	wallet, exists := utils.GetWalletFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	var req services.RevokeLicenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		utils.BadRequestResponse(c, "Invalid request body", err.Error())
		return
	}

	if validationErrors := utils.GetValidationErrors(utils.ValidateStruct(&req)); len(validationErrors) > 0 {
		utils.ValidationErrorResponse(c, validationErrors)
		return
	}

	response, err := h.licenceService.Revoke(wallet, &req)
	if err != nil {
		utils.LedgerErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, response)
}

// POST /licences/:asset_id/:buyer/evaluate-expiry
func (h *LicenceHandler) EvaluateExpiry(c *gin.Context) {
	response, err := h.licenceService.EvaluateExpiry(c.Param("asset_id"), c.Param("buyer"))
	if err != nil {
		utils.LedgerErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, response)
}

// GET /licences/:asset_id/:buyer/verify
func (h *LicenceHandler) VerifyLicence(c *gin.Context) {
	view, err := h.licenceService.Verify(c.Param("asset_id"), c.Param("buyer"))
	if err != nil {
		utils.LedgerErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, view)
}

// GET /licences/:asset_id/:buyer
func (h *LicenceHandler) GetLicence(c *gin.Context) {
	licence, err := h.licenceService.GetLicence(c.Param("asset_id"), c.Param("buyer"))
	if err != nil {
		utils.LedgerErrorResponse(c, err)
		return
	}

	utils.SuccessResponse(c, licence)
}

// GET /licences
func (h *LicenceHandler) ListLicences(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := services.LicenceFilter{
		Buyer:              c.Query("buyer"),
		CertificateAssetID: c.Query("certificate_asset_id"),
	}
	if status := c.Query("status"); status != "" {
		filter.Status = models.LicenceStatus(status)
	}

	result, err := h.licenceService.ListLicences(filter, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.PaginatedResponse(c, *result)
}

// GET /licences/mine
func (h *LicenceHandler) ListMyLicences(c *gin.Context) {
	wallet, exists := utils.GetWalletFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)

	result, err := h.licenceService.ListLicences(services.LicenceFilter{Buyer: wallet}, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.PaginatedResponse(c, *result)
}
