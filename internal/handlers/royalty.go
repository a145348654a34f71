// internal/handlers/royalty.go
package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/creatorclaim/backend/internal/models"
	"github.com/creatorclaim/backend/internal/services"
	"github.com/creatorclaim/backend/internal/utils"
)

type RoyaltyHandler struct {
	royaltyService *services.RoyaltyService
}

func NewRoyaltyHandler(royaltyService *services.RoyaltyService) *RoyaltyHandler {
	return &RoyaltyHandler{
		royaltyService: royaltyService,
	}
}

// GET /royalties
func (h *RoyaltyHandler) ListRoyaltyEvents(c *gin.Context) {
	params := utils.GetPaginationParams(c)

	filter := services.RoyaltyFilter{
		Beneficiary:        c.Query("beneficiary"),
		CertificateAssetID: c.Query("certificate_asset_id"),
	}
	if source := c.Query("source"); source != "" {
		filter.Source = models.RoyaltyEventSource(source)
	}

	result, err := h.royaltyService.ListEvents(filter, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.PaginatedResponse(c, *result)
}

// GET /royalties/mine
func (h *RoyaltyHandler) ListMyRoyaltyEvents(c *gin.Context) {
	wallet, exists := utils.GetWalletFromContext(c)
	if !exists {
		utils.UnauthorizedResponse(c, "")
		return
	}

	params := utils.GetPaginationParams(c)

	result, err := h.royaltyService.ListEvents(services.RoyaltyFilter{Beneficiary: wallet}, params)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.PaginatedResponse(c, *result)
}

// GET /royalties/stats
func (h *RoyaltyHandler) GetRoyaltyStats(c *gin.Context) {
	beneficiary := c.Query("beneficiary")
	if beneficiary == "" {
		wallet, exists := utils.GetWalletFromContext(c)
		if !exists {
			utils.BadRequestResponse(c, "beneficiary is required", nil)
			return
		}
		beneficiary = wallet
	}

	stats, err := h.royaltyService.GetStats(beneficiary)
	if err != nil {
		utils.InternalErrorResponse(c, err.Error())
		return
	}

	utils.SuccessResponse(c, stats)
}
