// internal/router/router.go
package router

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/creatorclaim/backend/internal/config"
	"github.com/creatorclaim/backend/internal/handlers"
	"github.com/creatorclaim/backend/internal/ledger"
	"github.com/creatorclaim/backend/internal/middleware"
	"github.com/creatorclaim/backend/internal/services"
	"github.com/creatorclaim/backend/internal/stream"
	"github.com/creatorclaim/backend/internal/utils"
)

func Initialize(db *gorm.DB, ledgerHandle *ledger.Ledger, hub *stream.Hub, cfg *config.Config) (*gin.Engine, error) {
	// Initialize services
	storageService, err := services.NewStorageService(cfg)
	if err != nil {
		return nil, err
	}
	authService := services.NewAuthService(ledgerHandle, cfg)
	certificateService := services.NewCertificateService(db, ledgerHandle)
	licenceService := services.NewLicenceService(db, ledgerHandle)
	royaltyService := services.NewRoyaltyService(db)

	// Initialize handlers
	authHandler := handlers.NewAuthHandler(authService)
	certificateHandler := handlers.NewCertificateHandler(certificateService, storageService)
	licenceHandler := handlers.NewLicenceHandler(licenceService)
	royaltyHandler := handlers.NewRoyaltyHandler(royaltyService)
	streamHandler := handlers.NewStreamHandler(hub)

	// Set JWT secret
	utils.SetJWTSecret(cfg.JWT.SecretKey)

	// Initialize Gin router
	r := gin.New()

	// Global middleware
	r.Use(gin.Recovery())
	r.Use(middleware.RequestLogger())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.GeneralRateLimit(cfg.RateLimit))

	// Health check
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "healthy",
			"version": "1.0.0",
		})
	})

	// API v1 routes
	v1 := r.Group("/v1")
	{
		// Authentication routes
		auth := v1.Group("/auth")
		auth.Use(middleware.AuthRateLimit(cfg.RateLimit))
		{
			auth.POST("/token", authHandler.IssueToken)
		}

		// Certificate registry routes
		certificates := v1.Group("/certificates")
		{
			certificates.GET("", certificateHandler.ListCertificates)
			certificates.GET("/:asset_id", certificateHandler.GetCertificate)
			certificates.GET("/:asset_id/verify", certificateHandler.VerifyCertificate)

			protected := certificates.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", certificateHandler.RegisterCertificate)
				protected.POST("/metadata", middleware.UploadRateLimit(cfg.RateLimit), certificateHandler.UploadMetadata)
				protected.GET("/metadata/:key/url", certificateHandler.GetMetadataURL)
			}
		}

		// Licence ledger routes
		licences := v1.Group("/licences")
		{
			licences.GET("", licenceHandler.ListLicences)
			licences.GET("/:asset_id/:buyer", licenceHandler.GetLicence)
			licences.GET("/:asset_id/:buyer/verify", licenceHandler.VerifyLicence)
			licences.POST("/:asset_id/:buyer/evaluate-expiry", licenceHandler.EvaluateExpiry)

			protected := licences.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.POST("", licenceHandler.PurchaseLicence)
				protected.POST("/revoke", licenceHandler.RevokeLicence)
				protected.GET("/mine", licenceHandler.ListMyLicences)
			}
		}

		// Royalty history routes
		royalties := v1.Group("/royalties")
		{
			royalties.GET("", royaltyHandler.ListRoyaltyEvents)
			royalties.GET("/stats", middleware.OptionalAuth(), royaltyHandler.GetRoyaltyStats)

			protected := royalties.Group("")
			protected.Use(middleware.AuthRequired())
			{
				protected.GET("/mine", royaltyHandler.ListMyRoyaltyEvents)
			}
		}

		// Live royalty stream
		v1.GET("/stream", streamHandler.Subscribe)
		v1.GET("/stream/stats", streamHandler.GetStats)
	}

	return r, nil
}
