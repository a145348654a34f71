// internal/tests/api_test.go
package tests

import (
	"bytes"
	"crypto/ed25519"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/creatorclaim/backend/internal/config"
	"github.com/creatorclaim/backend/internal/handlers"
	"github.com/creatorclaim/backend/internal/ledger"
	"github.com/creatorclaim/backend/internal/middleware"
	"github.com/creatorclaim/backend/internal/services"
	"github.com/creatorclaim/backend/internal/utils"
)

// APITestSuite exercises the HTTP surface end to end against the in-process
// ledger. Index-backed listing routes need a database and are covered by
// the service and pipeline tests instead.
type APITestSuite struct {
	suite.Suite
	router *gin.Engine
	ledger *ledger.Ledger
	cfg    *config.Config
}

type wallet struct {
	address string
	priv    ed25519.PrivateKey
}

func newWallet(t *testing.T) wallet {
	pub, priv, err := ed25519.GenerateKey(rand.Reader)
	if err != nil {
		t.Fatal(err)
	}
	return wallet{
		address: base64.RawURLEncoding.EncodeToString(pub),
		priv:    priv,
	}
}

func (suite *APITestSuite) SetupTest() {
	gin.SetMode(gin.TestMode)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	suite.cfg = &config.Config{
		Environment: "test",
		JWT: config.JWTConfig{
			SecretKey:      "test-secret",
			AccessTokenTTL: 1,
		},
		Ledger: config.LedgerConfig{
			TreasuryWallet:  "creatorclaim-treasury",
			DevFaucetAmount: 60_000_000,
		},
	}
	utils.SetJWTSecret(suite.cfg.JWT.SecretKey)

	suite.ledger = ledger.New(suite.cfg.Ledger.TreasuryWallet, logger)

	authService := services.NewAuthService(suite.ledger, suite.cfg)
	certificateService := services.NewCertificateService(nil, suite.ledger)
	licenceService := services.NewLicenceService(nil, suite.ledger)

	authHandler := handlers.NewAuthHandler(authService)
	certificateHandler := handlers.NewCertificateHandler(certificateService, nil)
	licenceHandler := handlers.NewLicenceHandler(licenceService)

	suite.router = gin.New()
	v1 := suite.router.Group("/v1")
	{
		v1.POST("/auth/token", authHandler.IssueToken)
		v1.GET("/certificates/:asset_id/verify", certificateHandler.VerifyCertificate)
		v1.GET("/licences/:asset_id/:buyer/verify", licenceHandler.VerifyLicence)

		protected := v1.Group("")
		protected.Use(middleware.AuthRequired())
		{
			protected.POST("/certificates", certificateHandler.RegisterCertificate)
			protected.POST("/licences", licenceHandler.PurchaseLicence)
			protected.POST("/licences/revoke", licenceHandler.RevokeLicence)
		}
	}
}

func (suite *APITestSuite) request(method, path, token string, body interface{}) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		suite.Require().NoError(err)
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequest(method, path, reader)
	suite.Require().NoError(err)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	suite.router.ServeHTTP(w, req)
	return w
}

func (suite *APITestSuite) issueToken(w wallet) string {
	challenge := "creatorclaim-login"
	signature := base64.StdEncoding.EncodeToString(ed25519.Sign(w.priv, []byte(challenge)))

	resp := suite.request("POST", "/v1/auth/token", "", map[string]string{
		"wallet_address": w.address,
		"message":        challenge,
		"signature":      signature,
	})
	suite.Require().Equal(http.StatusOK, resp.Code, resp.Body.String())

	var body struct {
		Data struct {
			Token string `json:"token"`
		} `json:"data"`
	}
	suite.Require().NoError(json.Unmarshal(resp.Body.Bytes(), &body))
	suite.Require().NotEmpty(body.Data.Token)
	return body.Data.Token
}

func errorCode(t *testing.T, resp *httptest.ResponseRecorder) string {
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(resp.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal error response: %v", err)
	}
	return body.Error.Code
}

func registerRequest(creator wallet) map[string]interface{} {
	return map[string]interface{}{
		"asset_id":     "asset-0001",
		"title":        "Sunset Over Water",
		"price":        50_000_000,
		"metadata_uri": "https://cdn.creatorclaim.io/metadata/asset-0001.json",
		"royalty_splits": []map[string]interface{}{
			{"beneficiary": creator.address, "share_bps": 10000},
		},
	}
}

func (suite *APITestSuite) TestTokenIssuance() {
	w := newWallet(suite.T())
	token := suite.issueToken(w)
	assert.NotEmpty(suite.T(), token)

	// Token issue funds the wallet through the dev faucet.
	assert.Equal(suite.T(), uint64(60_000_000), suite.ledger.BalanceOf(w.address))
}

func (suite *APITestSuite) TestTokenRejectsBadSignature() {
	w := newWallet(suite.T())
	forged := base64.StdEncoding.EncodeToString(make([]byte, ed25519.SignatureSize))

	resp := suite.request("POST", "/v1/auth/token", "", map[string]string{
		"wallet_address": w.address,
		"message":        "creatorclaim-login",
		"signature":      forged,
	})
	assert.Equal(suite.T(), http.StatusUnauthorized, resp.Code)
}

func (suite *APITestSuite) TestRegisterRequiresAuth() {
	creator := newWallet(suite.T())
	resp := suite.request("POST", "/v1/certificates", "", registerRequest(creator))
	assert.Equal(suite.T(), http.StatusUnauthorized, resp.Code)
}

func (suite *APITestSuite) TestCertificateLifecycle() {
	creator := newWallet(suite.T())
	token := suite.issueToken(creator)

	resp := suite.request("POST", "/v1/certificates", token, registerRequest(creator))
	suite.Require().Equal(http.StatusCreated, resp.Code, resp.Body.String())

	// Duplicate registration conflicts.
	resp = suite.request("POST", "/v1/certificates", token, registerRequest(creator))
	assert.Equal(suite.T(), http.StatusConflict, resp.Code)
	assert.Equal(suite.T(), "CERTIFICATE_ALREADY_EXISTS", errorCode(suite.T(), resp))

	// Bad splits are rejected with the stable code.
	bad := registerRequest(creator)
	bad["asset_id"] = "asset-0002"
	bad["royalty_splits"] = []map[string]interface{}{
		{"beneficiary": creator.address, "share_bps": 9999},
	}
	resp = suite.request("POST", "/v1/certificates", token, bad)
	assert.Equal(suite.T(), http.StatusBadRequest, resp.Code)
	assert.Equal(suite.T(), "INVALID_ROYALTY_SUM", errorCode(suite.T(), resp))

	// Public verification reads the ledger directly.
	resp = suite.request("GET", "/v1/certificates/asset-0001/verify", "", nil)
	suite.Require().Equal(http.StatusOK, resp.Code)

	resp = suite.request("GET", "/v1/certificates/asset-9999/verify", "", nil)
	assert.Equal(suite.T(), http.StatusNotFound, resp.Code)
}

func (suite *APITestSuite) TestLicencePurchaseFlow() {
	creator := newWallet(suite.T())
	creatorToken := suite.issueToken(creator)
	resp := suite.request("POST", "/v1/certificates", creatorToken, registerRequest(creator))
	suite.Require().Equal(http.StatusCreated, resp.Code)

	buyer := newWallet(suite.T())
	buyerToken := suite.issueToken(buyer)

	// Zero price means "pay the listed price" (50_000_000).
	resp = suite.request("POST", "/v1/licences", buyerToken, map[string]interface{}{
		"certificate_asset_id": "asset-0001",
	})
	suite.Require().Equal(http.StatusCreated, resp.Code, resp.Body.String())

	assert.Equal(suite.T(), uint64(10_000_000), suite.ledger.BalanceOf(buyer.address))
	assert.Equal(suite.T(), uint64(50_000_000), suite.ledger.BalanceOf(suite.cfg.Ledger.TreasuryWallet))

	resp = suite.request("GET", "/v1/licences/asset-0001/"+buyer.address+"/verify", "", nil)
	suite.Require().Equal(http.StatusOK, resp.Code)
	var verify struct {
		Data struct {
			Valid           bool   `json:"valid"`
			EffectiveStatus string `json:"effective_status"`
		} `json:"data"`
	}
	suite.Require().NoError(json.Unmarshal(resp.Body.Bytes(), &verify))
	assert.True(suite.T(), verify.Data.Valid)

	// Second purchase for the same pair conflicts.
	resp = suite.request("POST", "/v1/licences", buyerToken, map[string]interface{}{
		"certificate_asset_id": "asset-0001",
	})
	assert.Equal(suite.T(), http.StatusConflict, resp.Code)
	assert.Equal(suite.T(), "LICENCE_ALREADY_EXISTS", errorCode(suite.T(), resp))

	// Broke buyer cannot purchase; the faucet is spent deliberately.
	pauper := newWallet(suite.T())
	pauperToken := suite.issueToken(pauper)
	resp = suite.request("POST", "/v1/licences", pauperToken, map[string]interface{}{
		"certificate_asset_id": "asset-0001",
		"purchase_price":       70_000_000,
	})
	assert.Equal(suite.T(), http.StatusPaymentRequired, resp.Code)
	assert.Equal(suite.T(), "INSUFFICIENT_FUNDS", errorCode(suite.T(), resp))
	assert.Equal(suite.T(), uint64(60_000_000), suite.ledger.BalanceOf(pauper.address), "failed purchase moves no funds")
}

func (suite *APITestSuite) TestLicenceRevocation() {
	creator := newWallet(suite.T())
	creatorToken := suite.issueToken(creator)
	resp := suite.request("POST", "/v1/certificates", creatorToken, registerRequest(creator))
	suite.Require().Equal(http.StatusCreated, resp.Code)

	buyer := newWallet(suite.T())
	buyerToken := suite.issueToken(buyer)
	resp = suite.request("POST", "/v1/licences", buyerToken, map[string]interface{}{
		"certificate_asset_id": "asset-0001",
	})
	suite.Require().Equal(http.StatusCreated, resp.Code)

	revokeBody := map[string]string{
		"certificate_asset_id": "asset-0001",
		"buyer":                buyer.address,
	}

	// The buyer cannot revoke their own licence.
	resp = suite.request("POST", "/v1/licences/revoke", buyerToken, revokeBody)
	assert.Equal(suite.T(), http.StatusForbidden, resp.Code)
	assert.Equal(suite.T(), "UNAUTHORIZED_REVOKER", errorCode(suite.T(), resp))

	resp = suite.request("POST", "/v1/licences/revoke", creatorToken, revokeBody)
	suite.Require().Equal(http.StatusOK, resp.Code, resp.Body.String())

	resp = suite.request("GET", "/v1/licences/asset-0001/"+buyer.address+"/verify", "", nil)
	suite.Require().Equal(http.StatusOK, resp.Code)
	var verify struct {
		Data struct {
			Valid  bool   `json:"valid"`
			Status string `json:"status"`
		} `json:"data"`
	}
	suite.Require().NoError(json.Unmarshal(resp.Body.Bytes(), &verify))
	assert.False(suite.T(), verify.Data.Valid)
	assert.Equal(suite.T(), "Revoked", verify.Data.Status)

	// Revoking twice hits the terminal-status guard.
	resp = suite.request("POST", "/v1/licences/revoke", creatorToken, revokeBody)
	assert.Equal(suite.T(), http.StatusConflict, resp.Code)
	assert.Equal(suite.T(), "LICENCE_REVOKED", errorCode(suite.T(), resp))
}

func TestAPISuite(t *testing.T) {
	suite.Run(t, new(APITestSuite))
}
