// internal/services/auth_service.go
package services

import (
	"errors"
	"fmt"

	"github.com/creatorclaim/backend/internal/config"
	"github.com/creatorclaim/backend/internal/ledger"
	"github.com/creatorclaim/backend/internal/utils"
)

type AuthService struct {
	ledger *ledger.Ledger
	config *config.Config
}

type TokenRequest struct {
	WalletAddress string `json:"wallet_address" validate:"required,wallet_address"`
	Message       string `json:"message" validate:"required"`
	Signature     string `json:"signature" validate:"required"`
}

type TokenResponse struct {
	Token         string `json:"token"`
	WalletAddress string `json:"wallet_address"`
	ExpiresIn     int    `json:"expires_in"` // hours
}

func NewAuthService(ledgerHandle *ledger.Ledger, cfg *config.Config) *AuthService {
	return &AuthService{
		ledger: ledgerHandle,
		config: cfg,
	}
}

// IssueToken verifies a wallet's signature over the supplied challenge
// message and returns a bearer token carrying the wallet identity. The
// signing infrastructure is external; only the verification happens here.
func (s *AuthService) IssueToken(req *TokenRequest) (*TokenResponse, error) {
	if err := utils.ValidateStruct(req); err != nil {
		return nil, fmt.Errorf("validation failed: %w", err)
	}

	if !utils.VerifyWalletSignature(req.WalletAddress, req.Message, req.Signature) {
		return nil, errors.New("wallet signature verification failed")
	}

	token, err := utils.GenerateJWT(req.WalletAddress, s.config.JWT.AccessTokenTTL)
	if err != nil {
		return nil, fmt.Errorf("failed to generate token: %w", err)
	}

	// Development facility: fund freshly authenticated wallets so the
	// purchase flow can be exercised without an external funding step.
	if s.config.Ledger.DevFaucetAmount > 0 && s.ledger.BalanceOf(req.WalletAddress) == 0 {
		s.ledger.Airdrop(req.WalletAddress, s.config.Ledger.DevFaucetAmount)
	}

	return &TokenResponse{
		Token:         token,
		WalletAddress: req.WalletAddress,
		ExpiresIn:     s.config.JWT.AccessTokenTTL,
	}, nil
}
