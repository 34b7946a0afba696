package services

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/outreachly/outreachly-backend/models"
	"github.com/outreachly/outreachly-backend/repository"
	"github.com/outreachly/outreachly-backend/utils"
	"golang.org/x/crypto/chacha20poly1305"
)

// Session is a usable messaging credential for one sender account. It never
// touches the database in this form; the sealed blob on the account row is
// the only persisted representation.
type Session struct {
	AccountID   uint
	IGUserID    string
	Username    string
	AuthMethod  models.SenderAccountAuthMethod
	AccessToken string
	ExpiresAt   *time.Time
}

// sessionCredential is the plaintext layout of the sealed blob
type sessionCredential struct {
	AccessToken string     `json:"access_token"`
	ExpiresAt   *time.Time `json:"expires_at,omitempty"`
}

// CredentialSealer seals and opens sender account credentials with
// XChaCha20-Poly1305
type CredentialSealer struct {
	key []byte
}

// NewCredentialSealer creates a sealer from a hex-encoded 32-byte key
func NewCredentialSealer(hexKey string) (*CredentialSealer, error) {
	key, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, fmt.Errorf("credential key is not valid hex: %w", err)
	}
	if len(key) != chacha20poly1305.KeySize {
		return nil, fmt.Errorf("credential key must be %d bytes, got %d", chacha20poly1305.KeySize, len(key))
	}
	return &CredentialSealer{key: key}, nil
}

// Seal encrypts an access token and optional expiry into a storable blob.
// The random nonce is prepended to the ciphertext.
func (s *CredentialSealer) Seal(accessToken string, expiresAt *time.Time) ([]byte, error) {
	plaintext, err := json.Marshal(sessionCredential{AccessToken: accessToken, ExpiresAt: expiresAt})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal credential: %w", err)
	}

	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	nonce := make([]byte, aead.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("failed to generate nonce: %w", err)
	}

	return aead.Seal(nonce, nonce, plaintext, nil), nil
}

// Open decrypts a sealed credential blob
func (s *CredentialSealer) Open(sealed []byte) (*sessionCredential, error) {
	aead, err := chacha20poly1305.NewX(s.key)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}
	if len(sealed) < aead.NonceSize() {
		return nil, fmt.Errorf("sealed credential too short")
	}

	nonce, ciphertext := sealed[:aead.NonceSize()], sealed[aead.NonceSize():]
	plaintext, err := aead.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open sealed credential: %w", err)
	}

	var cred sessionCredential
	if err := json.Unmarshal(plaintext, &cred); err != nil {
		return nil, fmt.Errorf("failed to unmarshal credential: %w", err)
	}
	return &cred, nil
}

// SessionService resolves sender accounts into usable messaging sessions
type SessionService interface {
	// SessionForAccount returns the account's session, or nil with no error
	// when the account has no usable session (missing, inactive, expired, or
	// undecryptable credential). Errors are reserved for lookup failures.
	SessionForAccount(ctx context.Context, accountID uint) (*Session, error)
}

// SessionServiceImpl implements SessionService
type SessionServiceImpl struct {
	accountRepo repository.SenderAccountRepository
	sealer      *CredentialSealer
	logger      *log.Logger
}

// NewSessionService creates a new session service
func NewSessionService(accountRepo repository.SenderAccountRepository, sealer *CredentialSealer, logger *log.Logger) SessionService {
	return &SessionServiceImpl{
		accountRepo: accountRepo,
		sealer:      sealer,
		logger:      logger,
	}
}

// SessionForAccount resolves the account's sealed credential into a session
func (s *SessionServiceImpl) SessionForAccount(ctx context.Context, accountID uint) (*Session, error) {
	account, err := s.accountRepo.ByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to load sender account %d: %w", accountID, err)
	}
	if account == nil {
		s.logger.Printf("session: account %d not found", accountID)
		return nil, nil
	}
	if !utils.IsTrue(account.IsActive) {
		s.logger.Printf("session: account %d (%s) is inactive", accountID, account.Username)
		return nil, nil
	}
	if len(account.EncryptedCredential) == 0 {
		s.logger.Printf("session: account %d (%s) has no stored credential", accountID, account.Username)
		return nil, nil
	}

	cred, err := s.sealer.Open(account.EncryptedCredential)
	if err != nil {
		// Undecryptable blobs are treated the same as missing credentials;
		// the account keeps getting skipped until it is reconnected.
		s.logger.Printf("session: account %d (%s) credential unreadable: %v", accountID, account.Username, err)
		return nil, nil
	}
	if cred.ExpiresAt != nil && utils.IsExpired(*cred.ExpiresAt) {
		s.logger.Printf("session: account %d (%s) credential expired at %s", accountID, account.Username, cred.ExpiresAt.Format(time.RFC3339))
		return nil, nil
	}

	return &Session{
		AccountID:   account.ID,
		IGUserID:    account.IGUserID,
		Username:    account.Username,
		AuthMethod:  account.AuthMethod,
		AccessToken: cred.AccessToken,
		ExpiresAt:   cred.ExpiresAt,
	}, nil
}

// MockSessionService implements SessionService for testing
type MockSessionService struct {
	Sessions map[uint]*Session
}

// NewMockSessionService creates a mock session service
func NewMockSessionService() *MockSessionService {
	return &MockSessionService{Sessions: make(map[uint]*Session)}
}

// SessionForAccount returns the registered session, or nil when absent
func (m *MockSessionService) SessionForAccount(ctx context.Context, accountID uint) (*Session, error) {
	return m.Sessions[accountID], nil
}
