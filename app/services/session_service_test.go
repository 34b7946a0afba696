package services

import (
	"context"
	"encoding/hex"
	"log"
	"os"
	"testing"
	"time"

	"github.com/outreachly/outreachly-backend/models"
	"github.com/outreachly/outreachly-backend/repository"
	"github.com/outreachly/outreachly-backend/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testCredentialKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

type stubAccountRepo struct {
	repository.SenderAccountRepository
	accounts map[uint]*models.SenderAccount
}

func (f *stubAccountRepo) ByID(ctx context.Context, id uint) (*models.SenderAccount, error) {
	return f.accounts[id], nil
}

func newSessionFixture(t *testing.T) (SessionService, *stubAccountRepo, *CredentialSealer) {
	t.Helper()

	sealer, err := NewCredentialSealer(testCredentialKey)
	require.NoError(t, err)

	repo := &stubAccountRepo{accounts: make(map[uint]*models.SenderAccount)}
	svc := NewSessionService(repo, sealer, log.New(os.Stderr, "", 0))
	return svc, repo, sealer
}

func TestNewCredentialSealerRejectsBadKeys(t *testing.T) {
	_, err := NewCredentialSealer("not-hex")
	assert.Error(t, err)

	_, err = NewCredentialSealer("deadbeef")
	assert.Error(t, err)

	_, err = NewCredentialSealer(testCredentialKey)
	assert.NoError(t, err)
}

func TestSealOpenRoundTrip(t *testing.T) {
	sealer, err := NewCredentialSealer(testCredentialKey)
	require.NoError(t, err)

	expiry := time.Date(2027, 1, 1, 0, 0, 0, 0, time.UTC)
	sealed, err := sealer.Seal("IGQVJ-access-token", &expiry)
	require.NoError(t, err)
	assert.NotContains(t, string(sealed), "IGQVJ-access-token")

	cred, err := sealer.Open(sealed)
	require.NoError(t, err)
	assert.Equal(t, "IGQVJ-access-token", cred.AccessToken)
	require.NotNil(t, cred.ExpiresAt)
	assert.True(t, expiry.Equal(*cred.ExpiresAt))
}

func TestSealProducesUniqueBlobs(t *testing.T) {
	sealer, err := NewCredentialSealer(testCredentialKey)
	require.NoError(t, err)

	first, err := sealer.Seal("token", nil)
	require.NoError(t, err)
	second, err := sealer.Seal("token", nil)
	require.NoError(t, err)

	// Random nonces keep identical plaintexts from sealing identically
	assert.NotEqual(t, first, second)
}

func TestOpenRejectsTamperedBlob(t *testing.T) {
	sealer, err := NewCredentialSealer(testCredentialKey)
	require.NoError(t, err)

	sealed, err := sealer.Seal("token", nil)
	require.NoError(t, err)

	sealed[len(sealed)-1] ^= 0xff
	_, err = sealer.Open(sealed)
	assert.Error(t, err)

	_, err = sealer.Open([]byte("short"))
	assert.Error(t, err)
}

func TestOpenRejectsWrongKey(t *testing.T) {
	sealer, err := NewCredentialSealer(testCredentialKey)
	require.NoError(t, err)

	otherKey := hex.EncodeToString(make([]byte, 32))
	other, err := NewCredentialSealer(otherKey)
	require.NoError(t, err)

	sealed, err := sealer.Seal("token", nil)
	require.NoError(t, err)

	_, err = other.Open(sealed)
	assert.Error(t, err)
}

func TestSessionForAccountResolvesCredential(t *testing.T) {
	svc, repo, sealer := newSessionFixture(t)

	expiry := utils.UTCNow().Add(time.Hour)
	sealed, err := sealer.Seal("live-token", &expiry)
	require.NoError(t, err)

	repo.accounts[1] = &models.SenderAccount{
		ID:                  1,
		WorkspaceID:         42,
		IGUserID:            "17841000000001",
		Username:            "sender_one",
		AuthMethod:          models.SenderAccountAuthOAuth,
		EncryptedCredential: sealed,
		IsActive:            utils.ToPtr(true),
	}

	session, err := svc.SessionForAccount(context.Background(), 1)
	require.NoError(t, err)
	require.NotNil(t, session)
	assert.Equal(t, uint(1), session.AccountID)
	assert.Equal(t, "17841000000001", session.IGUserID)
	assert.Equal(t, "sender_one", session.Username)
	assert.Equal(t, "live-token", session.AccessToken)
}

func TestSessionForAccountNilCases(t *testing.T) {
	svc, repo, sealer := newSessionFixture(t)

	sealed, err := sealer.Seal("live-token", nil)
	require.NoError(t, err)

	pastExpiry := utils.UTCNow().Add(-time.Hour)
	expiredSealed, err := sealer.Seal("stale-token", &pastExpiry)
	require.NoError(t, err)

	repo.accounts[2] = &models.SenderAccount{
		ID: 2, Username: "inactive", EncryptedCredential: sealed, IsActive: utils.ToPtr(false),
	}
	repo.accounts[3] = &models.SenderAccount{
		ID: 3, Username: "no_credential", IsActive: utils.ToPtr(true),
	}
	repo.accounts[4] = &models.SenderAccount{
		ID: 4, Username: "garbage", EncryptedCredential: []byte("not a sealed blob"), IsActive: utils.ToPtr(true),
	}
	repo.accounts[5] = &models.SenderAccount{
		ID: 5, Username: "expired", EncryptedCredential: expiredSealed, IsActive: utils.ToPtr(true),
	}

	for _, accountID := range []uint{99, 2, 3, 4, 5} {
		session, err := svc.SessionForAccount(context.Background(), accountID)
		require.NoError(t, err, "account %d", accountID)
		assert.Nil(t, session, "account %d should have no session", accountID)
	}
}
