package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"upiguard/internal/domain/models"
	"upiguard/internal/domain/services"
)

func TestStore_BlacklistOrdering(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := s.ReportBlacklist(ctx, models.BlacklistReport{Identifier: "prize.claim@ybl"})
		require.NoError(t, err)
	}
	_, err := s.ReportBlacklist(ctx, models.BlacklistReport{Identifier: "fake-kyc.xyz", Severity: models.SeverityCritical})
	require.NoError(t, err)

	list, err := s.ListBlacklist(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "prize.claim@ybl", list[0].Identifier)
	assert.Equal(t, 3, list[0].ReportedCount)
	assert.Equal(t, models.SeverityMedium, list[0].Severity)
	assert.Equal(t, models.IdentifierDomain, list[1].IdentifierType)
	assert.Equal(t, models.SeverityCritical, list[1].Severity)

	list, err = s.ListBlacklist(ctx, 1, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "fake-kyc.xyz", list[0].Identifier)

	list, err = s.ListBlacklist(ctx, 10, 5)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestStore_LookupReturnsCopy(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_, err := s.ReportBlacklist(ctx, models.BlacklistReport{Identifier: "scam@ybl", Reason: "fake refund"})
	require.NoError(t, err)

	e, err := s.LookupBlacklist(ctx, "SCAM@ybl")
	require.NoError(t, err)
	require.NotNil(t, e)
	e.ReportedCount = 99

	again, err := s.LookupBlacklist(ctx, "scam@ybl")
	require.NoError(t, err)
	assert.Equal(t, 1, again.ReportedCount)

	missing, err := s.LookupBlacklist(ctx, "nobody@ybl")
	require.NoError(t, err)
	assert.Nil(t, missing)
}

func TestStore_RecentTransactions(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	userID := uuid.New()

	for _, amount := range []float64{10, 20, 30} {
		require.NoError(t, s.RecordTransaction(ctx, &models.TransactionRecord{UserID: userID, Amount: amount, ReceiverUPIID: "a@ybl"}))
	}

	recent, err := s.RecentTransactions(ctx, userID, 2)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, 30.0, recent[0].Amount)
	assert.Equal(t, 20.0, recent[1].Amount)
	assert.NotEqual(t, uuid.Nil, recent[0].ID)

	none, err := s.RecentTransactions(ctx, uuid.New(), 10)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestStore_ProfileIsolation(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	userID := uuid.New()

	p, err := s.GetProfile(ctx, userID)
	require.NoError(t, err)
	assert.Nil(t, p)

	now := time.Now()
	profile := &models.BehaviorProfile{
		UserID:                  userID,
		TransactionCount:        1,
		TypicalTransactionHours: []int{9},
		KnownDevices:            []string{"pixel"},
		LastTransactionAt:       &now,
	}
	require.NoError(t, s.UpsertProfile(ctx, profile))
	profile.TypicalTransactionHours[0] = 23

	stored, err := s.GetProfile(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []int{9}, stored.TypicalTransactionHours)
}

func TestStore_Contacts(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	userID := uuid.New()

	c := &models.TrustedContact{UserID: userID, UPIID: "ravi@okaxis", Status: models.ContactTrusted}
	require.NoError(t, s.CreateContact(ctx, c))
	firstID := c.ID

	dup := &models.TrustedContact{ID: uuid.New(), UserID: userID, UPIID: "RAVI@okaxis", Status: models.ContactFlagged}
	require.NoError(t, s.CreateContact(ctx, dup))
	assert.Equal(t, firstID, dup.ID)

	list, err := s.ListContacts(ctx, userID)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, models.ContactFlagged, list[0].Status)

	updated, err := s.UpdateContactStatus(ctx, userID, firstID, models.ContactNew)
	require.NoError(t, err)
	assert.Equal(t, models.ContactNew, updated.Status)

	_, err = s.UpdateContactStatus(ctx, uuid.New(), firstID, models.ContactNew)
	assert.ErrorIs(t, err, services.ErrNotFound)
}
