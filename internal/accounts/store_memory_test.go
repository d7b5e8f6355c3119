package accounts

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"verifica/pkg/platform/sentinel"
	txcontext "verifica/pkg/platform/tx"
)

func TestSetStatusIdempotent(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	s.Seed(Profile{ProviderID: "prov-1", Name: "Ana Souza"})

	update := StatusUpdate{
		Status:    StatusActive,
		DecidedAt: time.Date(2026, 2, 1, 10, 0, 0, 0, time.UTC),
		DecidedBy: "op-ana",
	}

	require.NoError(t, s.SetStatus(ctx, "prov-1", update))
	require.NoError(t, s.SetStatus(ctx, "prov-1", update))

	state, ok := s.Account("prov-1")
	require.True(t, ok)
	assert.Equal(t, StatusActive, state.Status)
	assert.Equal(t, 1, state.StatusWriteSeen, "repeating the same status must be a no-op")
}

func TestSetStatusUnknownProviderIsNoOp(t *testing.T) {
	// The postgres store's UPDATE matches zero rows for a missing account;
	// the fake agrees so both stacks let such approvals through.
	s := NewInMemoryStore()
	err := s.SetStatus(context.Background(), "prov-none", StatusUpdate{Status: StatusActive})
	assert.NoError(t, err)

	_, ok := s.Account("prov-none")
	assert.False(t, ok)
}

func TestSetStatusStagedWrite(t *testing.T) {
	ctx := context.Background()
	s := NewInMemoryStore()
	s.Seed(Profile{ProviderID: "prov-1"})

	stagedCtx, stage := txcontext.WithStage(ctx)
	require.NoError(t, s.SetStatus(stagedCtx, "prov-1", StatusUpdate{Status: StatusActive}))

	state, _ := s.Account("prov-1")
	assert.Equal(t, AccountStatus(""), state.Status, "staged write must not be visible before commit")

	require.NoError(t, stage.Commit())
	state, _ = s.Account("prov-1")
	assert.Equal(t, StatusActive, state.Status)
}

func TestGetProfile(t *testing.T) {
	s := NewInMemoryStore()
	s.Seed(Profile{ProviderID: "prov-1", Name: "Ana Souza", Email: "ana@example.com"})

	profile, err := s.GetProfile(context.Background(), "prov-1")
	require.NoError(t, err)
	assert.Equal(t, "Ana Souza", profile.Name)

	_, err = s.GetProfile(context.Background(), "prov-none")
	assert.ErrorIs(t, err, sentinel.ErrNotFound)
}
