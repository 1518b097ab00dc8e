package repositories

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"
)

// Input validation happens before any storage round trip, so these run
// against repos with no database behind them.

func TestAppendMessageRejectsBlankContent(t *testing.T) {
	repo := NewMessageRepo(nil)

	_, err := repo.AppendMessage(context.Background(), 1, 1, "")
	require.ErrorIs(t, err, ErrEmptyContent)

	_, err = repo.AppendMessage(context.Background(), 1, 1, "  \t ")
	require.ErrorIs(t, err, ErrEmptyContent)
}

func TestAppendBidRejectsNonPositiveAmount(t *testing.T) {
	repo := NewBidRepo(nil)

	_, err := repo.AppendBid(context.Background(), 1, 1, -5)
	require.ErrorIs(t, err, ErrInvalidAmount)

	_, err = repo.AppendBid(context.Background(), 1, 1, 0)
	require.ErrorIs(t, err, ErrInvalidAmount)
}

func TestResolveOrCreateRejectsSelfThread(t *testing.T) {
	repo := NewThreadRepo(nil)

	_, err := repo.ResolveOrCreate(context.Background(), 1, 7, 7)
	require.ErrorIs(t, err, ErrSelfThread)
}
