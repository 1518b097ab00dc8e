package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"carmart-service/internal/auth"
	"carmart-service/internal/models"
	"carmart-service/internal/repositories"
)

type ThreadRepositoryMock struct {
	mock.Mock
}

func (m *ThreadRepositoryMock) ResolveOrCreate(ctx context.Context, listingID int, userA int, userB int) (models.Thread, error) {
	args := m.Called(ctx, listingID, userA, userB)
	var thread models.Thread
	if val := args.Get(0); val != nil {
		thread = val.(models.Thread)
	}
	return thread, args.Error(1)
}

func (m *ThreadRepositoryMock) IsParticipant(ctx context.Context, threadID int, userID int) (bool, error) {
	args := m.Called(ctx, threadID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *ThreadRepositoryMock) GetThread(ctx context.Context, threadID int) (models.Thread, error) {
	args := m.Called(ctx, threadID)
	var thread models.Thread
	if val := args.Get(0); val != nil {
		thread = val.(models.Thread)
	}
	return thread, args.Error(1)
}

func (m *ThreadRepositoryMock) ListThreadsForUser(ctx context.Context, userID int) ([]models.ThreadSummary, error) {
	args := m.Called(ctx, userID)
	var list []models.ThreadSummary
	if val := args.Get(0); val != nil {
		list = val.([]models.ThreadSummary)
	}
	return list, args.Error(1)
}

type MessageRepositoryMock struct {
	mock.Mock
}

func (m *MessageRepositoryMock) AppendMessage(ctx context.Context, threadID int, senderID int, content string) (models.ThreadMessage, error) {
	args := m.Called(ctx, threadID, senderID, content)
	var msg models.ThreadMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.ThreadMessage)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) ListForThread(ctx context.Context, threadID int) ([]models.ThreadMessage, error) {
	args := m.Called(ctx, threadID)
	var msgs []models.ThreadMessage
	if val := args.Get(0); val != nil {
		msgs = val.([]models.ThreadMessage)
	}
	return msgs, args.Error(1)
}

func (m *MessageRepositoryMock) GetMessage(ctx context.Context, threadID int, messageID int) (models.ThreadMessage, error) {
	args := m.Called(ctx, threadID, messageID)
	var msg models.ThreadMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.ThreadMessage)
	}
	return msg, args.Error(1)
}

func (m *MessageRepositoryMock) MarkRead(ctx context.Context, threadID int, messageID int) (models.ThreadMessage, error) {
	args := m.Called(ctx, threadID, messageID)
	var msg models.ThreadMessage
	if val := args.Get(0); val != nil {
		msg = val.(models.ThreadMessage)
	}
	return msg, args.Error(1)
}

type BidRepositoryMock struct {
	mock.Mock
}

func (m *BidRepositoryMock) AppendBid(ctx context.Context, listingID int, bidderID int, amount float64) (models.Bid, error) {
	args := m.Called(ctx, listingID, bidderID, amount)
	var bid models.Bid
	if val := args.Get(0); val != nil {
		bid = val.(models.Bid)
	}
	return bid, args.Error(1)
}

func (m *BidRepositoryMock) ListBids(ctx context.Context, listingID int) ([]models.Bid, error) {
	args := m.Called(ctx, listingID)
	var bids []models.Bid
	if val := args.Get(0); val != nil {
		bids = val.([]models.Bid)
	}
	return bids, args.Error(1)
}

func (m *BidRepositoryMock) HighestBid(ctx context.Context, listingID int) (models.Bid, error) {
	args := m.Called(ctx, listingID)
	var bid models.Bid
	if val := args.Get(0); val != nil {
		bid = val.(models.Bid)
	}
	return bid, args.Error(1)
}

type CatalogRepositoryMock struct {
	mock.Mock
}

func (m *CatalogRepositoryMock) GetListing(ctx context.Context, listingID int) (models.Listing, error) {
	args := m.Called(ctx, listingID)
	var listing models.Listing
	if val := args.Get(0); val != nil {
		listing = val.(models.Listing)
	}
	return listing, args.Error(1)
}

func (m *CatalogRepositoryMock) UserExists(ctx context.Context, userID int) (bool, error) {
	args := m.Called(ctx, userID)
	return args.Bool(0), args.Error(1)
}

func (m *CatalogRepositoryMock) BulkUsernames(ctx context.Context, userIDs []int) (map[int]string, error) {
	args := m.Called(ctx, userIDs)
	var names map[int]string
	if val := args.Get(0); val != nil {
		names = val.(map[int]string)
	}
	return names, args.Error(1)
}

type HighestBidCacheMock struct {
	mock.Mock
}

func (m *HighestBidCacheMock) RecordBid(ctx context.Context, bid models.Bid) error {
	args := m.Called(ctx, bid)
	return args.Error(0)
}

func (m *HighestBidCacheMock) Highest(ctx context.Context, listingID int) (models.HighestBid, error) {
	args := m.Called(ctx, listingID)
	var highest models.HighestBid
	if val := args.Get(0); val != nil {
		highest = val.(models.HighestBid)
	}
	return highest, args.Error(1)
}

type VerifierMock struct {
	mock.Mock
}

func (m *VerifierMock) Verify(ctx context.Context, token string) (int, error) {
	args := m.Called(ctx, token)
	return args.Int(0), args.Error(1)
}

var _ auth.TokenVerifier = (*VerifierMock)(nil)
var _ repositories.ThreadRepository = (*ThreadRepositoryMock)(nil)
var _ repositories.MessageRepository = (*MessageRepositoryMock)(nil)
var _ repositories.BidRepository = (*BidRepositoryMock)(nil)
var _ repositories.CatalogRepository = (*CatalogRepositoryMock)(nil)
