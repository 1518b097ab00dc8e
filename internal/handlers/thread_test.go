package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"carmart-service/internal/mocks"
	"carmart-service/internal/models"
	"carmart-service/internal/repositories"
	"carmart-service/internal/ws"
)

func setupThreadRouter(handler *ThreadHandler) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		c.Set("userID", 1)
		c.Next()
	})
	r.POST("/listings/:listing_id/messages", handler.SendMessage)
	r.GET("/threads", handler.ListThreads)
	r.GET("/threads/:thread_id", handler.GetThread)
	r.POST("/threads/:thread_id/messages/:message_id/read", handler.MarkRead)
	return r
}

func TestSendMessageSuccess(t *testing.T) {
	threadRepo := new(mocks.ThreadRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	catalogRepo := new(mocks.CatalogRepositoryMock)
	hub := ws.NewHub()
	handler := NewThreadHandler(threadRepo, messageRepo, catalogRepo, hub)
	router := setupThreadRouter(handler)

	catalogRepo.On("GetListing", mock.Anything, 9).Return(models.Listing{ID: 9, Title: "2014 Golf"}, nil).Once()
	catalogRepo.On("UserExists", mock.Anything, 2).Return(true, nil).Once()
	threadRepo.On("ResolveOrCreate", mock.Anything, 9, 1, 2).Return(models.Thread{ID: 5, ListingID: 9, User1ID: 1, User2ID: 2}, nil).Once()
	messageRepo.On("AppendMessage", mock.Anything, 5, 1, "is it still available?").
		Return(models.ThreadMessage{ID: 7, ThreadID: 5, SenderID: 1, Content: "is it still available?"}, nil).Once()

	body := bytes.NewBufferString(`{"receiver_id":2,"content":"is it still available?"}`)
	req := httptest.NewRequest(http.MethodPost, "/listings/9/messages", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	var resp struct {
		ThreadID int                  `json:"thread_id"`
		Message  models.ThreadMessage `json:"message"`
	}
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	assert.Equal(t, 5, resp.ThreadID)
	assert.Equal(t, 7, resp.Message.ID)

	threadRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
	catalogRepo.AssertExpectations(t)
}

func TestSendMessageListingNotFound(t *testing.T) {
	catalogRepo := new(mocks.CatalogRepositoryMock)
	handler := NewThreadHandler(new(mocks.ThreadRepositoryMock), new(mocks.MessageRepositoryMock), catalogRepo, ws.NewHub())
	router := setupThreadRouter(handler)

	catalogRepo.On("GetListing", mock.Anything, 404).Return(models.Listing{}, repositories.ErrListingNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/listings/404/messages", bytes.NewBufferString(`{"receiver_id":2,"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
	catalogRepo.AssertExpectations(t)
}

func TestSendMessageUnknownReceiver(t *testing.T) {
	catalogRepo := new(mocks.CatalogRepositoryMock)
	handler := NewThreadHandler(new(mocks.ThreadRepositoryMock), new(mocks.MessageRepositoryMock), catalogRepo, ws.NewHub())
	router := setupThreadRouter(handler)

	catalogRepo.On("GetListing", mock.Anything, 9).Return(models.Listing{ID: 9}, nil).Once()
	catalogRepo.On("UserExists", mock.Anything, 99).Return(false, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/listings/9/messages", bytes.NewBufferString(`{"receiver_id":99,"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	catalogRepo.AssertExpectations(t)
}

func TestSendMessageToSelf(t *testing.T) {
	threadRepo := new(mocks.ThreadRepositoryMock)
	catalogRepo := new(mocks.CatalogRepositoryMock)
	handler := NewThreadHandler(threadRepo, new(mocks.MessageRepositoryMock), catalogRepo, ws.NewHub())
	router := setupThreadRouter(handler)

	catalogRepo.On("GetListing", mock.Anything, 9).Return(models.Listing{ID: 9}, nil).Once()
	catalogRepo.On("UserExists", mock.Anything, 1).Return(true, nil).Once()
	threadRepo.On("ResolveOrCreate", mock.Anything, 9, 1, 1).Return(models.Thread{}, repositories.ErrSelfThread).Once()

	req := httptest.NewRequest(http.MethodPost, "/listings/9/messages", bytes.NewBufferString(`{"receiver_id":1,"content":"hi"}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	threadRepo.AssertExpectations(t)
}

func TestSendMessageBlankContent(t *testing.T) {
	threadRepo := new(mocks.ThreadRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	catalogRepo := new(mocks.CatalogRepositoryMock)
	handler := NewThreadHandler(threadRepo, messageRepo, catalogRepo, ws.NewHub())
	router := setupThreadRouter(handler)

	catalogRepo.On("GetListing", mock.Anything, 9).Return(models.Listing{ID: 9}, nil).Once()
	catalogRepo.On("UserExists", mock.Anything, 2).Return(true, nil).Once()
	threadRepo.On("ResolveOrCreate", mock.Anything, 9, 1, 2).Return(models.Thread{ID: 5, User1ID: 1, User2ID: 2}, nil).Once()
	messageRepo.On("AppendMessage", mock.Anything, 5, 1, "   ").Return(models.ThreadMessage{}, repositories.ErrEmptyContent).Once()

	req := httptest.NewRequest(http.MethodPost, "/listings/9/messages", bytes.NewBufferString(`{"receiver_id":2,"content":"   "}`))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	messageRepo.AssertExpectations(t)
}

func TestListThreadsSuccess(t *testing.T) {
	threadRepo := new(mocks.ThreadRepositoryMock)
	catalogRepo := new(mocks.CatalogRepositoryMock)
	handler := NewThreadHandler(threadRepo, new(mocks.MessageRepositoryMock), catalogRepo, nil)
	router := setupThreadRouter(handler)

	threadRepo.On("ListThreadsForUser", mock.Anything, 1).
		Return([]models.ThreadSummary{{ThreadID: 3, ListingID: 9, CounterpartID: 2}}, nil).Once()
	catalogRepo.On("BulkUsernames", mock.Anything, []int{2}).Return(map[int]string{2: "bob"}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/threads", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))

	threadRepo.AssertExpectations(t)
	catalogRepo.AssertExpectations(t)
}

func TestListThreadsRepoError(t *testing.T) {
	threadRepo := new(mocks.ThreadRepositoryMock)
	handler := NewThreadHandler(threadRepo, new(mocks.MessageRepositoryMock), new(mocks.CatalogRepositoryMock), nil)
	router := setupThreadRouter(handler)

	threadRepo.On("ListThreadsForUser", mock.Anything, 1).Return(([]models.ThreadSummary)(nil), assert.AnError).Once()

	req := httptest.NewRequest(http.MethodGet, "/threads", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusInternalServerError, rec.Code)
	threadRepo.AssertExpectations(t)
}

func TestGetThreadSuccess(t *testing.T) {
	threadRepo := new(mocks.ThreadRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewThreadHandler(threadRepo, messageRepo, new(mocks.CatalogRepositoryMock), nil)
	router := setupThreadRouter(handler)

	threadRepo.On("GetThread", mock.Anything, 5).Return(models.Thread{ID: 5, User1ID: 1, User2ID: 2}, nil).Once()
	messageRepo.On("ListForThread", mock.Anything, 5).
		Return([]models.ThreadMessage{{ID: 1, ThreadID: 5, SenderID: 2, Content: "hello"}}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/threads/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	threadRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestGetThreadForbiddenForOutsider(t *testing.T) {
	threadRepo := new(mocks.ThreadRepositoryMock)
	handler := NewThreadHandler(threadRepo, new(mocks.MessageRepositoryMock), new(mocks.CatalogRepositoryMock), nil)
	router := setupThreadRouter(handler)

	// authenticated user 1 is not in the thread
	threadRepo.On("GetThread", mock.Anything, 5).Return(models.Thread{ID: 5, User1ID: 2, User2ID: 3}, nil).Once()

	req := httptest.NewRequest(http.MethodGet, "/threads/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	threadRepo.AssertExpectations(t)
}

func TestGetThreadNotFound(t *testing.T) {
	threadRepo := new(mocks.ThreadRepositoryMock)
	handler := NewThreadHandler(threadRepo, new(mocks.MessageRepositoryMock), new(mocks.CatalogRepositoryMock), nil)
	router := setupThreadRouter(handler)

	threadRepo.On("GetThread", mock.Anything, 5).Return(models.Thread{}, repositories.ErrThreadNotFound).Once()

	req := httptest.NewRequest(http.MethodGet, "/threads/5", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestMarkReadSuccess(t *testing.T) {
	threadRepo := new(mocks.ThreadRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewThreadHandler(threadRepo, messageRepo, new(mocks.CatalogRepositoryMock), ws.NewHub())
	router := setupThreadRouter(handler)

	threadRepo.On("GetThread", mock.Anything, 5).Return(models.Thread{ID: 5, User1ID: 1, User2ID: 2}, nil).Once()
	messageRepo.On("MarkRead", mock.Anything, 5, 7).
		Return(models.ThreadMessage{ID: 7, ThreadID: 5, SenderID: 2, Content: "hello", IsRead: true}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/threads/5/messages/7/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var msg models.ThreadMessage
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&msg))
	assert.True(t, msg.IsRead)

	threadRepo.AssertExpectations(t)
	messageRepo.AssertExpectations(t)
}

func TestMarkReadIdempotent(t *testing.T) {
	threadRepo := new(mocks.ThreadRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewThreadHandler(threadRepo, messageRepo, new(mocks.CatalogRepositoryMock), ws.NewHub())
	router := setupThreadRouter(handler)

	threadRepo.On("GetThread", mock.Anything, 5).Return(models.Thread{ID: 5, User1ID: 1, User2ID: 2}, nil).Twice()
	messageRepo.On("MarkRead", mock.Anything, 5, 7).
		Return(models.ThreadMessage{ID: 7, ThreadID: 5, IsRead: true}, nil).Twice()

	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/threads/5/messages/7/read", nil)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	messageRepo.AssertExpectations(t)
}

func TestMarkReadForbiddenForOutsider(t *testing.T) {
	threadRepo := new(mocks.ThreadRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewThreadHandler(threadRepo, messageRepo, new(mocks.CatalogRepositoryMock), nil)
	router := setupThreadRouter(handler)

	threadRepo.On("GetThread", mock.Anything, 5).Return(models.Thread{ID: 5, User1ID: 2, User2ID: 3}, nil).Once()

	req := httptest.NewRequest(http.MethodPost, "/threads/5/messages/7/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusForbidden, rec.Code)
	messageRepo.AssertNotCalled(t, "MarkRead", mock.Anything, mock.Anything, mock.Anything)
}

func TestMarkReadMessageNotFound(t *testing.T) {
	threadRepo := new(mocks.ThreadRepositoryMock)
	messageRepo := new(mocks.MessageRepositoryMock)
	handler := NewThreadHandler(threadRepo, messageRepo, new(mocks.CatalogRepositoryMock), nil)
	router := setupThreadRouter(handler)

	threadRepo.On("GetThread", mock.Anything, 5).Return(models.Thread{ID: 5, User1ID: 1, User2ID: 2}, nil).Once()
	messageRepo.On("MarkRead", mock.Anything, 5, 7).Return(models.ThreadMessage{}, repositories.ErrMessageNotFound).Once()

	req := httptest.NewRequest(http.MethodPost, "/threads/5/messages/7/read", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusNotFound, rec.Code)
}

func TestGetThreadInvalidID(t *testing.T) {
	handler := NewThreadHandler(new(mocks.ThreadRepositoryMock), new(mocks.MessageRepositoryMock), new(mocks.CatalogRepositoryMock), nil)
	router := setupThreadRouter(handler)

	req := httptest.NewRequest(http.MethodGet, "/threads/abc", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusBadRequest, rec.Code)
}
