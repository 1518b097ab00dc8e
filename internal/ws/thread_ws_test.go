package ws

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/mock"

	"carmart-service/internal/mocks"
)

// The read loop outlives Handle, and gin recycles the context for the next
// request as soon as Handle returns. Cycling sockets while other requests
// churn the context pool exercises that window.
func TestThreadSocketConnectDisconnectUnderLoad(t *testing.T) {
	gin.SetMode(gin.TestMode)

	verifier := new(mocks.VerifierMock)
	verifier.On("Verify", mock.Anything, "socket-token").Return(7, nil)
	threadRepo := new(mocks.ThreadRepositoryMock)
	threadRepo.On("IsParticipant", mock.Anything, 1, 7).Return(true, nil)

	handler := NewThreadWebSocketHandler(NewHub(), threadRepo, verifier)
	router := gin.New()
	router.GET("/ws/threads/:thread_id", handler.Handle)
	router.GET("/ok", func(c *gin.Context) { c.Status(http.StatusOK) })

	srv := httptest.NewServer(router)
	defer srv.Close()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for i := 0; i < 200; i++ {
			resp, err := http.Get(srv.URL + "/ok")
			if err != nil {
				return
			}
			resp.Body.Close()
		}
	}()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/threads/1?token=socket-token"
	for i := 0; i < 40; i++ {
		conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
		if err != nil {
			t.Fatalf("dial %d: %v", i, err)
		}
		conn.Close()
	}
	<-done
}

func TestThreadSocketRejectsNonParticipant(t *testing.T) {
	gin.SetMode(gin.TestMode)

	verifier := new(mocks.VerifierMock)
	verifier.On("Verify", mock.Anything, "socket-token").Return(9, nil)
	threadRepo := new(mocks.ThreadRepositoryMock)
	threadRepo.On("IsParticipant", mock.Anything, 1, 9).Return(false, nil)

	handler := NewThreadWebSocketHandler(NewHub(), threadRepo, verifier)
	router := gin.New()
	router.GET("/ws/threads/:thread_id", handler.Handle)

	srv := httptest.NewServer(router)
	defer srv.Close()

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/threads/1?token=socket-token"
	if _, resp, err := websocket.DefaultDialer.Dial(wsURL, nil); err == nil {
		t.Fatalf("expected handshake to fail for non-participant")
	} else if resp == nil || resp.StatusCode != http.StatusForbidden {
		t.Fatalf("expected 403 handshake response, got %+v", resp)
	}
}
