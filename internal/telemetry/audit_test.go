package telemetry

import (
	"context"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"carmart-service/internal/mocks"
)

func TestAuditEmitterPublishesEnvelope(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	var published AuditEnvelope
	publisher.On("Publish", mock.Anything, "audit.logs", mock.Anything).
		Run(func(args mock.Arguments) {
			published = args.Get(2).(AuditEnvelope)
		}).
		Return(nil).Once()

	emitter := NewAuditEmitter(publisher, "audit.logs", "carmart-service", "test")
	emitter.EmitForUser(context.Background(), "info", "bid placed", "req-1", 7)

	publisher.AssertExpectations(t)
	require.Equal(t, 1, published.SchemaVersion)
	require.Equal(t, "audit_log", published.EventType)
	require.Equal(t, "carmart-service", published.Service)
	require.Equal(t, "test", published.Environment)
	require.Equal(t, "req-1", published.RequestID)
	require.NotNil(t, published.UserID)
	require.Equal(t, "7", *published.UserID)
	require.Equal(t, "info", published.Payload.Level)
	require.Equal(t, "bid placed", published.Payload.Text)
	require.NotEmpty(t, published.OccurredAt)
}

func TestAuditEmitterAnonymousWhenUserUnknown(t *testing.T) {
	publisher := new(mocks.PublisherMock)
	var published AuditEnvelope
	publisher.On("Publish", mock.Anything, "audit.logs", mock.Anything).
		Run(func(args mock.Arguments) {
			published = args.Get(2).(AuditEnvelope)
		}).
		Return(nil).Once()

	emitter := NewAuditEmitter(publisher, "audit.logs", "carmart-service", "test")
	emitter.EmitForUser(context.Background(), "warn", "token rejected", "req-2", 0)

	publisher.AssertExpectations(t)
	require.Nil(t, published.UserID)
	require.Equal(t, "warn", published.Payload.Level)
}

func TestAuditEmitterNilSafe(t *testing.T) {
	var emitter *AuditEmitter
	emitter.EmitForUser(context.Background(), "info", "ignored", "req-3", 1)

	emitter = NewAuditEmitter(nil, "audit.logs", "carmart-service", "test")
	emitter.Emit(context.Background(), "info", "ignored", "req-3", nil)
}
