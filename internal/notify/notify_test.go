package notify

import (
	"context"
	"errors"
	"testing"

	"github.com/Domenick1991/farehunter/pkg/logger"
	"github.com/Domenick1991/farehunter/pkg/metrics"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type MockNotifier struct {
	mock.Mock
	channel string
}

func (m *MockNotifier) Channel() string {
	return m.channel
}

func (m *MockNotifier) Send(ctx context.Context, msg Message) error {
	return m.Called(ctx, msg).Error(0)
}

func TestDispatcher_Send(t *testing.T) {
	ctx := context.Background()
	msg := Message{Subject: "s", Body: "b", Short: "x"}

	ok := &MockNotifier{channel: "email"}
	ok.On("Send", ctx, msg).Return(nil).Once()
	skipped := &MockNotifier{channel: "whatsapp"}
	skipped.On("Send", ctx, msg).Return(ErrNotConfigured).Once()
	broken := &MockNotifier{channel: "sms"}
	broken.On("Send", ctx, msg).Return(errors.New("gateway down")).Once()

	m := metrics.NewWithRegistry("test", prometheus.NewRegistry())
	d := NewDispatcher(logger.NewNop(), m, ok, skipped, broken)

	err := d.Send(ctx, msg)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "sms: gateway down")
	assert.NotErrorIs(t, err, ErrNotConfigured)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("email", "sent")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("whatsapp", "skipped")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Notifications.WithLabelValues("sms", "failed")))
	ok.AssertExpectations(t)
	skipped.AssertExpectations(t)
	broken.AssertExpectations(t)
}

func TestDispatcher_AllSkippedIsNotAnError(t *testing.T) {
	skipped := &MockNotifier{channel: "whatsapp"}
	skipped.On("Send", mock.Anything, mock.Anything).Return(ErrNotConfigured)

	d := NewDispatcher(logger.NewNop(), nil, skipped)
	assert.NoError(t, d.Send(context.Background(), Message{}))
	assert.Equal(t, 1, d.Len())
}
