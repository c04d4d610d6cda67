package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"testing"
	"time"

	"github.com/Domenick1991/farehunter/pkg/logger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type MockWriter struct {
	mock.Mock
}

func (m *MockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	return m.Called(ctx, msgs).Error(0)
}

func (m *MockWriter) Close() error {
	return m.Called().Error(0)
}

type event struct {
	Type  string `json:"type"`
	RunID string `json:"run_id"`
}

func TestProducer_Publish(t *testing.T) {
	w := &MockWriter{}
	w.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		if len(msgs) != 1 {
			return false
		}
		var e event
		return json.Unmarshal(msgs[0].Value, &e) == nil &&
			msgs[0].Topic == "run-events" && string(msgs[0].Key) == "r1" && e.Type == "run_completed"
	})).Return(nil).Once()

	p := &Producer{writer: w, logger: logger.NewNop()}
	require.NoError(t, p.Publish(context.Background(), "run-events", "r1", event{Type: "run_completed", RunID: "r1"}))
	w.AssertExpectations(t)
}

func TestProducer_PublishWithRetry(t *testing.T) {
	w := &MockWriter{}
	w.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("leader not available")).Once()
	w.On("WriteMessages", mock.Anything, mock.Anything).Return(nil).Once()

	p := &Producer{writer: w, logger: logger.NewNop()}
	require.NoError(t, p.PublishWithRetry(context.Background(), "t", "k", event{}, 3))
	w.AssertNumberOfCalls(t, "WriteMessages", 2)
}

func TestRetryingPublisher_RetriesUntilDelivered(t *testing.T) {
	w := &MockWriter{}
	w.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("leader not available")).Once()
	w.On("WriteMessages", mock.Anything, mock.MatchedBy(func(msgs []kafka.Message) bool {
		return len(msgs) == 1 && msgs[0].Topic == "run-events" && string(msgs[0].Key) == "r1"
	})).Return(nil).Once()

	p := &Producer{writer: w, logger: logger.NewNop()}
	require.NoError(t, p.WithRetry(3).Publish(context.Background(), "run-events", "r1", event{Type: "run_failed"}))
	w.AssertNumberOfCalls(t, "WriteMessages", 2)
}

func TestRetryingPublisher_GivesUpAfterAttempts(t *testing.T) {
	w := &MockWriter{}
	w.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("leader not available"))

	p := &Producer{writer: w, logger: logger.NewNop()}
	err := p.WithRetry(0).Publish(context.Background(), "run-events", "r1", event{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed after 1 retries")
	w.AssertNumberOfCalls(t, "WriteMessages", 1)
}

func TestProducer_CheckConnection(t *testing.T) {
	p := &Producer{logger: logger.NewNop()}
	assert.Error(t, p.CheckConnection(context.Background()))

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	require.NoError(t, ln.Close())

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	p = &Producer{brokers: []string{addr}, logger: logger.NewNop()}
	err = p.CheckConnection(ctx)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to connect to Kafka")
}

type fakeReader struct {
	msgs      []kafka.Message
	committed []int64
}

func (f *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(f.msgs) == 0 {
		return kafka.Message{}, context.Canceled
	}
	m := f.msgs[0]
	f.msgs = f.msgs[1:]
	return m, nil
}

func (f *fakeReader) CommitMessages(_ context.Context, msgs ...kafka.Message) error {
	for _, m := range msgs {
		f.committed = append(f.committed, m.Offset)
	}
	return nil
}

func (f *fakeReader) Close() error { return nil }

func TestConsumer_ConsumeDecodesAndCommits(t *testing.T) {
	r := &fakeReader{msgs: []kafka.Message{
		{Offset: 1, Value: []byte(`{"type":"run_completed","run_id":"a"}`)},
		{Offset: 2, Value: []byte(`not json`)},
		{Offset: 3, Value: []byte(`{"type":"run_failed","run_id":"b"}`)},
	}}
	c := &Consumer{reader: r, logger: logger.NewNop()}

	var seen []string
	err := c.Consume(context.Background(), Decode(func(_ context.Context, e event) error {
		seen = append(seen, e.Type)
		return nil
	}))

	assert.NoError(t, err)
	assert.Equal(t, []string{"run_completed", "run_failed"}, seen)
	assert.Equal(t, []int64{1, 2, 3}, r.committed)
}
