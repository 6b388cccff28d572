package usecase

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaHandlerIngestsExecution(t *testing.T) {
	f := newTradesFixture(t, nil)
	h := NewKafkaExecutionsHandler("journal.executions", f.uc, testLogger(t))
	ctx := context.Background()

	msg := []byte(`{"symbol":"aapl","side":"buy","quantity":10,"price":187.5,"timestamp":"2024-03-04T09:30:00Z"}`)
	require.NoError(t, h.Handle(ctx, msg))

	n, err := f.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	list, err := f.store.List(ctx, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", list[0].Symbol)
}

func TestKafkaHandlerDuplicateIsNoop(t *testing.T) {
	f := newTradesFixture(t, nil)
	h := NewKafkaExecutionsHandler("journal.executions", f.uc, testLogger(t))
	ctx := context.Background()

	msg := []byte(`{"symbol":"AAPL","side":"BUY","quantity":10,"price":187.5,"timestamp":"2024-03-04T09:30:00Z"}`)
	require.NoError(t, h.Handle(ctx, msg))
	require.NoError(t, h.Handle(ctx, msg))

	n, err := f.store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestKafkaHandlerRejectsMalformedMessage(t *testing.T) {
	f := newTradesFixture(t, nil)
	h := NewKafkaExecutionsHandler("journal.executions", f.uc, testLogger(t))

	assert.Error(t, h.Handle(context.Background(), []byte("not-json")))
	assert.Error(t, h.Handle(context.Background(), []byte(`{"symbol":"AAPL","side":"HOLD","quantity":1,"price":1,"timestamp":"2024-03-04T09:30:00Z"}`)))
}

func TestKafkaHandlerTopic(t *testing.T) {
	h := NewKafkaExecutionsHandler("journal.executions", nil, testLogger(t))
	assert.Equal(t, "journal.executions", h.Topic())
}
