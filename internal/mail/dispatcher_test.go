// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 PetAdopt Contributors

package mail_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/petadopt/petadopt/internal/mail"
	"github.com/petadopt/petadopt/internal/mail/mailtest"
	"github.com/petadopt/petadopt/pkg/errutil"
)

// flakySender fails the first failures calls, then records.
type flakySender struct {
	failures int32
	calls    atomic.Int32
	mailtest.Recorder
}

func (f *flakySender) Send(ctx context.Context, msg mail.Message) error {
	if f.calls.Add(1) <= f.failures {
		return errors.New("421 service not available")
	}
	return f.Recorder.Send(ctx, msg)
}

// blockingSender blocks until released or its context ends.
type blockingSender struct {
	release chan struct{}
	started chan struct{}
	once    sync.Once
}

func (b *blockingSender) Send(ctx context.Context, _ mail.Message) error {
	b.once.Do(func() { close(b.started) })
	select {
	case <-b.release:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func testMessage(to string) mail.Message {
	return mail.Message{To: to, Subject: "PetAdopt: Email Verification", Body: "hello"}
}

func fastConfig() mail.DispatcherConfig {
	return mail.DispatcherConfig{
		QueueSize:   8,
		Workers:     1,
		SendTimeout: time.Second,
		MaxRetries:  3,
		BaseBackoff: time.Millisecond,
	}
}

func TestNewDispatcher_RequiresSender(t *testing.T) {
	d, err := mail.NewDispatcher(nil, fastConfig(), nil)
	require.Error(t, err)
	assert.Nil(t, d)
	errutil.AssertErrorCode(t, err, "MAIL_CONFIG_INVALID")
}

func TestDispatcher_DeliversQueuedMessages(t *testing.T) {
	defer goleak.VerifyNone(t)

	rec := &mailtest.Recorder{}
	d, err := mail.NewDispatcher(rec, fastConfig(), nil)
	require.NoError(t, err)

	require.NoError(t, d.Send(context.Background(), testMessage("a@x.com")))
	require.NoError(t, d.Send(context.Background(), testMessage("b@x.com")))

	require.NoError(t, d.Close(context.Background()))

	msgs := rec.Messages()
	require.Len(t, msgs, 2)
	assert.Equal(t, "a@x.com", msgs[0].To)
	assert.Equal(t, "b@x.com", msgs[1].To)
}

func TestDispatcher_RetriesTransientFailures(t *testing.T) {
	defer goleak.VerifyNone(t)

	sender := &flakySender{failures: 2}
	d, err := mail.NewDispatcher(sender, fastConfig(), nil)
	require.NoError(t, err)

	require.NoError(t, d.Send(context.Background(), testMessage("a@x.com")))
	require.NoError(t, d.Close(context.Background()))

	assert.Equal(t, int32(3), sender.calls.Load())
	assert.Equal(t, 1, sender.Count())
}

func TestDispatcher_GivesUpAfterMaxRetries(t *testing.T) {
	defer goleak.VerifyNone(t)

	sender := &flakySender{failures: 100}
	d, err := mail.NewDispatcher(sender, fastConfig(), nil)
	require.NoError(t, err)

	require.NoError(t, d.Send(context.Background(), testMessage("a@x.com")))
	require.NoError(t, d.Close(context.Background()))

	// One initial attempt plus MaxRetries.
	assert.Equal(t, int32(4), sender.calls.Load())
	assert.Equal(t, 0, sender.Count())
}

func TestDispatcher_QueueFull(t *testing.T) {
	defer goleak.VerifyNone(t)

	blocker := &blockingSender{release: make(chan struct{}), started: make(chan struct{})}
	cfg := fastConfig()
	cfg.QueueSize = 1
	d, err := mail.NewDispatcher(blocker, cfg, nil)
	require.NoError(t, err)

	// First message occupies the worker, second fills the queue.
	require.NoError(t, d.Send(context.Background(), testMessage("a@x.com")))
	<-blocker.started
	require.NoError(t, d.Send(context.Background(), testMessage("b@x.com")))

	err = d.Send(context.Background(), testMessage("c@x.com"))
	require.ErrorIs(t, err, mail.ErrQueueFull)

	close(blocker.release)
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_SendAfterClose(t *testing.T) {
	defer goleak.VerifyNone(t)

	d, err := mail.NewDispatcher(&mailtest.Recorder{}, fastConfig(), nil)
	require.NoError(t, err)
	require.NoError(t, d.Close(context.Background()))

	err = d.Send(context.Background(), testMessage("a@x.com"))
	require.ErrorIs(t, err, mail.ErrClosed)

	// Closing twice is a no-op.
	require.NoError(t, d.Close(context.Background()))
}

func TestDispatcher_CloseDeadlineAbandonsDelivery(t *testing.T) {
	defer goleak.VerifyNone(t)

	blocker := &blockingSender{release: make(chan struct{}), started: make(chan struct{})}
	cfg := fastConfig()
	cfg.SendTimeout = time.Minute
	d, err := mail.NewDispatcher(blocker, cfg, nil)
	require.NoError(t, err)

	require.NoError(t, d.Send(context.Background(), testMessage("a@x.com")))
	<-blocker.started

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	err = d.Close(ctx)
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MAIL_DRAIN_INCOMPLETE")
}

func TestDispatcher_RejectsInvalidMessage(t *testing.T) {
	defer goleak.VerifyNone(t)

	d, err := mail.NewDispatcher(&mailtest.Recorder{}, fastConfig(), nil)
	require.NoError(t, err)
	defer func() { require.NoError(t, d.Close(context.Background())) }()

	err = d.Send(context.Background(), mail.Message{Subject: "no recipient"})
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "MAIL_INVALID_MESSAGE")
}
