package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComposer_IdleStopsTypingOnce(t *testing.T) {
	target := &recordingTarget{}
	clock := &fakeClock{}
	c := NewComposer(target, clock, 3*time.Second)
	ctx := context.Background()

	c.SetText(ctx, "h")
	c.SetText(ctx, "he")
	assert.Equal(t, []bool{true}, target.typingCalls())

	clock.Advance(2 * time.Second)
	c.SetText(ctx, "hel")
	clock.Advance(2900 * time.Millisecond)
	assert.Equal(t, []bool{true}, target.typingCalls())

	clock.Advance(200 * time.Millisecond)
	assert.Equal(t, []bool{true, false}, target.typingCalls())

	clock.Advance(10 * time.Second)
	assert.Equal(t, []bool{true, false}, target.typingCalls())

	// Typing again after the idle stop signals a fresh start.
	c.SetText(ctx, "hell")
	assert.Equal(t, []bool{true, false, true}, target.typingCalls())
}

func TestComposer_ClearingStopsImmediately(t *testing.T) {
	target := &recordingTarget{}
	clock := &fakeClock{}
	c := NewComposer(target, clock, 3*time.Second)
	ctx := context.Background()

	c.SetText(ctx, "hi")
	c.SetText(ctx, "")
	assert.Equal(t, []bool{true, false}, target.typingCalls())

	clock.Advance(5 * time.Second)
	c.SetText(ctx, "")
	assert.Equal(t, []bool{true, false}, target.typingCalls())
}

func TestComposer_SubmitStopsTypingAndClears(t *testing.T) {
	target := &recordingTarget{}
	clock := &fakeClock{}
	c := NewComposer(target, clock, 3*time.Second)
	ctx := context.Background()

	c.SetText(ctx, "hello")
	receipt, err := c.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, "m1", receipt.MessageID)
	assert.Equal(t, []string{"hello"}, target.sent)
	assert.Empty(t, c.Text())

	clock.Advance(5 * time.Second)
	assert.Equal(t, []bool{true, false}, target.typingCalls())
}

func TestComposer_SubmitFailureKeepsText(t *testing.T) {
	target := &recordingTarget{sendErr: ErrPublishFailed}
	c := NewComposer(target, &fakeClock{}, 0)
	ctx := context.Background()

	c.SetText(ctx, "hello")
	_, err := c.Submit(ctx)
	assert.True(t, errors.Is(err, ErrPublishFailed))
	assert.Equal(t, "hello", c.Text())

	// Submitting without typing first sends no typing stop.
	target.mu.Lock()
	target.sendErr = nil
	target.mu.Unlock()
	_, err = c.Submit(ctx)
	require.NoError(t, err)
	assert.Equal(t, []bool{true, false}, target.typingCalls())
}
