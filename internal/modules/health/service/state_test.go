package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestStateDefaults(t *testing.T) {
	s := NewState()

	assert.False(t, s.Ready())
	assert.False(t, s.FeedConnected())
	assert.True(t, s.LastCandle().IsZero())
	assert.True(t, s.LastEval().IsZero())
}

func TestStateTransitions(t *testing.T) {
	s := NewState()
	now := time.Now()

	s.SetReady(true)
	s.SetFeedConnected(true)
	s.TouchCandle(now)
	s.TouchEval(now)

	assert.True(t, s.Ready())
	assert.True(t, s.FeedConnected())
	assert.Equal(t, now.Unix(), s.LastCandle().Unix())
	assert.Equal(t, now.Unix(), s.LastEval().Unix())

	s.SetFeedConnected(false)
	assert.False(t, s.FeedConnected())
}
