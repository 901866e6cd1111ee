package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/require"
	"gopkg.in/src-d/go-log.v1"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("chatty", "text")
	require.Error(t, err)
}

func TestNewDefaults(t *testing.T) {
	logger, err := New("", "")
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.With(log.Fields{"project": "Lang"}).Infof("ready")
}

func TestNopIsInert(t *testing.T) {
	logger := Nop()
	child := logger.New(log.Fields{"bug": "1"})
	child.With(log.Fields{"x": 1}).Errorf(errors.New("boom"), "ignored %d", 1)
}
