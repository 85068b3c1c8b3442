package logging

import (
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	logger, err := New("DEBUG", "json")
	require.NoError(t, err)
	require.Equal(t, logrus.DebugLevel, logger.GetLevel())
	require.IsType(t, &logrus.JSONFormatter{}, logger.Formatter)

	_, err = New("loud", "text")
	require.Error(t, err)

	_, err = New("info", "xml")
	require.Error(t, err)
}

func TestComponent(t *testing.T) {
	logger, err := New("info", "text")
	require.NoError(t, err)
	entry := Component(logger, "outbox")
	require.Equal(t, "outbox", entry.Data["component"])
}
