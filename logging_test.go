package batchrename_test

import (
	"bytes"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	batchrename "github.com/thrawn01/batch-rename"
)

func TestLogging(t *testing.T) {
	t.Cleanup(func() {
		_ = batchrename.ConfigureLogging(batchrename.LevelSilent)
	})

	var buf bytes.Buffer
	batchrename.SetLogOutput(&buf)
	require.NoError(t, batchrename.ConfigureLogging("WARN"))
	assert.Equal(t, logrus.WarnLevel, batchrename.GetLogger().GetLevel())

	batchrename.WithName("executor").Info("hidden")
	batchrename.WithName("executor").Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "shown")
	assert.Contains(t, buf.String(), "component=executor")

	assert.Error(t, batchrename.ConfigureLogging("chatty"))

	buf.Reset()
	require.NoError(t, batchrename.ConfigureLogging(batchrename.LevelSilent))
	batchrename.WithName("executor").Error("dropped")
	assert.Empty(t, buf.String())
}

func TestLoggingLeavesSilentMode(t *testing.T) {
	t.Cleanup(func() {
		_ = batchrename.ConfigureLogging(batchrename.LevelSilent)
	})

	var buf bytes.Buffer
	require.NoError(t, batchrename.ConfigureLogging(batchrename.LevelSilent))
	batchrename.SetLogOutput(&buf)
	batchrename.WithName("lister").Error("while silent")
	assert.Empty(t, buf.String())

	require.NoError(t, batchrename.ConfigureLogging("debug"))
	batchrename.WithName("lister").Debug("after silent")
	assert.Contains(t, buf.String(), "after silent")
	assert.NotContains(t, buf.String(), "while silent")
}
