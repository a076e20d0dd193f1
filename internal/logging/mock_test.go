package logging

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMockLogger_DerivedLoggersShareEntries(t *testing.T) {
	root := NewMockLogger()
	child := root.WithField(FieldModule, "anomaly").WithError(errors.New("late"))

	child.Warn("module timed out", F(FieldDuration, 10))
	root.Info("run finished")

	entries := root.GetEntries()
	require.Len(t, entries, 2)
	assert.Equal(t, "WARN", entries[0].Level)
	assert.EqualError(t, entries[0].Error, "late")

	module, ok := entries[0].FieldValue(FieldModule)
	assert.True(t, ok)
	assert.Equal(t, "anomaly", module)

	assert.True(t, root.HasEntry("INFO", "run finished"))
	assert.Len(t, root.GetEntriesByLevel("WARN"), 1)

	root.Clear()
	assert.Empty(t, root.GetEntries())
}

func TestMockLogger_ZeroValue(t *testing.T) {
	var m MockLogger
	m.Fatalf("failed after %d attempts", 2)
	assert.True(t, m.HasEntry("FATAL", "failed after 2 attempts"))
}

func TestOrNop(t *testing.T) {
	assert.NotNil(t, OrNop(nil))
	m := NewMockLogger()
	assert.Same(t, m, OrNop(m))
}
