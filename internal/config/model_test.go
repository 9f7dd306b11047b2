package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew(t *testing.T) {
	m := New()
	assert.Equal(t, DefaultImportDepth, m.ImportDepth)
	assert.Equal(t, DefaultTimeout, m.Timeout)
	assert.Equal(t, Log{Level: "info", Format: "text"}, m.Log)
	assert.NotNil(t, m.Imports)
	require.NoError(t, m.Validate())
}

func TestModel_Validate(t *testing.T) {
	testCases := []struct {
		name    string
		mutate  func(*Model)
		wantErr string
	}{
		{name: "defaults", mutate: func(*Model) {}},
		{name: "upper case level", mutate: func(m *Model) { m.Log.Level = "WARN" }},
		{name: "json format", mutate: func(m *Model) { m.Log.Format = "JSON" }},
		{name: "negative workers", mutate: func(m *Model) { m.Workers = -2 }, wantErr: "workers"},
		{name: "negative timeout", mutate: func(m *Model) { m.Timeout = -time.Second }, wantErr: "timeout"},
		{name: "unknown level", mutate: func(m *Model) { m.Log.Level = "trace" }, wantErr: "invalid log level"},
		{name: "unknown format", mutate: func(m *Model) { m.Log.Format = "yaml" }, wantErr: "invalid log format"},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			m := New()
			tc.mutate(m)
			err := m.Validate()
			if tc.wantErr == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tc.wantErr)
		})
	}
}

func TestModel_Validate_Normalizes(t *testing.T) {
	m := New()
	m.Log = Log{Level: "DeBuG", Format: "Text"}
	require.NoError(t, m.Validate())
	assert.Equal(t, Log{Level: "debug", Format: "text"}, m.Log)
}
