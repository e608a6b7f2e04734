package factory

import (
	"context"
	"testing"

	"digital.vasic.smbshare/pkg/client"
	"digital.vasic.smbshare/pkg/runner"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultFactory_SupportedBackends(t *testing.T) {
	f := NewDefaultFactory()

	backends := f.SupportedBackends()

	expected := []string{"smbclient", "native"}
	assert.Equal(t, expected, backends)
}

func testSettings() map[string]interface{} {
	return map[string]interface{}{
		"host":     "localhost",
		"port":     445,
		"share":    "test",
		"username": "user",
		"password": "pass",
		"domain":   "WORKGROUP",
	}
}

func TestDefaultFactory_CreateShare(t *testing.T) {
	tests := []struct {
		name    string
		backend string
	}{
		{"default backend", ""},
		{"smbclient", "smbclient"},
		{"native", "native"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewDefaultFactory()
			s, err := f.CreateShare(&client.StorageConfig{Backend: tt.backend, Settings: testSettings()})
			require.NoError(t, err)
			assert.NotNil(t, s)
		})
	}
}

func TestDefaultFactory_CreateShare_Unsupported(t *testing.T) {
	f := NewDefaultFactory()

	config := &client.StorageConfig{
		Backend:  "ftp",
		Settings: testSettings(),
	}

	s, err := f.CreateShare(config)
	assert.Error(t, err)
	assert.Nil(t, s)
	assert.Contains(t, err.Error(), "unsupported backend")
}

func TestDefaultFactory_CreateShare_MissingTarget(t *testing.T) {
	f := NewDefaultFactory()

	_, err := f.CreateShare(nil)
	assert.Error(t, err)

	_, err = f.CreateShare(&client.StorageConfig{Settings: map[string]interface{}{"host": "nas"}})
	assert.Error(t, err)
}

type recordingRunner struct {
	inner    runner.Runner
	commands []string
}

func (r *recordingRunner) Run(ctx context.Context, command string) (string, error) {
	r.commands = append(r.commands, command)
	return "", nil
}

func TestDefaultFactory_Instrument(t *testing.T) {
	rec := &recordingRunner{}
	f := &DefaultFactory{Instrument: func(inner runner.Runner) runner.Runner {
		rec.inner = inner
		return rec
	}}

	s, err := f.CreateShare(&client.StorageConfig{Settings: testSettings()})
	require.NoError(t, err)
	require.NoError(t, s.Mkdir(context.Background(), "/new"))

	assert.IsType(t, &runner.ExecRunner{}, rec.inner)
	assert.Equal(t, []string{`mkdir "/new"`}, rec.commands)
}

func TestCredentialsFromSettings(t *testing.T) {
	settings := testSettings()
	settings["max_protocol"] = "SMB3"

	creds := CredentialsFromSettings(settings)
	assert.Equal(t, client.Credentials{
		Host:        "localhost",
		Share:       "test",
		Domain:      "WORKGROUP",
		Username:    "user",
		Password:    "pass",
		Port:        445,
		MaxProtocol: "SMB3",
	}, creds)
}

func TestGetStringSetting(t *testing.T) {
	settings := map[string]interface{}{
		"host":   "example.com",
		"number": 42,
	}

	assert.Equal(t, "example.com", GetStringSetting(settings, "host", ""))
	assert.Equal(t, "default", GetStringSetting(settings, "missing", "default"))
	assert.Equal(t, "", GetStringSetting(settings, "number", ""))
}

func TestGetIntSetting(t *testing.T) {
	settings := map[string]interface{}{
		"port":       445,
		"float_port": float64(8080),
		"text":       "not a number",
	}

	assert.Equal(t, 445, GetIntSetting(settings, "port", 0))
	assert.Equal(t, 8080, GetIntSetting(settings, "float_port", 0))
	assert.Equal(t, 99, GetIntSetting(settings, "missing", 99))
	assert.Equal(t, 0, GetIntSetting(settings, "text", 0))
}

func TestGetInt64Setting(t *testing.T) {
	settings := map[string]interface{}{
		"i64":   int64(1 << 40),
		"int":   1024,
		"u64":   uint64(2048),
		"float": float64(4096),
		"text":  "big",
	}

	assert.Equal(t, int64(1<<40), GetInt64Setting(settings, "i64", 0))
	assert.Equal(t, int64(1024), GetInt64Setting(settings, "int", 0))
	assert.Equal(t, int64(2048), GetInt64Setting(settings, "u64", 0))
	assert.Equal(t, int64(4096), GetInt64Setting(settings, "float", 0))
	assert.Equal(t, int64(7), GetInt64Setting(settings, "text", 7))
}

// Verify DefaultFactory implements client.Factory interface.
var _ client.Factory = (*DefaultFactory)(nil)
