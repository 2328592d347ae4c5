package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
)

// ConfigTestSuite runs every test from an empty temporary working directory.
type ConfigTestSuite struct {
	suite.Suite
	tempDir string
	origDir string
}

func TestConfigSuite(t *testing.T) {
	suite.Run(t, new(ConfigTestSuite))
}

func (s *ConfigTestSuite) SetupTest() {
	var err error
	s.origDir, err = os.Getwd()
	require.NoError(s.T(), err)

	s.tempDir = s.T().TempDir()
	require.NoError(s.T(), os.Chdir(s.tempDir))
}

func (s *ConfigTestSuite) TearDownTest() {
	if s.origDir != "" {
		_ = os.Chdir(s.origDir)
	}
}

func (s *ConfigTestSuite) TestDefaults() {
	cfg, err := Load("")
	require.NoError(s.T(), err)

	assert.Equal(s.T(), ":3000", cfg.Server.Port)
	assert.Equal(s.T(), []string{"http://localhost:3001"}, cfg.Server.AllowedOrigins)
	assert.Equal(s.T(), 256, cfg.Server.CacheSize)
	assert.Equal(s.T(), int64(1000000), cfg.Documents.MaxBytes)
	assert.Equal(s.T(), []string{".txt", ".log", ".html", ".htm"}, cfg.Documents.Extensions)
	assert.Equal(s.T(), 4, cfg.Documents.Concurrency)
}

func (s *ConfigTestSuite) TestDefaultFileInWorkingDirectory() {
	content := `
server:
  port: "8080"
  allowedOrigins:
    - https://tally.example.com
documents:
  maxBytes: 2048
  extensions: [txt, ".md"]
`
	require.NoError(s.T(), os.WriteFile(filepath.Join(s.tempDir, "tally.yaml"), []byte(content), 0o644))

	cfg, err := Load("")
	require.NoError(s.T(), err)

	assert.Equal(s.T(), ":8080", cfg.Server.Port)
	assert.Equal(s.T(), []string{"https://tally.example.com"}, cfg.Server.AllowedOrigins)
	assert.Equal(s.T(), int64(2048), cfg.Documents.MaxBytes)
	assert.Equal(s.T(), []string{".txt", ".md"}, cfg.Documents.Extensions)

	opts := cfg.Documents.FetchOptions()
	assert.NoError(s.T(), opts.Validate("notes.md", 10))
	assert.Error(s.T(), opts.Validate("notes.log", 10))
}

func (s *ConfigTestSuite) TestExplicitFileMissing() {
	_, err := Load(filepath.Join(s.tempDir, "nope.yaml"))
	assert.Error(s.T(), err)
}

func (s *ConfigTestSuite) TestEnvironmentOverride() {
	s.T().Setenv("TALLY_SERVER_PORT", "9999")
	s.T().Setenv("TALLY_DOCUMENTS_MAXBYTES", "512")

	cfg, err := Load("")
	require.NoError(s.T(), err)

	assert.Equal(s.T(), ":9999", cfg.Server.Port)
	assert.Equal(s.T(), int64(512), cfg.Documents.MaxBytes)
}

func (s *ConfigTestSuite) TestDotEnvFile() {
	require.NoError(s.T(), os.WriteFile(filepath.Join(s.tempDir, ".env"), []byte("TALLY_SERVER_CACHESIZE=7\n"), 0o644))
	s.T().Cleanup(func() { _ = os.Unsetenv("TALLY_SERVER_CACHESIZE") })

	cfg, err := Load("")
	require.NoError(s.T(), err)

	assert.Equal(s.T(), 7, cfg.Server.CacheSize)
}

func (s *ConfigTestSuite) TestInvalidValues() {
	s.T().Setenv("TALLY_DOCUMENTS_MAXBYTES", "0")

	_, err := Load("")
	assert.Error(s.T(), err)
}

func TestNormalizePort(t *testing.T) {
	tests := map[string]string{
		"3000":           ":3000",
		":3000":          ":3000",
		"127.0.0.1:3000": "127.0.0.1:3000",
		"":               "",
	}
	for in, want := range tests {
		if got := normalizePort(in); got != want {
			t.Errorf("normalizePort(%q) = %q, want %q", in, got, want)
		}
	}
}
