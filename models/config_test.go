package models

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigByAlias_Found(t *testing.T) {
	cfg, ok := ConfigByAlias("paper.yml")
	require.True(t, ok)
	assert.Equal(t, FormatYAML, cfg.Format)
}

func TestConfigByAlias_NotFound(t *testing.T) {
	_, ok := ConfigByAlias("does-not-exist.yml")
	assert.False(t, ok)
}

func TestFormatConfig_PropertiesSortsLines(t *testing.T) {
	content := "# a comment\nmotd=hi\n\nallow-flight=true\n"
	out, _, err := FormatConfig("server.properties", content)
	require.NoError(t, err)
	assert.Equal(t, "allow-flight=true\nmotd=hi", out)
}

func TestFormatConfig_YamlRedactsStatsUUID(t *testing.T) {
	content := "stats_uuid: abc-123\nfoo: bar\n"
	out, _, err := FormatConfig("config.yml", content)
	require.NoError(t, err)
	assert.Contains(t, out, "stats_uuid: xxx")
	assert.NotContains(t, out, "abc-123")
}

func TestFormatConfig_YamlExtractsVersionLine(t *testing.T) {
	content := "config-version: 19\nfoo: bar\n"
	_, versionLine, err := FormatConfig("paper.yml", content)
	require.NoError(t, err)
	assert.Equal(t, "config-version: 19", versionLine)
}

func TestFormatConfig_YamlRedactsSeedKeys(t *testing.T) {
	content := "seed-value: 12345\nother: keep\n"
	out, _, err := FormatConfig("paper.yml", content)
	require.NoError(t, err)
	assert.Contains(t, out, "seed-value: xxx")
	assert.Contains(t, out, "keep")
}

func TestFormatConfig_VelocityTomlRedactsForwardingSecret(t *testing.T) {
	content := "forwarding-secret = \"super-secret\"\nbind = \"0.0.0.0:25577\"\n"
	out, _, err := FormatConfig("velocity.toml", content)
	require.NoError(t, err)
	assert.True(t, strings.Contains(out, `forwarding-secret = "xxx"`))
	assert.False(t, strings.Contains(out, "super-secret"))
}
