package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLibraryPath(t *testing.T) {
	tests := []struct {
		name       string
		deployment string
		override   string
		want       string
	}{
		{name: "local", deployment: "local", want: "Config/music.json"},
		{name: "docker", deployment: "docker", want: "/Config/music.json"},
		{name: "docker upper case", deployment: "DOCKER", want: "/Config/music.json"},
		{name: "override wins", deployment: "docker", override: "/srv/lib.json", want: "/srv/lib.json"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("DEPLOYMENT_TYPE", tt.deployment)
			t.Setenv("MUSIC_CONFIG_PATH", tt.override)

			cfg := FromEnv()
			assert.Equal(t, tt.want, cfg.LibraryPath())
		})
	}
}

func TestFromEnvDefaults(t *testing.T) {
	t.Setenv("ACCESS_TOKEN_TTL", "")
	t.Setenv("SERVER_PORT", "9090")

	cfg := FromEnv()
	assert.Equal(t, 15*time.Minute, cfg.AccessTokenTTL)
	assert.Equal(t, ":9090", cfg.Addr())
	assert.Equal(t, LibrarySourceFile, cfg.LibrarySource)
	assert.True(t, cfg.LibraryWatch)
}

func TestGetEnvDuration(t *testing.T) {
	t.Setenv("TTL_A", "90s")
	t.Setenv("TTL_B", "30")
	t.Setenv("TTL_C", "nonsense")

	assert.Equal(t, 90*time.Second, getEnvDuration("TTL_A", time.Minute))
	assert.Equal(t, 30*time.Second, getEnvDuration("TTL_B", time.Minute))
	assert.Equal(t, time.Minute, getEnvDuration("TTL_C", time.Minute))
	assert.Equal(t, time.Hour, getEnvDuration("TTL_MISSING", time.Hour))
}

func TestGetEnvBool(t *testing.T) {
	t.Setenv("FLAG_ON", "true")
	t.Setenv("FLAG_BAD", "maybe")

	assert.True(t, getEnvBool("FLAG_ON", false))
	assert.False(t, getEnvBool("FLAG_BAD", false))
	assert.True(t, getEnvBool("FLAG_MISSING", true))
}
