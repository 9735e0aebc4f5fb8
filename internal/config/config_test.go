package config

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestEngineConfig_DefaultsMatchTags(t *testing.T) {
	assert.Equal(t, DefaultEngineConfig(), NewEngineConfig(context.Background()))
}

func TestEngineConfig_Overrides(t *testing.T) {
	t.Setenv("KBQA_HISTORY_CAP", "7")
	t.Setenv("KBQA_RESPONDER_TIMEOUT", "750ms")
	t.Setenv("KBQA_FALLBACK_THRESHOLD", "0.3")

	cfg := NewEngineConfig(context.Background())
	assert.Equal(t, 7, cfg.HistoryCap)
	assert.Equal(t, 750*time.Millisecond, cfg.ResponderTimeout)
	assert.InDelta(t, 0.3, cfg.FallbackThreshold, 1e-9)
}

func TestAppConfig_Paths(t *testing.T) {
	dir := t.TempDir()
	abs := filepath.Join(t.TempDir(), "kb.yaml")
	t.Setenv("KBQA_RUNTIME_PATH", dir)
	t.Setenv("KBQA_KNOWLEDGE_FILE", abs)

	cfg := NewAppConfig(context.Background())
	assert.Equal(t, dir, cfg.GetRuntimePath())
	assert.Equal(t, abs, cfg.GetKnowledgePath())
	assert.Equal(t, filepath.Join(dir, "responders.json"), cfg.GetRespondersPath())
	assert.Equal(t, filepath.Join(dir, "snapshots.db"), cfg.GetSnapshotPath())
}

func TestGetRuntimePath_RelativeToHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("KBQA_RUNTIME_PATH", "")

	assert.Equal(t, filepath.Join(home, ".kbqa"), GetRuntimePath())
}

func TestHTTPConfig_Addr(t *testing.T) {
	t.Setenv("KBQA_HTTP_PORT", "9090")
	assert.Equal(t, "127.0.0.1:9090", NewHTTPConfig(context.Background()).Addr())
}

func TestIsDebug(t *testing.T) {
	t.Setenv("KBQA_DEBUG", "1")
	assert.True(t, IsDebug())
	t.Setenv("KBQA_DEBUG", "")
	assert.False(t, IsDebug())
}
