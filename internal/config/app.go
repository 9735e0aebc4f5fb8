package config

import (
	"context"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/kbqa/pkg/log"
)

type AppConfig struct {
	RuntimePath string `env:"KBQA_RUNTIME_PATH" envDefault:".kbqa"`

	KnowledgeFile  string `env:"KBQA_KNOWLEDGE_FILE" envDefault:"knowledge.yaml"`
	RespondersFile string `env:"KBQA_RESPONDERS_FILE" envDefault:"responders.json"`
	SnapshotDB     string `env:"KBQA_SNAPSHOT_DB" envDefault:"snapshots.db"`
	WatchKnowledge bool   `env:"KBQA_WATCH_KNOWLEDGE" envDefault:"true"`

	// Knowledge base loading
	QueryCacheSize int           `env:"KBQA_QUERY_CACHE_SIZE" envDefault:"256"`
	FetchTimeout   time.Duration `env:"KBQA_FETCH_TIMEOUT" envDefault:"10s"`

	// Transport Flags
	EnableHTTP      bool `env:"KBQA_ENABLE_HTTP" envDefault:"true"`
	EnableTelegram  bool `env:"KBQA_ENABLE_TELEGRAM" envDefault:"false"`
	EnableMCPServer bool `env:"KBQA_ENABLE_MCP" envDefault:"false"`

	// Snapshot persistence
	EnableArchive   bool          `env:"KBQA_ENABLE_ARCHIVE" envDefault:"true"`
	ArchiveInterval time.Duration `env:"KBQA_ARCHIVE_INTERVAL" envDefault:"5m"`
}

func NewAppConfig(ctx context.Context) *AppConfig {
	c := &AppConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse App config")
	}
	c.RuntimePath = GetRuntimePath()
	return c
}

func (c AppConfig) GetRuntimePath() string {
	return c.RuntimePath
}

func (c AppConfig) GetKnowledgePath() string {
	return c.resolve(c.KnowledgeFile)
}

func (c AppConfig) GetRespondersPath() string {
	return c.resolve(c.RespondersFile)
}

func (c AppConfig) GetSnapshotPath() string {
	return c.resolve(c.SnapshotDB)
}

func (c AppConfig) resolve(p string) string {
	if filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(c.RuntimePath, p)
}
