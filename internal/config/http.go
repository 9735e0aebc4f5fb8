package config

import (
	"context"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/sandevgo/kbqa/pkg/log"
)

type HTTPConfig struct {
	Host            string        `env:"KBQA_HTTP_HOST" envDefault:"127.0.0.1"`
	Port            int           `env:"KBQA_HTTP_PORT" envDefault:"8080"`
	Release         bool          `env:"KBQA_HTTP_RELEASE" envDefault:"true"`
	RequestTimeout  time.Duration `env:"KBQA_HTTP_REQUEST_TIMEOUT" envDefault:"30s"`
	ShutdownTimeout time.Duration `env:"KBQA_HTTP_SHUTDOWN_TIMEOUT" envDefault:"10s"`
	EnableMetrics   bool          `env:"KBQA_HTTP_METRICS" envDefault:"true"`
}

func NewHTTPConfig(ctx context.Context) *HTTPConfig {
	c := &HTTPConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse HTTP config")
	}
	return c
}

func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type MCPServerConfig struct {
	// Transport is either "stdio" or "http".
	Transport string `env:"KBQA_MCP_TRANSPORT" envDefault:"http"`
	Addr      string `env:"KBQA_MCP_ADDR" envDefault:"127.0.0.1:8081"`
}

func NewMCPServerConfig(ctx context.Context) *MCPServerConfig {
	c := &MCPServerConfig{}
	if err := env.Parse(c); err != nil {
		log.FromCtx(ctx).Fatal().Err(err).Msg("failed to parse MCP server config")
	}
	return c
}
