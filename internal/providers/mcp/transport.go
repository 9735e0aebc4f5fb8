package mcp

import (
	"context"
	"fmt"
	"maps"
	"net/http"
	"time"

	"github.com/mark3labs/mcp-go/client"
	mcptransport "github.com/mark3labs/mcp-go/client/transport"
	mcpproto "github.com/mark3labs/mcp-go/mcp"

	"github.com/sandevgo/kbqa/internal/core"
)

type Transport = func(ctx context.Context, cfg ServerConfig) (*client.Client, error)

func NewTransport(t TransportType) (Transport, error) {
	switch t {
	case TransportStdio:
		return StdioTransport, nil
	case TransportHTTP:
		return HttpTransport, nil
	}
	return nil, fmt.Errorf("unsupported transport type: %s", t)
}

func StdioTransport(ctx context.Context, cfg ServerConfig) (*client.Client, error) {
	env := make([]string, 0, len(cfg.Env))
	for k, v := range cfg.Env {
		env = append(env, fmt.Sprintf("%s=%s", k, v))
	}

	cli, err := client.NewStdioMCPClient(cfg.Command, env, cfg.Args...)
	if err != nil {
		return nil, fmt.Errorf("failed to create client: %w", err)
	}
	return start(ctx, cli)
}

func HttpTransport(ctx context.Context, cfg ServerConfig) (*client.Client, error) {
	// Fresh transport per server, connections are not shared.
	httpClient := &http.Client{
		Transport: &http.Transport{
			Proxy:                 http.ProxyFromEnvironment,
			MaxIdleConns:          100,
			IdleConnTimeout:       90 * time.Second,
			TLSHandshakeTimeout:   10 * time.Second,
			ExpectContinueTimeout: 1 * time.Second,
		},
	}

	cli, err := client.NewStreamableHttpClient(
		cfg.URL,
		mcptransport.WithHTTPHeaders(maps.Clone(cfg.Headers)),
		mcptransport.WithHTTPBasicClient(httpClient),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http transport: %w", err)
	}
	return start(ctx, cli)
}

func start(ctx context.Context, cli *client.Client) (*client.Client, error) {
	if err := cli.Start(ctx); err != nil {
		return nil, fmt.Errorf("failed to start client: %w", err)
	}

	req := mcpproto.InitializeRequest{}
	req.Params.ProtocolVersion = mcpproto.LATEST_PROTOCOL_VERSION
	req.Params.Capabilities = mcpproto.ClientCapabilities{}
	req.Params.ClientInfo = mcpproto.Implementation{
		Name:    core.AppName,
		Version: core.AppVersion,
	}

	if _, err := cli.Initialize(ctx, req); err != nil {
		_ = cli.Close()
		return nil, fmt.Errorf("failed to initialize client: %w", err)
	}
	return cli, nil
}
