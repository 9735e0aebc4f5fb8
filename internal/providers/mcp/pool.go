package mcp

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"sync"
)

type ConnectionPool interface {
	Add(ctx context.Context, id string, cfg ServerConfig) (*ManagedClient, error)
	Del(id string) error
	Get(id string) (*ManagedClient, bool)
	All() map[string]*ManagedClient
	Close() error
}

var _ ConnectionPool = (*Pool)(nil)

type TransportFactory func(TransportType) (Transport, error)

// Pool holds one live client per remote responder.
type Pool struct {
	mu               sync.RWMutex
	clients          map[string]*ManagedClient
	transportFactory TransportFactory
}

func NewPool() *Pool {
	return NewPoolWithFactory(NewTransport)
}

func NewPoolWithFactory(factory TransportFactory) *Pool {
	return &Pool{
		clients:          make(map[string]*ManagedClient),
		transportFactory: factory,
	}
}

// Add connects a client and replaces any previous one registered under id.
func (p *Pool) Add(ctx context.Context, id string, cfg ServerConfig) (*ManagedClient, error) {
	tType, err := cfg.GetTransport()
	if err != nil {
		return nil, err
	}

	transport, err := p.transportFactory(tType)
	if err != nil {
		return nil, err
	}

	cli, err := transport(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("transport creation failed: %w", err)
	}

	managed := &ManagedClient{Client: cli, name: id}

	p.mu.Lock()
	old := p.clients[id]
	p.clients[id] = managed
	p.mu.Unlock()

	if old != nil {
		go old.Close()
	}
	return managed, nil
}

func (p *Pool) Del(id string) error {
	p.mu.Lock()
	cli, exists := p.clients[id]
	delete(p.clients, id)
	p.mu.Unlock()

	if !exists {
		return nil
	}
	return cli.Close()
}

func (p *Pool) Get(id string) (*ManagedClient, bool) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	cli, ok := p.clients[id]
	return cli, ok
}

func (p *Pool) All() map[string]*ManagedClient {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return maps.Clone(p.clients)
}

func (p *Pool) Close() error {
	p.mu.Lock()
	clients := p.clients
	p.clients = make(map[string]*ManagedClient)
	p.mu.Unlock()

	var errs []error
	for _, cli := range clients {
		if err := cli.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
