package mcp

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/sandevgo/kbqa/pkg/log"
)

const pollInterval = time.Second

// FileStorage keeps the remote responder list in a JSON file.
type FileStorage struct {
	path     string
	interval time.Duration
	mu       sync.RWMutex
}

func NewFileStorage(path string) *FileStorage {
	return &FileStorage{
		path:     path,
		interval: pollInterval,
	}
}

// Load reads the config. A missing file is created empty when its
// directory exists.
func (c *FileStorage) Load(ctx context.Context) (*Config, error) {
	c.mu.RLock()
	data, err := os.ReadFile(c.path)
	c.mu.RUnlock()

	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read responders config: %w", err)
		}
		if _, statErr := os.Stat(filepath.Dir(c.path)); statErr != nil {
			return nil, fmt.Errorf("config directory does not exist: %w", err)
		}

		log.FromCtx(ctx).Info().Str("path", c.path).Msg("responders config not found, creating empty one")
		cfg := &Config{Responders: make(map[string]ServerConfig)}
		if err := c.Save(ctx, cfg); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	return parse(data)
}

func parse(data []byte) (*Config, error) {
	cfg := &Config{}
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse responders config: %w", err)
	}
	if cfg.Responders == nil {
		cfg.Responders = make(map[string]ServerConfig)
	}
	return cfg, nil
}

func (c *FileStorage) Save(_ context.Context, cfg *Config) error {
	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	// Write then rename so pollers never read half a file.
	tmp := c.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	if err := os.Rename(tmp, c.path); err != nil {
		return fmt.Errorf("failed to replace config: %w", err)
	}
	return nil
}

// Watch polls the file and emits the config whenever its mtime advances.
func (c *FileStorage) Watch(ctx context.Context) (<-chan Config, error) {
	info, err := os.Stat(c.path)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	lastMod := info.ModTime()
	updates := make(chan Config)

	go func() {
		defer close(updates)

		ticker := time.NewTicker(c.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
			}

			c.mu.RLock()
			info, err := os.Stat(c.path)
			var data []byte
			if err == nil {
				data, err = os.ReadFile(c.path)
			}
			c.mu.RUnlock()

			if err != nil {
				lastMod = time.Time{}
				continue
			}
			if !info.ModTime().After(lastMod) {
				continue
			}

			cfg, err := parse(data)
			if err != nil {
				log.FromCtx(ctx).Error().Err(err).Msg("failed to parse responders config")
				continue
			}
			lastMod = info.ModTime()

			select {
			case updates <- *cfg:
			case <-ctx.Done():
				return
			}
		}
	}()

	return updates, nil
}
