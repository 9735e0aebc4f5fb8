package kb

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/sandevgo/kbqa/internal/core"
	"github.com/sandevgo/kbqa/pkg/conv"
	"github.com/sandevgo/kbqa/pkg/log"
)

// Decode parses a knowledge file. Items without an explicit line get the
// line they start on, and items without a source get name.
func Decode(data []byte, name string) (*File, error) {
	var root yaml.Node
	if err := yaml.NewDecoder(bytes.NewReader(data)).Decode(&root); err != nil {
		if errors.Is(err, io.EOF) {
			return &File{}, nil
		}
		return nil, fmt.Errorf("%w: parse %s: %w", core.ErrKnowledgeBase, name, err)
	}
	if len(root.Content) == 0 {
		return &File{}, nil
	}
	doc := root.Content[0]
	if doc.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("%w: %s: top level must be a mapping", core.ErrKnowledgeBase, name)
	}

	f := &File{}
	for i := 0; i+1 < len(doc.Content); i += 2 {
		key, val := doc.Content[i].Value, doc.Content[i+1]
		var err error
		switch key {
		case "facts":
			f.Facts, err = decodeSection(val, func(it *Fact, line int) {
				it.Line = pick(it.Line, line)
				it.Source = or(it.Source, name)
			})
		case "rules":
			f.Rules, err = decodeSection(val, func(it *Rule, line int) {
				it.Line = pick(it.Line, line)
				it.Source = or(it.Source, name)
				it.Level = strings.ToUpper(it.Level)
			})
		case "responders":
			f.Responders, err = decodeSection(val, func(it *core.ResponderDefinition, line int) {
				it.Line = pick(it.Line, line)
				it.Source = or(it.Source, name)
				it.Dimension = strings.ToUpper(it.Dimension)
				if it.ID == "" {
					it.ID = strings.ToLower(it.Name)
				}
			})
		case "functions":
			f.Functions, err = decodeSection(val, func(it *Function, line int) {
				it.Line = pick(it.Line, line)
				it.Source = or(it.Source, name)
			})
		case "documents":
			f.Documents, err = decodeSection(val, func(it *Document, line int) {
				it.Line = pick(it.Line, line)
				it.Source = or(it.Source, name)
			})
		default:
			return nil, fmt.Errorf("%w: %s:%d: unknown section %q", core.ErrKnowledgeBase, name, doc.Content[i].Line, key)
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %s: %s: %w", core.ErrKnowledgeBase, name, key, err)
		}
	}
	return f, nil
}

func decodeSection[T any](node *yaml.Node, fix func(*T, int)) ([]T, error) {
	if node.Kind != yaml.SequenceNode {
		return nil, fmt.Errorf("line %d: expected a list", node.Line)
	}
	out := make([]T, 0, len(node.Content))
	for _, item := range node.Content {
		var v T
		if err := item.Decode(&v); err != nil {
			return nil, err
		}
		fix(&v, item.Line)
		out = append(out, v)
	}
	return out, nil
}

// LoadFile reads path and fills document bodies from local files and URLs.
// A document that cannot be read is logged and kept with whatever content
// it already has.
func LoadFile(ctx context.Context, path string, fetcher *Fetcher) (*File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", core.ErrKnowledgeBase, err)
	}

	f, err := Decode(data, filepath.Base(path))
	if err != nil {
		return nil, err
	}

	logger := log.FromCtx(ctx)
	dir := filepath.Dir(path)
	for i := range f.Documents {
		d := &f.Documents[i]
		if d.Content != "" {
			continue
		}
		switch {
		case d.Path != "":
			d.Content, err = readDocument(filepath.Join(dir, d.Path))
		case d.URL != "" && fetcher != nil:
			d.Content, err = fetcher.Fetch(ctx, d.URL)
		default:
			continue
		}
		if err != nil {
			logger.Warn().Err(err).Str("document", or(d.Title, d.Source)).Msg("failed to load document body")
		}
	}
	return f, nil
}

func readDocument(path string) (string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".html", ".htm":
		return conv.HTMLToText(string(data))
	}
	return strings.TrimSpace(string(data)), nil
}

func pick(explicit, line int) int {
	if explicit > 0 {
		return explicit
	}
	return line
}

func or(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}
