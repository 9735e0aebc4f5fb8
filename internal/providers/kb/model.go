package kb

import "github.com/sandevgo/kbqa/internal/core"

// File is the on-disk layout of knowledge.yaml.
type File struct {
	Facts      []Fact                     `yaml:"facts"`
	Rules      []Rule                     `yaml:"rules"`
	Responders []core.ResponderDefinition `yaml:"responders"`
	Functions  []Function                 `yaml:"functions"`
	Documents  []Document                 `yaml:"documents"`
}

type Fact struct {
	Name      string `yaml:"name"`
	Content   string `yaml:"content"`
	Responder string `yaml:"responder"`
	Source    string `yaml:"source"`
	Line      int    `yaml:"line"`
	URL       string `yaml:"url"`
}

type Rule struct {
	ID        string `yaml:"id"`
	Level     string `yaml:"level"`
	Content   string `yaml:"content"`
	Responder string `yaml:"responder"`
	Source    string `yaml:"source"`
	Line      int    `yaml:"line"`
}

type Function struct {
	Name        string   `yaml:"name"`
	Signature   string   `yaml:"signature"`
	Description string   `yaml:"description"`
	Examples    []string `yaml:"examples"`
	UsedBy      []string `yaml:"used_by"`
	Responder   string   `yaml:"responder"`
	Source      string   `yaml:"source"`
	Line        int      `yaml:"line"`
}

type Document struct {
	Title     string `yaml:"title"`
	Content   string `yaml:"content"`
	Path      string `yaml:"path"`
	URL       string `yaml:"url"`
	Responder string `yaml:"responder"`
	Source    string `yaml:"source"`
	Line      int    `yaml:"line"`
}
