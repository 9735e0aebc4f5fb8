package configs

import "embed"

const (
	KnowledgeFile  = "knowledge.yaml"
	RespondersFile = "responders.json"
)

//go:embed knowledge.yaml responders.json
var FS embed.FS
