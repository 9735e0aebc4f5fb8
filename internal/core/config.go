package core

type AppConfig interface {
	GetRuntimePath() string
	GetKnowledgePath() string
	GetRespondersPath() string
	GetSnapshotPath() string
}

type TelegramConfig interface {
	GetTelegramToken() string
	GetTelegramOwnerID() int64
}
