package config

import "os"

func IsDebug() bool {
	return os.Getenv("KBQA_DEBUG") == "1"
}
