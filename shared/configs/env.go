package configs

import "os"

var Envs = struct {
	PORT               string
	FRONTEND_ORIGIN    string
	GIN_MODE           string
	WORDS_FILE         string
	NOTIFY_WEBHOOK_URL string
}{
	PORT:               os.Getenv("PORT"),
	FRONTEND_ORIGIN:    os.Getenv("FRONTEND_ORIGIN"),
	GIN_MODE:           os.Getenv("GIN_MODE"),
	WORDS_FILE:         os.Getenv("WORDS_FILE"),
	NOTIFY_WEBHOOK_URL: os.Getenv("NOTIFY_WEBHOOK_URL"),
}
