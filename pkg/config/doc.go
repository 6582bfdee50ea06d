// Package config loads typed configuration structs from environment
// variables, with optional .env file support for local development.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11. Each
// configuration type is parsed at most once per process and cached, so the
// daemon's components can each call Load for their own config struct without
// coordinating.
package config
