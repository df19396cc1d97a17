// Package config loads configuration from YAML files, .env files and
// environment variables using Viper.
//
// # Usage
//
//	var cfg app.Config
//	err := config.LoadConfig("demandflow", &cfg, config.WithConfigFile(path))
//
// Environment variables override file values; PIPELINE_WORKERS maps to
// pipeline.workers. A Watcher keeps a validated copy of the configuration and
// notifies subscribers when the file changes.
package config
