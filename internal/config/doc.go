// ABOUTME: Package documentation for the config package
// ABOUTME: Describes the YAML configuration format and loading behavior

// Package config loads and validates the chatsync YAML configuration.
//
// A configuration file looks like:
//
//	remote:
//	  base_url: "https://chat.example.com"
//	  timeout: "10s"
//
//	database:
//	  path: "~/.local/share/chatsync/chatsync.db"
//
//	breaker:
//	  failure_threshold: 3
//	  cooldown: "30s"
//
//	replication:
//	  page_size: 50
//
//	credentials:
//	  path: "~/.config/chatsync/credentials.toml"
//
//	analytics:
//	  enabled: true
//
//	logging:
//	  level: "info"
//	  format: "text"
//
// Environment variables in ${VAR_NAME} form are expanded before parsing,
// so secrets can be kept out of the file itself. Leaving remote.base_url
// empty runs chatsync in local-only mode: sessions are stored and browsed
// locally and nothing is replicated.
package config
