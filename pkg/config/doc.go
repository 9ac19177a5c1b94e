// Package config loads CLI configuration from the environment and an optional
// .env file, and persists the login token between runs.
package config
