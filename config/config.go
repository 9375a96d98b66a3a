// Package config loads the watcher's yaml configuration trees and the
// environment override set.
package config

import (
	"fmt"
	"net/url"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/pareedo/pigeonwatch/internal/crawler"
)

// SpiderConfig is the scraping configuration tree: one endpoint section
// per concern plus the tap target and client pools.
type SpiderConfig struct {
	crawler.Endpoints `yaml:",inline"`

	// TargetURL is the auction page the browser tap is pointed at.
	TargetURL  string   `yaml:"target_url"`
	UserAgents []string `yaml:"user_agents"`
	Proxies    []string `yaml:"proxies"`

	// Spreadsheet is the optional ring-context CSV path.
	Spreadsheet string `yaml:"spreadsheet"`
}

// LoadSpider reads and parses the spider configuration file.
func LoadSpider(path string) (SpiderConfig, error) {
	var cfg SpiderConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read spider config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse spider config %s: %w", path, err)
	}
	if cfg.Ledger.APIURL == "" {
		return cfg, fmt.Errorf("config: spider config %s: pid_pigeons.api_url required", path)
	}
	if cfg.Current.APIURL == "" {
		return cfg, fmt.Errorf("config: spider config %s: current_pigeons.api_url required", path)
	}
	return cfg, nil
}

// DBConfig wraps the database section. The upstream section name is
// kept as the canonical key.
type DBConfig struct {
	Database DBSection `yaml:"mysqlconfig"`
}

// DBSection holds the connection settings for the store.
type DBSection struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Database string `yaml:"database"`
	PoolSize int    `yaml:"pool_size"`
}

// DSN renders the section as a pgx pool connection string.
func (s DBSection) DSN() string {
	host := s.Host
	if host == "" {
		host = "127.0.0.1"
	}
	port := s.Port
	if port == 0 {
		port = 5432
	}
	dsn := fmt.Sprintf("postgres://%s@%s:%d/%s?sslmode=disable",
		url.UserPassword(s.User, s.Password).String(), host, port, s.Database)
	if s.PoolSize > 0 {
		dsn += fmt.Sprintf("&pool_max_conns=%d", s.PoolSize)
	}
	return dsn
}

// LoadDB reads and parses the database configuration file.
func LoadDB(path string) (DBConfig, error) {
	var cfg DBConfig
	raw, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("config: read db config: %w", err)
	}
	if err := yaml.Unmarshal(raw, &cfg); err != nil {
		return cfg, fmt.Errorf("config: parse db config %s: %w", path, err)
	}
	if cfg.Database.Database == "" {
		return cfg, fmt.Errorf("config: db config %s: database name required", path)
	}
	return cfg, nil
}
