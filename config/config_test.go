package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write %s: %v", name, err)
	}
	return path
}

const spiderYAML = `
target_url: "https://m.example.com/live"
gongpeng:
  api_url: "https://api.example.com/gongpeng"
  delay: 300ms
  timeout: 10s
  max_retries: 3
  params:
    pagesize: "50"
auction_sections:
  api_url: "https://api.example.com/sections"
auction_pigeons:
  api_url: "https://api.example.com/pigeons"
current_pigeons:
  api_url: "https://api.example.com/current"
pid_pigeons:
  api_url: "https://api.example.com/bids"
  delay: 80ms
user_agents:
  - "UA-1"
spreadsheet: "rings.csv"
`

func TestLoadSpider(t *testing.T) {
	path := writeFile(t, "spider.yaml", spiderYAML)
	cfg, err := LoadSpider(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.TargetURL != "https://m.example.com/live" {
		t.Fatalf("target=%q", cfg.TargetURL)
	}
	if cfg.Auctions.APIURL != "https://api.example.com/gongpeng" {
		t.Fatalf("auctions=%q", cfg.Auctions.APIURL)
	}
	if cfg.Auctions.Delay != 300*time.Millisecond || cfg.Auctions.Timeout != 10*time.Second {
		t.Fatalf("auctions timings=%+v", cfg.Auctions)
	}
	if cfg.Auctions.Params["pagesize"] != "50" {
		t.Fatalf("params=%v", cfg.Auctions.Params)
	}
	if cfg.Ledger.Delay != 80*time.Millisecond {
		t.Fatalf("ledger=%+v", cfg.Ledger)
	}
	if len(cfg.UserAgents) != 1 || cfg.Spreadsheet != "rings.csv" {
		t.Fatalf("pools=%v spreadsheet=%q", cfg.UserAgents, cfg.Spreadsheet)
	}
}

func TestLoadSpiderMissingLedgerURL(t *testing.T) {
	path := writeFile(t, "spider.yaml", "gongpeng:\n  api_url: \"x\"\n")
	if _, err := LoadSpider(path); err == nil {
		t.Fatal("expected error for missing ledger endpoint")
	}
}

func TestLoadSpiderMissingFile(t *testing.T) {
	if _, err := LoadSpider(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error")
	}
}

func TestLoadDBAndDSN(t *testing.T) {
	path := writeFile(t, "db.yaml", `
mysqlconfig:
  host: "db.internal"
  port: 5433
  user: "app user"
  password: "p@ss:word"
  database: "pigeonwatch"
  pool_size: 10
`)
	cfg, err := LoadDB(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	dsn := cfg.Database.DSN()
	want := "postgres://app%20user:p%40ss:word@db.internal:5433/pigeonwatch?sslmode=disable&pool_max_conns=10"
	if dsn != want {
		t.Fatalf("dsn=%q want %q", dsn, want)
	}
}

func TestDSNDefaults(t *testing.T) {
	dsn := DBSection{User: "u", Password: "p", Database: "d"}.DSN()
	if dsn != "postgres://u:p@127.0.0.1:5432/d?sslmode=disable" {
		t.Fatalf("dsn=%q", dsn)
	}
}

func TestLoadDBMissingDatabase(t *testing.T) {
	path := writeFile(t, "db.yaml", "mysqlconfig:\n  host: x\n")
	if _, err := LoadDB(path); err == nil {
		t.Fatal("expected error for missing database name")
	}
}

func TestLoadFlowEnvDefaults(t *testing.T) {
	cfg, err := LoadFlowEnv()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.MaxConcurrency != 4 {
		t.Fatalf("concurrency=%d", cfg.MaxConcurrency)
	}
	if cfg.Cooldown() != 2*time.Second {
		t.Fatalf("cooldown=%v", cfg.Cooldown())
	}
	if !cfg.BootstrapUseCurrent {
		t.Fatal("bootstrap current must default on")
	}
	if cfg.SweepInterval() != time.Hour {
		t.Fatalf("sweep=%v", cfg.SweepInterval())
	}
	if cfg.Listen != ":8000" {
		t.Fatalf("listen=%q", cfg.Listen)
	}
}

func TestLoadFlowEnvOverrides(t *testing.T) {
	t.Setenv("PIGEON_FLOW_COOLDOWN_SEC", "0.5")
	t.Setenv("PIGEON_BOOTSTRAP_PIDS", "11,22")
	t.Setenv("PIGEON_BOOTSTRAP_USE_CURRENT", "false")
	t.Setenv("PIGEON_SSE_INTERVAL_MS", "10")
	t.Setenv("QUEUE_CAP", "64")

	cfg, err := LoadFlowEnv()
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if cfg.Cooldown() != 500*time.Millisecond {
		t.Fatalf("cooldown=%v", cfg.Cooldown())
	}
	if len(cfg.BootstrapPIDs) != 2 || cfg.BootstrapPIDs[1] != 22 {
		t.Fatalf("pids=%v", cfg.BootstrapPIDs)
	}
	if cfg.BootstrapUseCurrent {
		t.Fatal("bootstrap current override ignored")
	}
	// Clamped to the floor.
	if cfg.SSEWait() != 50*time.Millisecond {
		t.Fatalf("sse wait=%v", cfg.SSEWait())
	}
	if cfg.QueueCap != 64 {
		t.Fatalf("queue cap=%d", cfg.QueueCap)
	}
}
