package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/spf13/pflag"
)

const (
	exchangeHex = "0x0000000000000000000000000000000000000e0e"
	tokenHex    = "0x00000000000000000000000000000000000000aa"
)

func chdirTemp(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	wd, err := os.Getwd()
	if err != nil {
		t.Fatalf("getwd: %v", err)
	}
	if err := os.Chdir(dir); err != nil {
		t.Fatalf("chdir: %v", err)
	}
	t.Cleanup(func() { _ = os.Chdir(wd) })
	return dir
}

func TestLoadDefaults(t *testing.T) {
	chdirTemp(t)
	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.ChainID != 5 || cfg.FeeNumerator != 1 || cfg.FeeDenominator != 100 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ConfirmTimeout != 2*time.Minute || cfg.RetryBackoff != 500*time.Millisecond || cfg.MaxRetries != 5 {
		t.Fatalf("unexpected timing defaults: %+v", cfg)
	}
	if cfg.TokenDecimals != 18 || cfg.Journal != "none" || cfg.LogLevel != "info" {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
}

func TestLoadPrecedence(t *testing.T) {
	dir := chdirTemp(t)
	cfgPath := filepath.Join(dir, "amm.yaml")
	content := strings.Join([]string{
		"rpc: http://file:8545",
		"exchange: " + exchangeHex,
		"token: " + tokenHex,
		"slippage-bps: 50",
		"journal: jsonl",
	}, "\n")
	if err := os.WriteFile(cfgPath, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	t.Setenv("AMM_SLIPPAGE_BPS", "75")
	t.Setenv("AMM_CONFIRM_TIMEOUT", "30s")

	flags := pflag.NewFlagSet("test", pflag.ContinueOnError)
	flags.String("rpc", "", "")
	flags.Bool("yes", false, "")
	if err := flags.Parse([]string{"--rpc", "http://flag:8545", "--yes"}); err != nil {
		t.Fatalf("parse flags: %v", err)
	}

	cfg, err := Load(cfgPath, flags)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.RPCURL != "http://flag:8545" {
		t.Fatalf("flag should win, got %s", cfg.RPCURL)
	}
	if cfg.SlippageBps != 75 {
		t.Fatalf("env should override file, got %d", cfg.SlippageBps)
	}
	if cfg.ConfirmTimeout != 30*time.Second {
		t.Fatalf("confirm timeout = %s", cfg.ConfirmTimeout)
	}
	if !cfg.Yes || cfg.Journal != "jsonl" || cfg.Exchange != exchangeHex {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if err := cfg.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}
}

func TestLoadAddressSettings(t *testing.T) {
	cases := []struct {
		name    string
		yaml    string
		want    string
		wantErr bool
	}{
		{name: "unquoted small hex", yaml: "exchange: 0x0000000000000000000000000000000000000e0e", want: exchangeHex},
		{name: "quoted", yaml: `exchange: "0x0000000000000000000000000000000000000e0e"`, want: exchangeHex},
		{name: "unquoted full width", yaml: "exchange: 0xAbCdEf0123456789aBcDeF0123456789AbCdEf01", want: "0xAbCdEf0123456789aBcDeF0123456789AbCdEf01"},
		{name: "float", yaml: "exchange: 1.5", wantErr: true},
		{name: "negative", yaml: "exchange: -3", wantErr: true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			dir := chdirTemp(t)
			cfgPath := filepath.Join(dir, "amm.yaml")
			if err := os.WriteFile(cfgPath, []byte(tc.yaml+"\n"), 0o644); err != nil {
				t.Fatalf("write config: %v", err)
			}
			cfg, err := Load(cfgPath, nil)
			if tc.wantErr {
				if err == nil {
					t.Fatalf("expected error, got exchange %q", cfg.Exchange)
				}
				return
			}
			if err != nil {
				t.Fatalf("Load error: %v", err)
			}
			if cfg.Exchange != tc.want {
				t.Fatalf("exchange = %q, want %q", cfg.Exchange, tc.want)
			}
		})
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := chdirTemp(t)
	if err := os.WriteFile(filepath.Join(dir, ".env"), []byte("AMM_TOKEN_DECIMALS=6\n"), 0o644); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	t.Cleanup(func() { os.Unsetenv("AMM_TOKEN_DECIMALS") })

	cfg, err := Load("", nil)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg.TokenDecimals != 6 {
		t.Fatalf("token decimals = %d, want 6", cfg.TokenDecimals)
	}
}

func TestValidate(t *testing.T) {
	valid := Config{
		RPCURL:         "http://localhost:8545",
		ChainID:        5,
		Exchange:       exchangeHex,
		Token:          tokenHex,
		FeeNumerator:   1,
		FeeDenominator: 100,
	}
	if err := valid.Validate(); err != nil {
		t.Fatalf("Validate error: %v", err)
	}

	cases := map[string]func(c *Config){
		"missing rpc":      func(c *Config) { c.RPCURL = "" },
		"bad exchange":     func(c *Config) { c.Exchange = "0x123" },
		"missing token":    func(c *Config) { c.Token = "" },
		"bad account":      func(c *Config) { c.Account = "alice" },
		"bad fee":          func(c *Config) { c.FeeNumerator = 100 },
		"slippage":         func(c *Config) { c.SlippageBps = 10_001 },
		"journal":          func(c *Config) { c.Journal = "kafka" },
		"postgres missing": func(c *Config) { c.Journal = "postgres" },
	}
	for name, mutate := range cases {
		c := valid
		mutate(&c)
		if err := c.Validate(); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}
}

func TestParseAddress(t *testing.T) {
	addr, err := ParseAddress("token", " "+tokenHex+" ")
	if err != nil {
		t.Fatalf("ParseAddress error: %v", err)
	}
	if addr != common.HexToAddress(tokenHex) {
		t.Fatalf("unexpected address %s", addr.Hex())
	}
	if _, err := ParseAddress("token", "nope"); err == nil {
		t.Fatalf("expected error")
	}
}
