package config

import (
	"errors"
	"fmt"
	"io/fs"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/joho/godotenv"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"ammclient/internal/amm"
)

// Config holds configuration values loaded from flags, env, or config file.
type Config struct {
	RPCURL         string
	ChainID        uint64
	Exchange       string
	Token          string
	PrivateKey     string
	Account        string
	FeeNumerator   uint64
	FeeDenominator uint64
	SlippageBps    uint64
	ConfirmTimeout time.Duration
	MaxRetries     int
	RetryBackoff   time.Duration
	TokenDecimals  uint8
	Journal        string
	JournalPath    string
	PGDSN          string
	TelegramToken  string
	TelegramChatID int64
	Yes            bool
	LogLevel       string
}

// Load merges .env, config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return Config{}, err
	}

	v := viper.New()
	v.SetEnvPrefix("AMM")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("chain-id", uint64(5))
	v.SetDefault("fee-numerator", amm.DefaultFee.Numerator)
	v.SetDefault("fee-denominator", amm.DefaultFee.Denominator)
	v.SetDefault("slippage-bps", uint64(0))
	v.SetDefault("confirm-timeout", 2*time.Minute)
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("token-decimals", 18)
	v.SetDefault("journal", "none")
	v.SetDefault("journal-path", "./data/journal.jsonl")
	v.SetDefault("log-level", "info")

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return Config{}, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return Config{}, fmt.Errorf("read config: %w", err)
			}
		}
	}

	decimals := v.GetUint("token-decimals")
	if decimals > 77 {
		return Config{}, fmt.Errorf("token-decimals %d out of range", decimals)
	}

	addresses := make(map[string]string, 3)
	for _, key := range []string{"exchange", "token", "account"} {
		addr, err := addressSetting(v, key)
		if err != nil {
			return Config{}, err
		}
		addresses[key] = addr
	}

	cfg := Config{
		RPCURL:         v.GetString("rpc"),
		ChainID:        v.GetUint64("chain-id"),
		Exchange:       addresses["exchange"],
		Token:          addresses["token"],
		PrivateKey:     v.GetString("private-key"),
		Account:        addresses["account"],
		FeeNumerator:   v.GetUint64("fee-numerator"),
		FeeDenominator: v.GetUint64("fee-denominator"),
		SlippageBps:    v.GetUint64("slippage-bps"),
		ConfirmTimeout: v.GetDuration("confirm-timeout"),
		MaxRetries:     v.GetInt("max-retries"),
		RetryBackoff:   v.GetDuration("retry-backoff"),
		TokenDecimals:  uint8(decimals),
		Journal:        strings.ToLower(v.GetString("journal")),
		JournalPath:    v.GetString("journal-path"),
		PGDSN:          v.GetString("pg-dsn"),
		TelegramToken:  v.GetString("telegram-token"),
		TelegramChatID: v.GetInt64("telegram-chat-id"),
		Yes:            v.GetBool("yes"),
		LogLevel:       v.GetString("log-level"),
	}

	return cfg, nil
}

// Validate checks the values every command needs.
func (c Config) Validate() error {
	if c.RPCURL == "" {
		return fmt.Errorf("rpc url is required")
	}
	if c.ChainID == 0 {
		return fmt.Errorf("chain-id is required")
	}
	if _, err := ParseAddress("exchange", c.Exchange); err != nil {
		return err
	}
	if _, err := ParseAddress("token", c.Token); err != nil {
		return err
	}
	if c.Account != "" {
		if _, err := ParseAddress("account", c.Account); err != nil {
			return err
		}
	}
	if err := c.Fee().Validate(); err != nil {
		return fmt.Errorf("fee %s: %w", c.Fee(), err)
	}
	if c.SlippageBps > 10_000 {
		return fmt.Errorf("slippage-bps must be at most 10000, got %d", c.SlippageBps)
	}
	switch c.Journal {
	case "", "none", "jsonl", "postgres":
	default:
		return fmt.Errorf("unknown journal %q (want none, jsonl or postgres)", c.Journal)
	}
	if c.Journal == "postgres" && c.PGDSN == "" {
		return fmt.Errorf("pg-dsn is required for the postgres journal")
	}
	return nil
}

// Fee returns the configured swap fee.
func (c Config) Fee() amm.Fee {
	return amm.Fee{Numerator: c.FeeNumerator, Denominator: c.FeeDenominator}
}

// ExchangeAddress returns the exchange contract address. Call Validate first.
func (c Config) ExchangeAddress() common.Address {
	return common.HexToAddress(c.Exchange)
}

// TokenAddress returns the paired token address. Call Validate first.
func (c Config) TokenAddress() common.Address {
	return common.HexToAddress(c.Token)
}

// addressSetting reads an address key. YAML decodes an unquoted 0x literal
// that fits in 64 bits as an integer, so integers are formatted back into a
// zero-padded 20-byte hex address.
func addressSetting(v *viper.Viper, key string) (string, error) {
	switch val := v.Get(key).(type) {
	case nil:
		return "", nil
	case string:
		return strings.TrimSpace(val), nil
	case int:
		return signedAddress(key, int64(val))
	case int64:
		return signedAddress(key, val)
	case uint64:
		return fmt.Sprintf("0x%040x", val), nil
	default:
		return "", fmt.Errorf("%s: unsupported value %v (%T); quote the address", key, val, val)
	}
}

func signedAddress(key string, val int64) (string, error) {
	if val < 0 {
		return "", fmt.Errorf("%s: negative value %d is not an address", key, val)
	}
	return fmt.Sprintf("0x%040x", val), nil
}

func loadDotEnv(path string) error {
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("load %s: %w", path, err)
	}
	return nil
}
