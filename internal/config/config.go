package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"multipool/internal/model"
)

// EnvPrefix prefixes every environment override, e.g. MULTIPOOL_LOG_LEVEL.
const EnvPrefix = "MULTIPOOL"

// DefaultDeviationPercentLimit applies when the config leaves the limit unset.
const DefaultDeviationPercentLimit = "100000000000000000"

// ParamsConfig holds the pool fee parameters as decimal strings.
type ParamsConfig struct {
	HalfDeviationFeeRatio string `mapstructure:"half_deviation_fee_ratio"`
	DeviationPercentLimit string `mapstructure:"deviation_percent_limit"`
	BaseMintFee           string `mapstructure:"base_mint_fee"`
	BaseBurnFee           string `mapstructure:"base_burn_fee"`
	BaseTradeFee          string `mapstructure:"base_trade_fee"`
}

// AssetConfig seeds one asset before a replay starts.
type AssetConfig struct {
	Address string `mapstructure:"address"`
	Price   string `mapstructure:"price"`
	Percent string `mapstructure:"percent"`
}

// PoolConfig is the initial pool read from the config file.
type PoolConfig struct {
	Params ParamsConfig
	Assets []AssetConfig
}

// ParamsState converts the configured parameters, filling the default limit.
func (c PoolConfig) ParamsState() model.ParamsState {
	limit := strings.TrimSpace(c.Params.DeviationPercentLimit)
	if limit == "" {
		limit = DefaultDeviationPercentLimit
	}
	return model.ParamsState{
		HalfDeviationFeeRatio: c.Params.HalfDeviationFeeRatio,
		DeviationPercentLimit: limit,
		BaseMintFee:           c.Params.BaseMintFee,
		BaseBurnFee:           c.Params.BaseBurnFee,
		BaseTradeFee:          c.Params.BaseTradeFee,
	}
}

// SimulateConfig holds configuration for replaying a journal.
type SimulateConfig struct {
	Input             string
	Out               string
	BatchSize         int
	Checkpoint        string
	CheckpointEnabled bool
	PGDSN             string
	StateName         string
	StopOnError       bool
	MaxRetries        int
	RetryBackoff      time.Duration
	LogLevel          string
	Pool              PoolConfig
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("batch-size", 500)
		v.SetDefault("out", "./data/results.jsonl")
		v.SetDefault("checkpoint", "./data/checkpoint.json")
		v.SetDefault("checkpoint-enabled", true)
		v.SetDefault("state-name", "default")
		v.SetDefault("max-retries", 5)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
	})
	if err != nil {
		return SimulateConfig{}, err
	}

	cfg := SimulateConfig{
		Input:             v.GetString("in"),
		Out:               v.GetString("out"),
		BatchSize:         v.GetInt("batch-size"),
		Checkpoint:        v.GetString("checkpoint"),
		CheckpointEnabled: v.GetBool("checkpoint-enabled"),
		PGDSN:             v.GetString("pg-dsn"),
		StateName:         v.GetString("state-name"),
		StopOnError:       v.GetBool("stop-on-error"),
		MaxRetries:        v.GetInt("max-retries"),
		RetryBackoff:      v.GetDuration("retry-backoff"),
		LogLevel:          v.GetString("log-level"),
	}
	if err := v.UnmarshalKey("params", &cfg.Pool.Params); err != nil {
		return SimulateConfig{}, fmt.Errorf("decode params: %w", err)
	}
	if err := v.UnmarshalKey("assets", &cfg.Pool.Assets); err != nil {
		return SimulateConfig{}, fmt.Errorf("decode assets: %w", err)
	}

	return cfg, nil
}

// QuoteConfig holds configuration for a single estimate.
type QuoteConfig struct {
	Checkpoint string
	PGDSN      string
	StateName  string
	Op         string
	Asset      string
	AssetOut   string
	Shares     string
	Amount     string
	LogLevel   string
}

// LoadQuote merges config file, environment variables, and flags into QuoteConfig.
func LoadQuote(cfgFile string, flags *pflag.FlagSet) (QuoteConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("checkpoint", "./data/checkpoint.json")
		v.SetDefault("state-name", "default")
		v.SetDefault("op", "mint")
	})
	if err != nil {
		return QuoteConfig{}, err
	}

	return QuoteConfig{
		Checkpoint: v.GetString("checkpoint"),
		PGDSN:      v.GetString("pg-dsn"),
		StateName:  v.GetString("state-name"),
		Op:         strings.ToLower(strings.TrimSpace(v.GetString("op"))),
		Asset:      v.GetString("asset"),
		AssetOut:   v.GetString("asset-out"),
		Shares:     v.GetString("shares"),
		Amount:     v.GetString("amount"),
		LogLevel:   v.GetString("log-level"),
	}, nil
}

// AuditConfig holds configuration for comparing a snapshot with chain balances.
type AuditConfig struct {
	RPCURL       string
	PoolAddress  string
	Block        uint64
	Assets       []string
	Checkpoint   string
	PGDSN        string
	StateName    string
	MaxRetries   int
	RetryBackoff time.Duration
	LogLevel     string
}

// LoadAudit merges config file, environment variables, and flags into AuditConfig.
func LoadAudit(cfgFile string, flags *pflag.FlagSet) (AuditConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("checkpoint", "./data/checkpoint.json")
		v.SetDefault("state-name", "default")
		v.SetDefault("max-retries", 3)
		v.SetDefault("retry-backoff", 500*time.Millisecond)
	})
	if err != nil {
		return AuditConfig{}, err
	}

	return AuditConfig{
		RPCURL:       v.GetString("rpc"),
		PoolAddress:  v.GetString("pool"),
		Block:        v.GetUint64("block"),
		Assets:       getStringSlice(v, "asset"),
		Checkpoint:   v.GetString("checkpoint"),
		PGDSN:        v.GetString("pg-dsn"),
		StateName:    v.GetString("state-name"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
		LogLevel:     v.GetString("log-level"),
	}, nil
}

// newViper layers defaults, env, flags and the optional config file.
func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(*viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("log-level", "info")
	if defaults != nil {
		defaults(v)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}

	return v, nil
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}
