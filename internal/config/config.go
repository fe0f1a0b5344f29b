package config

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"gopkg.in/yaml.v3"
)

// Config holds the overall configuration for the application.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Chain     ChainConfig     `yaml:"chain"`
	RpcClient RpcClientConfig `yaml:"rpcClient"`
	Cache     CacheConfig     `yaml:"cache"`
	Oracle    OracleConfig    `yaml:"oracle"`
	Staking   StakingConfig   `yaml:"staking"`
	Protocols []ProtocolEntry `yaml:"protocols"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig holds the server-specific configuration.
type ServerConfig struct {
	Port         string `yaml:"port"`
	ReadTimeout  int    `yaml:"readTimeout"`
	WriteTimeout int    `yaml:"writeTimeout"`
	IdleTimeout  int    `yaml:"idleTimeout"`
}

// ChainConfig holds the RPC endpoint configuration for the chain.
type ChainConfig struct {
	PrimaryRPCURL       string   `yaml:"endpoint"`
	FallbackRPCURLs     []string `yaml:"fallbackEndpoints"`
	ConnectionTimeoutMs int64    `yaml:"connectionTimeoutMs"`
	RPCCallTimeoutMs    int64    `yaml:"rpcCallTimeoutMs"`
	// GenesisBlock is the deployment block of the staking system; timestamps
	// before it are unresolvable.
	GenesisBlock uint64 `yaml:"genesisBlock"`
}

// RpcClientConfig holds retry and throttling settings for chain reads.
type RpcClientConfig struct {
	MaxRetries            int   `yaml:"maxRetries"`
	RetryDelayMs          int64 `yaml:"retryDelayMs"`
	RateLimit             int   `yaml:"rateLimit"`
	BurstLimit            int   `yaml:"burstLimit"`
	MaxConcurrentRequests int   `yaml:"maxConcurrentRequests"`
}

// CacheConfig holds configuration for the memoizing cache.
type CacheConfig struct {
	TTLMinutes int `yaml:"ttlMinutes"`
}

// OracleConfig holds the configuration for the USD price oracle client.
type OracleConfig struct {
	BaseURL              string `yaml:"baseURL"`
	RequestTimeoutMillis int64  `yaml:"requestTimeoutMillis"`
}

// StakingConfig holds the on-chain addresses and constants for the APY
// calculation.
type StakingConfig struct {
	StakingContract string       `yaml:"stakingContract"`
	MintingContract string       `yaml:"mintingContract"`
	ProtocolFeeBps  int64        `yaml:"protocolFeeBps"`
	STRKAsset       AssetEntry   `yaml:"strkAsset"`
	BTCAssets       []AssetEntry `yaml:"btcAssets"`
}

// AssetEntry describes one liquid-staking token.
type AssetEntry struct {
	Symbol           string `yaml:"symbol"`
	Contract         string `yaml:"contract"`
	UnderlyingSymbol string `yaml:"underlyingSymbol"`
	Decimals         uint32 `yaml:"decimals"`
}

// ProtocolEntry registers one protocol position contract. Adding a
// protocol is one entry here, not a new call site.
type ProtocolEntry struct {
	Key      string `yaml:"key"`
	Contract string `yaml:"contract"`
}

// LoggingConfig holds the configuration for logging.
type LoggingConfig struct {
	Level string `yaml:"level"` // e.g., "debug", "info", "warn", "error"
	File  string `yaml:"file"`
}

// LoadConfig loads configuration from a YAML file.
func LoadConfig(path string) (*Config, error) {
	logrus.Infof("Loading configuration from path: %s", path)
	data, err := os.ReadFile(path)
	if err != nil {
		logrus.Errorf("Failed to read config file %s: %v", path, err)
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	err = yaml.Unmarshal(data, &cfg)
	if err != nil {
		logrus.Errorf("Failed to unmarshal config data from %s: %v", path, err)
		return nil, fmt.Errorf("failed to unmarshal config data from %s: %w", path, err)
	}

	if cfg.Chain.PrimaryRPCURL == "" {
		return nil, fmt.Errorf("chain.endpoint is required")
	}
	if cfg.Chain.ConnectionTimeoutMs == 0 {
		cfg.Chain.ConnectionTimeoutMs = 5000
	}
	if cfg.Chain.RPCCallTimeoutMs == 0 {
		cfg.Chain.RPCCallTimeoutMs = 10000
	}

	if cfg.RpcClient.MaxRetries == 0 {
		cfg.RpcClient.MaxRetries = 3
		logrus.Infof("rpcClient.maxRetries not set, defaulting to %d", cfg.RpcClient.MaxRetries)
	}
	if cfg.RpcClient.RetryDelayMs == 0 {
		cfg.RpcClient.RetryDelayMs = 1000
	}
	if cfg.RpcClient.RateLimit == 0 {
		cfg.RpcClient.RateLimit = 50
	}
	if cfg.RpcClient.BurstLimit == 0 {
		cfg.RpcClient.BurstLimit = 10
	}
	if cfg.RpcClient.MaxConcurrentRequests == 0 {
		cfg.RpcClient.MaxConcurrentRequests = 16
	}

	if cfg.Cache.TTLMinutes == 0 {
		cfg.Cache.TTLMinutes = 60 // Default to 1 hour
		logrus.Infof("cache.ttlMinutes not set, defaulting to %d minutes", cfg.Cache.TTLMinutes)
	}

	if cfg.Oracle.RequestTimeoutMillis == 0 {
		cfg.Oracle.RequestTimeoutMillis = 10000
	}

	if cfg.Staking.STRKAsset.Contract == "" {
		return nil, fmt.Errorf("staking.strkAsset.contract is required")
	}
	if cfg.Staking.STRKAsset.Decimals == 0 {
		cfg.Staking.STRKAsset.Decimals = 18
	}
	for i, asset := range cfg.Staking.BTCAssets {
		if asset.Symbol == "" || asset.Contract == "" || asset.UnderlyingSymbol == "" {
			return nil, fmt.Errorf("every btcAssets entry needs symbol, contract and underlyingSymbol")
		}
		if asset.Decimals == 0 {
			cfg.Staking.BTCAssets[i].Decimals = 8
		}
	}

	if len(cfg.Protocols) == 0 {
		logrus.Warn("No protocols configured; holdings snapshots will be empty.")
	}
	for _, p := range cfg.Protocols {
		if p.Key == "" || p.Contract == "" {
			return nil, fmt.Errorf("every protocols entry needs key and contract")
		}
	}

	logrus.Info("Configuration loaded successfully.")
	return &cfg, nil
}
