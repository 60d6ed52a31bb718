package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	MongoURI          string        `mapstructure:"mongo_uri"`
	MongoDB           string        `mapstructure:"mongo_db"`
	Port              string        `mapstructure:"port"`
	ReconcileInterval time.Duration `mapstructure:"reconcile_interval"`
	Eth               EthConfig     `mapstructure:"eth"`
	Relayer           RelayerConfig `mapstructure:"relayer"`
	Vault             VaultConfig   `mapstructure:"vault"`
}

type EthConfig struct {
	RPC           string `mapstructure:"rpc"`
	ChainID       int64  `mapstructure:"chain_id"`
	TokenAddress  string `mapstructure:"token_address"`
	DomainName    string `mapstructure:"domain_name"`
	DomainVersion string `mapstructure:"domain_version"`
}

type RelayerConfig struct {
	BaseURL string        `mapstructure:"base_url"`
	APIKey  string        `mapstructure:"api_key"`
	Timeout time.Duration `mapstructure:"timeout"`
}

type VaultConfig struct {
	Passphrase string `mapstructure:"passphrase"`
}

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	// ENV overrides YAML
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("port", "5050")
	v.SetDefault("reconcile_interval", 15*time.Second)
	v.SetDefault("eth.rpc", "https://testnet-rpc.plasma.to")
	v.SetDefault("eth.chain_id", 9746)
	v.SetDefault("eth.token_address", "0x502012b361aebce43b26ec812b74d9a51db4d412")
	v.SetDefault("eth.domain_name", "USDT0")
	v.SetDefault("eth.domain_version", "1")
	v.SetDefault("relayer.timeout", 20*time.Second)

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
