// Package config loads the gateway configuration from the environment
// and an optional .env file.
package config

import (
	"fmt"

	"github.com/spf13/viper"
)

type Config struct {
	Port     string `mapstructure:"PORT"`
	Env      string `mapstructure:"ENV"`
	LogLevel string `mapstructure:"LOG_LEVEL"`

	MSPID        string `mapstructure:"MSP_ID"`
	CertPath     string `mapstructure:"CERT_PATH"`
	KeyPath      string `mapstructure:"KEY_PATH"`
	TLSCertPath  string `mapstructure:"TLS_CERT_PATH"`
	PeerEndpoint string `mapstructure:"PEER_ENDPOINT"`
	GatewayPeer  string `mapstructure:"GATEWAY_PEER"`
	Channel      string `mapstructure:"CHANNEL"`
	Chaincode    string `mapstructure:"CHAINCODE"`

	JWTSecret string `mapstructure:"JWT_SECRET"`

	VaultPath       string `mapstructure:"VAULT_PATH"`
	VaultPassphrase string `mapstructure:"VAULT_PASSPHRASE"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("PORT", "8090")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("GATEWAY_PEER", "peer0.org1.example.com")
	v.SetDefault("CHANNEL", "medchannel")
	v.SetDefault("CHAINCODE", "medledger")
	v.SetDefault("VAULT_PATH", "./vault")

	// Bind env vars explicitly so Unmarshal picks them up
	v.BindEnv("PORT")
	v.BindEnv("ENV")
	v.BindEnv("LOG_LEVEL")
	v.BindEnv("MSP_ID")
	v.BindEnv("CERT_PATH")
	v.BindEnv("KEY_PATH")
	v.BindEnv("TLS_CERT_PATH")
	v.BindEnv("PEER_ENDPOINT")
	v.BindEnv("GATEWAY_PEER")
	v.BindEnv("CHANNEL")
	v.BindEnv("CHAINCODE")
	v.BindEnv("JWT_SECRET")
	v.BindEnv("VAULT_PATH")
	v.BindEnv("VAULT_PASSPHRASE")

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

// Validate checks that the configuration is safe to run. Connection
// material and secrets have no usable defaults, so they must be set
// explicitly before the gateway starts.
func (c *Config) Validate() error {
	for _, required := range []struct{ name, value string }{
		{"MSP_ID", c.MSPID},
		{"CERT_PATH", c.CertPath},
		{"KEY_PATH", c.KeyPath},
		{"TLS_CERT_PATH", c.TLSCertPath},
		{"PEER_ENDPOINT", c.PeerEndpoint},
		{"VAULT_PASSPHRASE", c.VaultPassphrase},
	} {
		if required.value == "" {
			return fmt.Errorf("%s is required", required.name)
		}
	}
	if c.JWTSecret == "" && !c.IsDev() {
		return fmt.Errorf("JWT_SECRET is required outside development (current ENV=%q)", c.Env)
	}
	if c.JWTSecret != "" && len(c.JWTSecret) < 32 {
		return fmt.Errorf("JWT_SECRET must be at least 32 bytes, got %d", len(c.JWTSecret))
	}
	return nil
}
