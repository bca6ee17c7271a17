package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Port         string
	DatabaseURL  string   // empty means the in-memory journal store
	KafkaBrokers []string // empty means events are dropped
	ChainId      string
	TokenId      string
	Owner        string
	VaultAccount string
	PoolAccount  string
}

// Load reads the optional .env file and resolves the configuration from
// the environment.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		Port:         Env("PORT", "8080"),
		DatabaseURL:  Env("DATABASE_URL", ""),
		KafkaBrokers: splitList(Env("KAFKA_BROKERS", "")),
		ChainId:      Env("CHAIN_ID", "local"),
		TokenId:      Env("TOKEN_ID", "RBT"),
		Owner:        Env("OWNER_ACCOUNT", "owner"),
		VaultAccount: Env("VAULT_ACCOUNT", "vault"),
		PoolAccount:  Env("POOL_ACCOUNT", "bridge-pool"),
	}
}

func Env(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
