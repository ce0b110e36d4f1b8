package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	Database    DatabaseConfig
	Server      ServerConfig
	App         AppConfig
	Solana      SolanaConfig
	Game        GameConfig
	Withdrawals WithdrawalConfig
	Redis       RedisConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
}

// ServerConfig holds server settings
type ServerConfig struct {
	Port string
}

// AppConfig holds application-specific settings
type AppConfig struct {
	JWTSecret string
}

// SolanaConfig holds chain settings for the custodial hot wallet
type SolanaConfig struct {
	Network             string
	RPCEndpoint         string // optional override of the public endpoint
	TokenMintAddress    string
	TokenDecimals       int
	HotWalletPrivateKey string
}

// GameConfig holds flip-game settings
type GameConfig struct {
	// RewardAmount is the fixed win payout in smallest token units.
	RewardAmount string
	// TierQuotas maps tier name -> max daily flips, e.g. "gold:10,silver:5".
	TierQuotas map[string]int
	// DefaultTier is assigned to players without a tier assignment.
	DefaultTier string
	// DefaultDailyFlips applies to tiers missing from TierQuotas.
	DefaultDailyFlips int
}

// WithdrawalConfig holds withdrawal-processor settings
type WithdrawalConfig struct {
	ProcessorSecret string
	BatchSize       int
	MaxRetries      int
	RetryDelay      time.Duration
	InterItemDelay  time.Duration
	ConfirmTimeout  time.Duration
	Interval        time.Duration
	// MinFeeLamports is the minimum custodial SOL balance required to
	// cover transaction fees before attempting a transfer.
	MinFeeLamports uint64
}

// RedisConfig holds settings for the distributed single-flight lease.
// Addr may be empty, in which case only the in-process guard applies.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	LockTTL  time.Duration
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Try to load .env file (ignore error if it doesn't exist)
	_ = godotenv.Load()

	config := &Config{
		Database: DatabaseConfig{
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", ""),
			DBName:   getEnv("DB_NAME", "daily_flip"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		App: AppConfig{
			JWTSecret: getEnv("JWT_SECRET", ""),
		},
		Solana: SolanaConfig{
			Network:             getEnv("SOLANA_NETWORK", "devnet"),
			RPCEndpoint:         getEnv("SOLANA_RPC_ENDPOINT", ""),
			TokenMintAddress:    getEnv("TOKEN_MINT_ADDRESS", ""),
			TokenDecimals:       getEnvInt("TOKEN_DECIMALS", 9),
			HotWalletPrivateKey: getEnv("HOT_WALLET_PRIVATE_KEY", ""),
		},
		Game: GameConfig{
			RewardAmount:      getEnv("FLIP_REWARD_AMOUNT", "1000000000"),
			TierQuotas:        parseTierQuotas(getEnv("TIER_QUOTAS", "based:10,member:5,holder:3")),
			DefaultTier:       getEnv("DEFAULT_TIER", "unranked"),
			DefaultDailyFlips: getEnvInt("DEFAULT_DAILY_FLIPS", 1),
		},
		Withdrawals: WithdrawalConfig{
			ProcessorSecret: getEnv("WITHDRAWAL_PROCESSOR_SECRET", ""),
			BatchSize:       getEnvInt("WITHDRAWAL_BATCH_SIZE", 10),
			MaxRetries:      getEnvInt("WITHDRAWAL_MAX_RETRIES", 3),
			RetryDelay:      getEnvDuration("WITHDRAWAL_RETRY_DELAY", 5*time.Second),
			InterItemDelay:  getEnvDuration("WITHDRAWAL_ITEM_DELAY", 2*time.Second),
			ConfirmTimeout:  getEnvDuration("WITHDRAWAL_CONFIRM_TIMEOUT", 60*time.Second),
			Interval:        getEnvDuration("WITHDRAWAL_INTERVAL", 5*time.Minute),
			MinFeeLamports:  uint64(getEnvInt("WITHDRAWAL_MIN_FEE_LAMPORTS", 10_000_000)),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", ""),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
			LockTTL:  getEnvDuration("REDIS_LOCK_TTL", 10*time.Minute),
		},
	}

	// Validate required fields
	if config.App.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	if config.Withdrawals.ProcessorSecret == "" {
		return nil, fmt.Errorf("WITHDRAWAL_PROCESSOR_SECRET is required")
	}

	return config, nil
}

// GetDSN returns the PostgreSQL connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=disable",
		c.Database.Host,
		c.Database.Port,
		c.Database.User,
		c.Database.Password,
		c.Database.DBName,
	)
}

// parseTierQuotas parses "tier:count,tier:count" pairs; malformed pairs
// are skipped.
func parseTierQuotas(raw string) map[string]int {
	quotas := make(map[string]int)
	for _, pair := range strings.Split(raw, ",") {
		parts := strings.SplitN(strings.TrimSpace(pair), ":", 2)
		if len(parts) != 2 {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSpace(parts[1]))
		if err != nil || n < 0 {
			continue
		}
		quotas[strings.ToLower(strings.TrimSpace(parts[0]))] = n
	}
	return quotas
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	return value
}

func getEnvInt(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}
