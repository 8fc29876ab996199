package config

import (
	"os"
	"strings"
	"time"
	_ "time/tzdata"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	SessionSecret       string
	DatabaseURL         string
	RedisURL            string
	FrontendURLEndsWith string
	DevPassword         string
	HealthAdminKey      string
	Location            *time.Location
	Loans               LoanPolicy
	SignalStream        string
	// SignalFlushInterval is how often pending resource signals are re-sent.
	SignalFlushInterval time.Duration
}

// LoanPolicy is the tunable part of the loan rules.
type LoanPolicy struct {
	PeriodDays            int
	MaxQuantity           int
	MaxActiveLoans        int
	MaxActiveLoansStudent int // 0 means MaxActiveLoans
	MaxActiveLoansTeacher int // 0 means MaxActiveLoans
	ReturnMaxAttempts     int
	ReturnRetryBaseDelay  time.Duration
}

const (
	defaultPort              = "8080"
	defaultLoanPeriodDays    = 15
	defaultMaxLoanQuantity   = 5
	defaultMaxActiveLoans    = 3
	defaultReturnMaxAttempts = 4
	defaultReturnRetryMs     = 20
	defaultSignalStream      = "library:resource-signals"
	defaultSignalFlushSecs   = 30
)

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	port := viper.GetString("PORT")
	if port == "" {
		port = defaultPort
	}
	env := viper.GetString("APP_ENV")
	if env == "" {
		env = "development"
	}

	dbURL := viper.GetString("DATABASE_URL_DEV")
	if env == "production" {
		dbURL = viper.GetString("DATABASE_URL_PROD")
	} else if env == "test" {
		dbURL = viper.GetString("DATABASE_URL_TEST")
	}
	if dbURL == "" {
		dbURL = os.Getenv("DATABASE_URL_DEV")
	}

	loc := time.UTC
	if tz := strings.TrimSpace(viper.GetString("TIMEZONE")); tz != "" {
		l, err := time.LoadLocation(tz)
		if err != nil {
			return nil, err
		}
		loc = l
	}

	stream := viper.GetString("SIGNAL_STREAM")
	if stream == "" {
		stream = defaultSignalStream
	}

	return &Config{
		Env:                 env,
		Port:                port,
		SessionSecret:       viper.GetString("SESSION_SECRET"),
		DatabaseURL:         dbURL,
		RedisURL:            viper.GetString("REDIS_URL"),
		FrontendURLEndsWith: viper.GetString("FRONTEND_URL_ENDS_WITH"),
		DevPassword:         viper.GetString("DEV_PASSWORD"),
		HealthAdminKey:      viper.GetString("HEALTH_ADMIN_KEY"),
		Location:            loc,
		SignalStream:        stream,
		SignalFlushInterval: time.Duration(positive("SIGNAL_FLUSH_INTERVAL_SECONDS", defaultSignalFlushSecs)) * time.Second,
		Loans: LoanPolicy{
			PeriodDays:            positive("LOAN_PERIOD_DAYS", defaultLoanPeriodDays),
			MaxQuantity:           positive("MAX_LOAN_QUANTITY", defaultMaxLoanQuantity),
			MaxActiveLoans:        positive("MAX_ACTIVE_LOANS", defaultMaxActiveLoans),
			MaxActiveLoansStudent: positive("MAX_ACTIVE_LOANS_STUDENT", 0),
			MaxActiveLoansTeacher: positive("MAX_ACTIVE_LOANS_TEACHER", 0),
			ReturnMaxAttempts:     positive("RETURN_MAX_ATTEMPTS", defaultReturnMaxAttempts),
			ReturnRetryBaseDelay:  time.Duration(positive("RETURN_RETRY_BASE_DELAY_MS", defaultReturnRetryMs)) * time.Millisecond,
		},
	}, nil
}

// positive reads an int key, falling back to def when unset or not > 0.
func positive(key string, def int) int {
	if v := viper.GetInt(key); v > 0 {
		return v
	}
	return def
}
