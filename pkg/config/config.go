package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	NATS     NATSConfig
	SMS      SMSConfig
	Email    EmailConfig
	Maps     MapsConfig
	Booking  BookingConfig
}

type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type DatabaseConfig struct {
	URL         string
	MaxConns    int
	MinConns    int
	MaxLifetime time.Duration
}

type RedisConfig struct {
	URL      string
	Password string
	DB       int
}

type NATSConfig struct {
	URL string
}

type SMSConfig struct {
	TextbeltKey     string
	TextbeltURL     string
	BusinessPhone   string
	BusinessAddress string
}

type EmailConfig struct {
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPass      string
	SMTPFrom      string
	SMTPUseTLS    bool
	MailerSendKey string
	MaintainerTo  string
	DevMode       bool // print emails to logs instead of sending
}

type MapsConfig struct {
	APIKey string
	Origin string // business location used for distance checks
}

// BookingConfig carries the business constants of the booking flow. The
// slot sets and radius are operator-supplied, not baked into the core.
type BookingConfig struct {
	ServiceName      string
	RadiusMiles      float64
	SaturdaySlots    []string
	WeekdaySlots     []string
	CodeLength       int
	CodeTTL          time.Duration
	CodeLookback     time.Duration
	Retention        time.Duration
	StagingTTL       time.Duration
	MinAddressLength int
}

func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDuration("SERVER_READ_TIMEOUT", 5*time.Second),
			WriteTimeout: getDuration("SERVER_WRITE_TIMEOUT", 10*time.Second),
			IdleTimeout:  getDuration("SERVER_IDLE_TIMEOUT", 60*time.Second),
		},
		Database: DatabaseConfig{
			URL:         getEnv("DATABASE_URL", ""),
			MaxConns:    getInt("DB_MAX_CONNS", 10),
			MinConns:    getInt("DB_MIN_CONNS", 1),
			MaxLifetime: getDuration("DB_MAX_LIFETIME", time.Hour),
		},
		Redis: RedisConfig{
			URL:      getEnv("REDIS_URL", "redis://localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getInt("REDIS_DB", 0),
		},
		NATS: NATSConfig{
			URL: getEnv("NATS_URL", ""),
		},
		SMS: SMSConfig{
			TextbeltKey:     getEnv("TEXTBELT_KEY", ""),
			TextbeltURL:     getEnv("TEXTBELT_URL", "https://textbelt.com"),
			BusinessPhone:   getEnv("BUSINESS_PHONE", ""),
			BusinessAddress: getEnv("BUSINESS_ADDRESS", ""),
		},
		Email: EmailConfig{
			SMTPHost:      getEnv("SMTP_HOST", "localhost"),
			SMTPPort:      getInt("SMTP_PORT", 1025),
			SMTPUser:      getEnv("SMTP_USER", ""),
			SMTPPass:      getEnv("SMTP_PASS", ""),
			SMTPFrom:      getEnv("SMTP_FROM", "noreply@playdaycuts.local"),
			SMTPUseTLS:    getBool("SMTP_USE_TLS", false),
			MailerSendKey: getEnv("MAILERSEND_API_KEY", ""),
			MaintainerTo:  getEnv("MAINTAINER_EMAIL", ""),
			DevMode:       getBool("EMAIL_DEV_MODE", true),
		},
		Maps: MapsConfig{
			APIKey: getEnv("GOOGLE_MAPS_KEY", ""),
			Origin: getEnv("SERVICE_AREA", "Provo, UT"),
		},
		Booking: BookingConfig{
			ServiceName:      getEnv("SERVICE_NAME", "Volume 1 Cut"),
			RadiusMiles:      getFloat("SERVICE_RADIUS_MILES", 10),
			SaturdaySlots:    getList("SLOTS_SATURDAY", "12:00PM,2:00PM,4:00PM,6:00PM"),
			WeekdaySlots:     getList("SLOTS_WEEKDAY", "4:00PM,6:00PM"),
			CodeLength:       getInt("CONFIRM_CODE_LENGTH", 5),
			CodeTTL:          getDuration("CONFIRM_CODE_TTL", 5*time.Minute),
			CodeLookback:     getDuration("CONFIRM_CODE_LOOKBACK", 24*time.Hour),
			Retention:        getDuration("APPOINTMENT_RETENTION", 7*24*time.Hour),
			StagingTTL:       getDuration("STAGING_TTL", 7*24*time.Hour),
			MinAddressLength: getInt("MIN_ADDRESS_LENGTH", 5),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return fallback
}

func getBool(key string, fallback bool) bool {
	if value, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) time.Duration {
	if value, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}

func getList(key, fallback string) []string {
	raw := getEnv(key, fallback)
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
