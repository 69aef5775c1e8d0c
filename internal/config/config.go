package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

const defaultConnectionString = "Host=localhost;Port=5432;Database=djonanko_payin_db;Username=postgres;Password=postgres;Timeout=30;CommandTimeout=30"
const defaultHTTPPort = "3000"
const defaultLedgerBaseURL = "http://localhost:4000"
const defaultReservationAccountNumber = "0700000001"
const defaultCollectionAccountNumber = "0700000002"
const defaultSubscriptionPrice = "2000"
const defaultJWTSecret = "secret"

type Config struct {
	HTTPPort                 string
	DatabaseDSN              string
	LedgerBaseURL            string
	LedgerAPIKey             string
	ReservationAccountNumber string
	CollectionAccountNumber  string
	JWTSecret                string
	SubscriptionPrice        string
	BillingDebitDay          int
	BillingResetDay          int
	QueueWorkers             int
	QueueMaxAttempts         int
	QueueBackoff             time.Duration
}

func Load() (Config, error) {
	conn := strings.TrimSpace(os.Getenv("DATABASE_DSN"))
	if conn == "" {
		conn = defaultConnectionString
	}

	port := strings.TrimSpace(os.Getenv("HTTP_PORT"))
	if port == "" {
		port = defaultHTTPPort
	}

	ledgerBaseURL := strings.TrimSpace(os.Getenv("ADMINISTRATION_BASE_URL"))
	if ledgerBaseURL == "" {
		ledgerBaseURL = defaultLedgerBaseURL
	}

	reservationAccount := strings.TrimSpace(os.Getenv("COMPTE_RESERVATION"))
	if reservationAccount == "" {
		reservationAccount = defaultReservationAccountNumber
	}

	collectionAccount := strings.TrimSpace(os.Getenv("COMPTE_COLLECTE"))
	if collectionAccount == "" {
		collectionAccount = defaultCollectionAccountNumber
	}

	jwtSecret := strings.TrimSpace(os.Getenv("JWT_SECRET"))
	if jwtSecret == "" {
		jwtSecret = defaultJWTSecret
	}

	subscriptionPrice := strings.TrimSpace(os.Getenv("SUBSCRIPTION_PRICE"))
	if subscriptionPrice == "" {
		subscriptionPrice = defaultSubscriptionPrice
	}

	return Config{
		HTTPPort:                 port,
		DatabaseDSN:              normalizeConnectionString(conn),
		LedgerBaseURL:            ledgerBaseURL,
		LedgerAPIKey:             strings.TrimSpace(os.Getenv("API_KEY_PAYIN")),
		ReservationAccountNumber: reservationAccount,
		CollectionAccountNumber:  collectionAccount,
		JWTSecret:                jwtSecret,
		SubscriptionPrice:        subscriptionPrice,
		BillingDebitDay:          dayFromEnv("BILLING_DEBIT_DAY", 28),
		BillingResetDay:          dayFromEnv("BILLING_RESET_DAY", 27),
		QueueWorkers:             intFromEnv("QUEUE_WORKERS", 4),
		QueueMaxAttempts:         intFromEnv("QUEUE_MAX_ATTEMPTS", 2),
		QueueBackoff:             time.Duration(intFromEnv("QUEUE_BACKOFF_MS", 5000)) * time.Millisecond,
	}, nil
}

func intFromEnv(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}

	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

// dayFromEnv reads a day-of-month value. Anything outside 1-31 would never
// match a calendar day, so it falls back to the default.
func dayFromEnv(name string, fallback int) int {
	value := intFromEnv(name, fallback)
	if value > 31 {
		return fallback
	}
	return value
}

func normalizeConnectionString(raw string) string {
	parts := strings.Split(raw, ";")
	out := make([]string, 0, len(parts))
	hasSSLMode := false

	for _, part := range parts {
		p := strings.TrimSpace(part)
		if p == "" {
			continue
		}

		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}

		key := strings.ToLower(strings.TrimSpace(kv[0]))
		val := strings.TrimSpace(kv[1])

		switch key {
		case "host":
			out = append(out, "host="+val)
		case "port":
			out = append(out, "port="+val)
		case "database":
			out = append(out, "dbname="+val)
		case "username":
			out = append(out, "user="+val)
		case "password":
			out = append(out, "password="+val)
		case "timeout", "connect timeout":
			out = append(out, "connect_timeout="+val)
		case "commandtimeout", "command timeout":
			out = append(out, "statement_timeout="+val+"s")
		case "sslmode":
			hasSSLMode = true
			out = append(out, "sslmode="+val)
		default:
			out = append(out, key+"="+val)
		}
	}

	if len(out) == 0 {
		return raw
	}

	if !hasSSLMode {
		out = append(out, "sslmode=disable")
	}

	return strings.Join(out, " ")
}
