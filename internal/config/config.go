package config // package config loads application configuration from environment variables

import (
	"log"      // log is used to report configuration errors and halt execution
	"os"       // os provides access to environment variables
	"strconv"  // strconv converts strings to other types
	"time"     // time parses the sweep interval and retention durations
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.  The types reflect how the values are used in
// the application: strings for identifiers and secrets, ints for durations
// and costs, time.Duration for the background sweep settings.
type Config struct {
	Env            string // application environment (e.g. "dev", "prod")
	Port           string // HTTP port to listen on
	DBUser         string // database username
	DBPass         string // database password (optional)
	DBHost         string // database host address
	DBPort         string // database port number
	DBName         string // database name
	JWTSecret      string // secret used to sign JWTs
	JWTIssuer      string // issuer (iss) claim bound into every access token
	JWTAudience    string // audience (aud) claim bound into every access token
	AccessTTLMin   int    // access token time‑to‑live in minutes
	RefreshTTLDays int    // refresh token time‑to‑live in days
	BcryptCost     int    // bcrypt cost for password hashing

	MaxLoginFailures int           // failed logins before an account is locked
	LockoutDuration  time.Duration // how long a locked account stays locked
	DefaultRole      string        // role assigned to self-registered accounts

	// Background retention sweeps.  Expired token and session rows are kept
	// for a retention window past their expiry before being purged.
	TokenSweepInterval   time.Duration // how often the token sweep runs
	TokenRetention       time.Duration // age past expiry before token rows are purged
	SessionSweepInterval time.Duration // how often the session sweep runs
	SessionRetention     time.Duration // age past expiry before session rows are purged
	SweepRetryInterval   time.Duration // retry delay after a failed sweep pass
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.  The lockout and
// sweep settings have defaults and only need to be set to deviate from them.
func Load() Config {
	return Config{
		Env:            must("APP_ENV"),      // environment (dev/test/prod)
		Port:           must("APP_PORT"),     // port to bind the HTTP server
		DBUser:         must("DB_USER"),      // database user
		DBPass:         os.Getenv("DB_PASS"), // database password (empty allowed)
		DBHost:         must("DB_HOST"),      // database host
		DBPort:         must("DB_PORT"),      // database port
		DBName:         must("DB_NAME"),      // database name
		JWTSecret:      must("JWT_SECRET"),   // secret used for signing JWTs
		JWTIssuer:      must("JWT_ISSUER"),   // iss claim value
		JWTAudience:    must("JWT_AUDIENCE"), // aud claim value
		AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),   // TTL for access tokens in minutes
		RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"), // TTL for refresh tokens in days
		BcryptCost:     mustInt("BCRYPT_COST"),            // bcrypt cost factor

		MaxLoginFailures: envInt("MAX_LOGIN_FAILURES", 5),
		LockoutDuration:  envDur("LOCKOUT_DURATION", 15*time.Minute),
		DefaultRole:      envStr("DEFAULT_ROLE", "EMPLOYEE"),

		TokenSweepInterval:   envDur("TOKEN_SWEEP_INTERVAL", 24*time.Hour),
		TokenRetention:       envDur("TOKEN_RETENTION", 30*24*time.Hour),
		SessionSweepInterval: envDur("SESSION_SWEEP_INTERVAL", 6*time.Hour),
		SessionRetention:     envDur("SESSION_RETENTION", 7*24*time.Hour),
		SweepRetryInterval:   envDur("SWEEP_RETRY_INTERVAL", 5*time.Minute),
	}
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
	v, ok := os.LookupEnv(key)
	if !ok || v == "" {
		log.Fatalf("missing required env var: %s", key)
	}
	return v
}

// mustInt is like must() but converts the retrieved string into an integer.
// If conversion fails, the application logs a fatal error and exits.
func mustInt(key string) int {
	s := must(key)
	n, err := strconv.Atoi(s)
	if err != nil {
		log.Fatalf("invalid int for %s: %q", key, s)
	}
	return n
}
