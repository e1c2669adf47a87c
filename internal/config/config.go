package config // package config loads application configuration from environment variables

import (
    "os"      // os provides access to environment variables
    "strconv" // strconv converts strings to other types

    "github.com/sirupsen/logrus"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable.
type Config struct {
    Env            string // application environment (e.g. "dev", "prod")
    Port           string // HTTP port to listen on
    DBUser         string // database username
    DBPass         string // database password (optional)
    DBHost         string // database host address
    DBPort         string // database port number
    DBName         string // database name
    DBMigrate      bool   // create missing tables on startup
    JWTSecret      string // secret used to sign JWTs
    AccessTTLMin   int    // access token time-to-live in minutes
    RefreshTTLDays int    // refresh token time-to-live in days
    BcryptCost     int    // bcrypt cost for password hashing
    AdminEmail     string // administrator account ensured at startup (optional)
    AdminPassword  string

    LogLevel  string // logrus level name
    LogFormat string // "json" or "text"

    RefPrefix       string // booking reference prefix, e.g. BOOK
    RefPadding      int    // zero padding of the reference counter
    SequenceBackend string // "mysql" or "redis"
    CompanyID       uint64 // company stamped on new items and bookings
    PageSizeDefault int
    PageSizeMax     int

    AMQPURL        string // RabbitMQ URL; empty disables booking events
    BookingLogPath string // file written by the booking event consumer
    MetricsEnabled bool
    OTLPEndpoint   string // OTLP/HTTP traces endpoint; empty disables tracing
}

// Load reads configuration values from environment variables and returns a
// Config.  Required variables are enforced by must() and missing values
// cause the program to exit with a fatal log message.
func Load() Config {
    amqpURL := os.Getenv("RABBITMQ_URL")
    if amqpURL == "" {
        amqpURL = os.Getenv("AMQP_URL")
    }
    return Config{
        Env:            must("APP_ENV"),
        Port:           must("APP_PORT"),
        DBUser:         must("DB_USER"),
        DBPass:         os.Getenv("DB_PASS"), // empty allowed
        DBHost:         must("DB_HOST"),
        DBPort:         must("DB_PORT"),
        DBName:         must("DB_NAME"),
        DBMigrate:      envBool("DB_MIGRATE", true),
        JWTSecret:      must("JWT_SECRET"),
        AccessTTLMin:   mustInt("ACCESS_TOKEN_TTL_MIN"),
        RefreshTTLDays: mustInt("REFRESH_TOKEN_TTL_DAYS"),
        BcryptCost:     mustInt("BCRYPT_COST"),
        AdminEmail:     os.Getenv("BOOTSTRAP_ADMIN_EMAIL"),
        AdminPassword:  os.Getenv("BOOTSTRAP_ADMIN_PASSWORD"),

        LogLevel:  envStr("LOG_LEVEL", "info"),
        LogFormat: envStr("LOG_FORMAT", "json"),

        RefPrefix:       envStr("BOOKING_REF_PREFIX", "BOOK"),
        RefPadding:      envInt("BOOKING_REF_PADDING", 4),
        SequenceBackend: envStr("SEQUENCE_BACKEND", "mysql"),
        CompanyID:       uint64(envInt("DEFAULT_COMPANY_ID", 1)),
        PageSizeDefault: envInt("PAGE_SIZE_DEFAULT", 20),
        PageSizeMax:     envInt("PAGE_SIZE_MAX", 100),

        AMQPURL:        amqpURL,
        BookingLogPath: envStr("BOOKING_LOG_PATH", "logs/bookings.log"),
        MetricsEnabled: envBool("METRICS_ENABLED", true),
        OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
    }
}

// must retrieves the value of a required environment variable.  If the
// variable is unset or empty, the application logs a fatal error and exits.
func must(key string) string {
    v, ok := os.LookupEnv(key)
    if !ok || v == "" {
        logrus.Fatalf("missing required env var: %s", key)
    }
    return v
}

// mustInt is like must() but converts the retrieved string into an integer.
func mustInt(key string) int {
    s := must(key)
    n, err := strconv.Atoi(s)
    if err != nil {
        logrus.Fatalf("invalid int for %s: %q", key, s)
    }
    return n
}
