package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration (env + Viper).
type Config struct {
	Env                 string
	Port                string
	LogLevel            string
	DatabaseURL         string
	AutoMigrate         bool
	RedisURL            string
	SupabaseURL         string // storage sign URLs and public URLs
	SupabaseSecretKey   string // must be the service_role key, not anon
	CORSAllowedOrigins  []string
	CORSPreviewSuffix   string // origins ending here are allowed too
	AllowCrossSiteDev   bool
	HealthAdminKey      string
	WebhookAPIKey       string // X-API-Key expected from the external lead feed
	SendinblueAPIKey    string // Brevo transactional emails
	MailFrom            string
	SMTPHost            string // used when no Brevo key is set
	SMTPPort            int
	SMTPUser            string
	SMTPPassword        string
	PublicBaseURL       string // base for reservation links sent by email

	ReservationValidity    time.Duration
	KYCApprovalProbability float64
	ExpirySweepInterval    time.Duration // 0 disables the background sweep
}

// Load loads config from env and optional .env file.
func Load() (*Config, error) {
	viper.SetConfigFile(".env")
	_ = viper.ReadInConfig()

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	viper.SetDefault("PORT", "8080")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("WEBHOOK_API_KEY", "webhook-secret-key")
	viper.SetDefault("RESERVATION_VALIDITY_DAYS", 7)
	viper.SetDefault("KYC_APPROVAL_PROBABILITY", 0.8)
	viper.SetDefault("EXPIRY_SWEEP_INTERVAL", "1h")
	viper.SetDefault("AUTO_MIGRATE", true)
	viper.SetDefault("EMAIL_PORT", 1025)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")

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
		dbURL = os.Getenv("DATABASE_URL")
	}

	raw := viper.GetString("KYC_APPROVAL_PROBABILITY")
	kycProbability, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || kycProbability < 0 || kycProbability > 1 {
		return nil, fmt.Errorf("KYC_APPROVAL_PROBABILITY must be a number between 0 and 1, got %q", raw)
	}

	return &Config{
		Env:                    env,
		Port:                   viper.GetString("PORT"),
		LogLevel:               viper.GetString("LOG_LEVEL"),
		DatabaseURL:            dbURL,
		AutoMigrate:            viper.GetBool("AUTO_MIGRATE"),
		RedisURL:               viper.GetString("REDIS_URL"),
		SupabaseURL:            viper.GetString("SUPABASE_URL"),
		SupabaseSecretKey:      viper.GetString("SUPABASE_SECRET_KEY"),
		CORSAllowedOrigins:     splitList(viper.GetString("CORS_ALLOWED_ORIGINS")),
		CORSPreviewSuffix:      viper.GetString("CORS_PREVIEW_SUFFIX"),
		AllowCrossSiteDev:      strings.EqualFold(viper.GetString("ALLOW_CROSS_SITE_DEV"), "true"),
		HealthAdminKey:         viper.GetString("HEALTH_ADMIN_KEY"),
		WebhookAPIKey:          viper.GetString("WEBHOOK_API_KEY"),
		SendinblueAPIKey:       viper.GetString("SENDINBLUE_API_KEY"),
		MailFrom:               viper.GetString("MAIL_FROM"),
		SMTPHost:               viper.GetString("EMAIL_HOST"),
		SMTPPort:               viper.GetInt("EMAIL_PORT"),
		SMTPUser:               viper.GetString("EMAIL_HOST_USER"),
		SMTPPassword:           viper.GetString("EMAIL_HOST_PASSWORD"),
		PublicBaseURL:          publicBaseURL(viper.GetString("PUBLIC_BASE_URL")),
		ReservationValidity:    time.Duration(viper.GetInt("RESERVATION_VALIDITY_DAYS")) * 24 * time.Hour,
		KYCApprovalProbability: kycProbability,
		ExpirySweepInterval:    viper.GetDuration("EXPIRY_SWEEP_INTERVAL"),
	}, nil
}

func publicBaseURL(s string) string {
	s = strings.TrimRight(strings.TrimSpace(s), "/")
	if s == "" {
		return "http://localhost:3000"
	}
	return s
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
