// Command leadfeed simulates an external lead provider by posting random
// prospects to the API webhook.
package main

import (
	"context"
	"math/rand"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"somosrentable-backend/internal/infrastructure/logging"

	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

func main() {
	viper.AutomaticEnv()
	viper.SetDefault("API_URL", "http://localhost:8080/api/v1/leads/webhook")
	viper.SetDefault("API_KEY", "webhook-secret-key")
	viper.SetDefault("INTERVAL_SECONDS", 30)
	viper.SetDefault("SEND_PROBABILITY", 0.7)
	viper.SetDefault("STARTUP_DELAY", "15s")

	logging.Setup(viper.GetString("APP_ENV"), viper.GetString("LOG_LEVEL"))

	feed := &Feed{
		URL:    viper.GetString("API_URL"),
		APIKey: viper.GetString("API_KEY"),
		Client: &http.Client{Timeout: 10 * time.Second},
		Rand:   rand.New(rand.NewSource(time.Now().UnixNano())),
	}
	interval := viper.GetInt("INTERVAL_SECONDS")
	probability := viper.GetFloat64("SEND_PROBABILITY")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info().Str("url", feed.URL).Int("interval_s", interval).Msg("leadfeed started")
	if !sleep(ctx, viper.GetDuration("STARTUP_DELAY")) {
		return
	}
	for {
		feed.Tick(ctx, probability)
		wait := time.Duration(interval+feed.Rand.Intn(16)-5) * time.Second
		if !sleep(ctx, wait) {
			log.Info().Msg("leadfeed stopped")
			return
		}
	}
}

func sleep(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		d = time.Second
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
