package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	firstNames = []string{
		"Juan", "Maria", "Carlos", "Ana", "Pedro", "Laura",
		"Diego", "Sofia", "Miguel", "Valentina", "Andres", "Camila",
		"Felipe", "Francisca", "Sebastian", "Catalina", "Matias", "Javiera",
	}
	lastNames = []string{
		"Garcia", "Rodriguez", "Martinez", "Lopez", "Gonzalez",
		"Hernandez", "Perez", "Sanchez", "Rojas", "Diaz", "Reyes", "Soto",
	}
	emailDomains = []string{"gmail.com", "hotmail.com", "yahoo.com", "outlook.com", "live.cl"}
	sources      = []string{
		"facebook_ads", "google_ads", "instagram", "linkedin",
		"referral_partner", "portal_inmobiliario", "newsletter",
	}
)

// Lead is the webhook body.
type Lead struct {
	Email        string `json:"email"`
	Name         string `json:"name"`
	Phone        string `json:"phone"`
	Source       string `json:"source"`
	SourceDetail string `json:"source_detail"`
	Notes        string `json:"notes"`
}

// Outcome of one delivery.
type Outcome string

const (
	OutcomeCreated  Outcome = "created"
	OutcomeExisting Outcome = "existing"
	OutcomeFailed   Outcome = "failed"
)

// Feed posts generated leads to the API webhook.
type Feed struct {
	URL    string
	APIKey string
	Client *http.Client
	Rand   *rand.Rand
	Now    func() time.Time
}

func (f *Feed) now() time.Time {
	if f.Now != nil {
		return f.Now()
	}
	return time.Now()
}

func (f *Feed) pick(list []string) string {
	return list[f.Rand.Intn(len(list))]
}

// Generate builds a random prospect. Emails carry a random suffix so most are new.
func (f *Feed) Generate() Lead {
	first, last := f.pick(firstNames), f.pick(lastNames)
	now := f.now()
	return Lead{
		Email:        fmt.Sprintf("%s.%s.%d@%s", strings.ToLower(first), strings.ToLower(last), 100+f.Rand.Intn(9900), f.pick(emailDomains)),
		Name:         first + " " + last,
		Phone:        fmt.Sprintf("+56 9 %d %d", 1000+f.Rand.Intn(9000), 1000+f.Rand.Intn(9000)),
		Source:       f.pick(sources),
		SourceDetail: "Campaña " + now.Format("200601"),
		Notes:        "Lead generado automaticamente - " + now.Format(time.RFC3339),
	}
}

// Send posts one lead and classifies the response.
func (f *Feed) Send(ctx context.Context, lead Lead) (Outcome, error) {
	body, err := json.Marshal(lead)
	if err != nil {
		return OutcomeFailed, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, f.URL, bytes.NewReader(body))
	if err != nil {
		return OutcomeFailed, err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-API-Key", f.APIKey)

	client := f.Client
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}
	resp, err := client.Do(req)
	if err != nil {
		return OutcomeFailed, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusCreated:
		return OutcomeCreated, nil
	case http.StatusConflict:
		return OutcomeExisting, nil
	default:
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return OutcomeFailed, fmt.Errorf("webhook returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}
}

// Tick sends a lead with the given probability and logs the result.
func (f *Feed) Tick(ctx context.Context, sendProbability float64) Outcome {
	if f.Rand.Float64() >= sendProbability {
		log.Info().Msg("leadfeed: skipping cycle")
		return ""
	}
	lead := f.Generate()
	out, err := f.Send(ctx, lead)
	switch out {
	case OutcomeCreated:
		log.Info().Str("email", lead.Email).Str("source", lead.Source).Msg("leadfeed: lead created")
	case OutcomeExisting:
		log.Warn().Str("email", lead.Email).Msg("leadfeed: lead already exists")
	default:
		log.Error().Err(err).Str("email", lead.Email).Msg("leadfeed: delivery failed")
	}
	return out
}
