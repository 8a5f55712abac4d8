package utils

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker"

	"github.com/VictorRop4/alx-travel-app-0x02/models"
)

// ChapaConfig carries the gateway settings read from the environment.
type ChapaConfig struct {
	BaseURL     string
	SecretKey   string
	CallbackURL string
	ReturnURL   string
	Timeout     time.Duration
}

// GetChapaConfig loads the Chapa configuration. CHAPA_SECRET_KEY is mandatory;
// everything else has a sane default.
func GetChapaConfig() (ChapaConfig, error) {
	cfg := ChapaConfig{
		BaseURL:     strings.TrimRight(getenvDefault("CHAPA_BASE_URL", "https://api.chapa.co/v1"), "/"),
		SecretKey:   os.Getenv("CHAPA_SECRET_KEY"),
		CallbackURL: os.Getenv("CHAPA_CALLBACK_URL"),
		ReturnURL:   os.Getenv("CHAPA_RETURN_URL"),
		Timeout:     30 * time.Second,
	}
	if s := os.Getenv("CHAPA_TIMEOUT_SEC"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			cfg.Timeout = time.Duration(v) * time.Second
		}
	}
	if cfg.SecretKey == "" {
		return ChapaConfig{}, errors.New("CHAPA_SECRET_KEY is not set")
	}
	return cfg, nil
}

// Outbound calls go through a circuit breaker. An open breaker surfaces to
// callers exactly like a transport failure; nothing here retries.
var chapaBreaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
	Name:    "chapa",
	Timeout: 60 * time.Second,
	ReadyToTrip: func(c gobreaker.Counts) bool {
		return c.ConsecutiveFailures >= 5
	},
})

// ChapaInitializeRequest is the payload for POST /transaction/initialize.
// Callback and return URLs come from config, not from the caller.
type ChapaInitializeRequest struct {
	Amount    float64
	Currency  string
	TxRef     string
	FirstName string
	LastName  string
	Email     string
}

// ChapaInitialize creates a transaction with the gateway and returns the raw
// decoded response body for auditing.
func ChapaInitialize(ctx context.Context, req ChapaInitializeRequest) (map[string]interface{}, error) {
	cfg, err := GetChapaConfig()
	if err != nil {
		return nil, err
	}
	body := map[string]interface{}{
		"amount":       fmt.Sprintf("%.2f", req.Amount),
		"currency":     req.Currency,
		"tx_ref":       req.TxRef,
		"first_name":   req.FirstName,
		"last_name":    req.LastName,
		"email":        req.Email,
		"callback_url": cfg.CallbackURL,
		"return_url":   cfg.ReturnURL,
	}
	return chapaCall(ctx, cfg, resty.MethodPost, "/transaction/initialize", body)
}

// ChapaVerify asks the gateway for the state of a transaction by tx_ref.
func ChapaVerify(ctx context.Context, txRef string) (map[string]interface{}, error) {
	cfg, err := GetChapaConfig()
	if err != nil {
		return nil, err
	}
	return chapaCall(ctx, cfg, resty.MethodGet, "/transaction/verify/"+txRef, nil)
}

func chapaCall(ctx context.Context, cfg ChapaConfig, method, path string, body interface{}) (map[string]interface{}, error) {
	res, err := chapaBreaker.Execute(func() (interface{}, error) {
		client := resty.New().SetBaseURL(cfg.BaseURL).SetTimeout(cfg.Timeout)
		req := client.R().
			SetContext(ctx).
			SetAuthToken(cfg.SecretKey).
			SetHeader("Content-Type", "application/json")
		if body != nil {
			req.SetBody(body)
		}

		var resp *resty.Response
		var err error
		if method == resty.MethodPost {
			resp, err = req.Post(path)
		} else {
			resp, err = req.Get(path)
		}
		if err != nil {
			return nil, fmt.Errorf("chapa request: %w", err)
		}

		decoded := map[string]interface{}{}
		if err := json.Unmarshal(resp.Body(), &decoded); err != nil {
			return nil, fmt.Errorf("chapa: decode response: %w", err)
		}
		if resp.IsError() {
			msg, _ := decoded["message"].(string)
			return nil, fmt.Errorf("chapa: http %d: %s", resp.StatusCode(), msg)
		}
		return decoded, nil
	})
	if err != nil {
		return nil, err
	}
	return res.(map[string]interface{}), nil
}

// ExtractCheckoutURL probes a successful initialize response for the hosted
// checkout redirect. The shape varies across gateway versions, so both the
// data sub-object and the top level are tried, checkout_url first.
func ExtractCheckoutURL(body map[string]interface{}) (string, bool) {
	keys := []string{"checkout_url", "authorization_url", "url"}
	if data, ok := body["data"].(map[string]interface{}); ok {
		for _, k := range keys {
			if s, ok := data[k].(string); ok && s != "" {
				return s, true
			}
		}
	}
	for _, k := range keys {
		if s, ok := body[k].(string); ok && s != "" {
			return s, true
		}
	}
	return "", false
}

// ChapaVerification is the tolerant-parse result of a verify response.
type ChapaVerification struct {
	Status        string
	TransactionID string
}

// ExtractVerification pulls the provider status string and transaction id,
// preferring the data sub-object over the flat shape.
func ExtractVerification(body map[string]interface{}) ChapaVerification {
	var v ChapaVerification
	probe := func(m map[string]interface{}) {
		if v.Status == "" {
			if s, ok := m["status"].(string); ok {
				v.Status = s
			}
		}
		if v.TransactionID == "" {
			for _, k := range []string{"id", "transaction_id", "reference"} {
				switch val := m[k].(type) {
				case string:
					if val != "" {
						v.TransactionID = val
					}
				case float64:
					v.TransactionID = strconv.FormatInt(int64(val), 10)
				}
				if v.TransactionID != "" {
					break
				}
			}
		}
	}
	if data, ok := body["data"].(map[string]interface{}); ok {
		probe(data)
	}
	probe(body)
	return v
}

// NormalizeStatus maps the provider vocabulary onto the Payment status enum.
// Unknown values leave the current status in place; an unset current status
// resolves to pending. Never returns a value outside the enum.
func NormalizeStatus(provider, current string) string {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case "success", "completed", "paid":
		return models.PaymentStatusCompleted
	case "failed", "declined":
		return models.PaymentStatusFailed
	}
	if current == "" {
		return models.PaymentStatusPending
	}
	return current
}

func getenvDefault(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
