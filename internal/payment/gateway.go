package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// Intent is the gateway-side record of an authorized pending charge. The
// client secret goes back to the storefront so the browser can confirm the
// payment directly with the provider.
type Intent struct {
	ID           string `json:"id"`
	ClientSecret string `json:"client_secret"`
}

type Gateway interface {
	CreatePaymentIntent(ctx context.Context, amountMinorUnits int64, currency string, metadata map[string]string) (*Intent, error)
}

type StripeGateway struct {
	baseURL    string
	apiKey     string
	httpClient *http.Client
}

const stripeAPIBaseURL = "https://api.stripe.com"

func NewStripeGateway(apiKey string) *StripeGateway {
	return &StripeGateway{
		baseURL: stripeAPIBaseURL,
		apiKey:  apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// NewStripeGatewayWithBaseURL points the client at a non-default endpoint,
// e.g. a stripe-mock instance in tests.
func NewStripeGatewayWithBaseURL(apiKey, baseURL string) *StripeGateway {
	g := NewStripeGateway(apiKey)
	g.baseURL = baseURL
	return g
}

func (g *StripeGateway) CreatePaymentIntent(ctx context.Context, amountMinorUnits int64, currency string, metadata map[string]string) (*Intent, error) {
	form := url.Values{}
	form.Set("amount", strconv.FormatInt(amountMinorUnits, 10))
	form.Set("currency", currency)
	for k, v := range metadata {
		form.Set(fmt.Sprintf("metadata[%s]", k), v)
	}

	endpoint := g.baseURL + "/v1/payment_intents"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to build payment intent request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+g.apiKey)
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to call payment provider: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("gateway: failed to read payment provider response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("gateway: payment provider returned status %d: %s", resp.StatusCode, string(body))
	}

	var intent Intent
	if err := json.Unmarshal(body, &intent); err != nil {
		return nil, fmt.Errorf("gateway: failed to unmarshal payment intent: %w", err)
	}
	if intent.ID == "" || intent.ClientSecret == "" {
		return nil, fmt.Errorf("gateway: payment provider returned incomplete intent")
	}

	return &intent, nil
}
