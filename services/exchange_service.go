package services

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"

	"github.com/skyhook-logistics/portal/domain"
	flowerrors "github.com/skyhook-logistics/portal/errors"
)

// upstreamBodyLimit caps how much of a provider error body makes it into logs
// and error descriptions.
const upstreamBodyLimit = 512

// ExchangeService trades an authorization code plus PKCE verifier for tokens
// at the identity provider's token endpoint. Codes and verifiers are one-shot,
// so the service never retries internally: a transient failure fails the
// attempt and the whole login restarts from scratch.
type ExchangeService struct {
	registry        *domain.Registry
	endpoint        oauth2.Endpoint
	callbackBaseURL string
	httpClient      *http.Client
	timeout         time.Duration
}

// NewExchangeService creates the exchanger. callbackBaseURL is the externally
// visible origin the provider redirects back to, without a trailing slash.
func NewExchangeService(registry *domain.Registry, endpoint oauth2.Endpoint, callbackBaseURL string, timeout time.Duration) *ExchangeService {
	return &ExchangeService{
		registry:        registry,
		endpoint:        endpoint,
		callbackBaseURL: strings.TrimSuffix(callbackBaseURL, "/"),
		httpClient:      &http.Client{Timeout: timeout},
		timeout:         timeout,
	}
}

func (s *ExchangeService) redirectURL(id domain.AppID) string {
	return fmt.Sprintf("%s/auth/callback/%s", s.callbackBaseURL, id)
}

func (s *ExchangeService) oauthConfig(app *domain.AppConfig) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     app.ClientID,
		ClientSecret: app.ClientSecret,
		RedirectURL:  s.redirectURL(app.ID),
		Scopes:       app.Scopes,
		Endpoint:     s.endpoint,
	}
}

// AuthCodeURL builds the provider authorize URL for the app, binding the
// attempt's opaque state and the S256 PKCE challenge.
func (s *ExchangeService) AuthCodeURL(app *domain.AppConfig, state, challenge string) string {
	return s.oauthConfig(app).AuthCodeURL(state,
		oauth2.SetAuthURLParam("code_challenge", challenge),
		oauth2.SetAuthURLParam("code_challenge_method", "S256"),
	)
}

// Exchange performs the single authorization-code exchange for the app.
// Provider rejections (400/401) are terminal for the attempt; 5xx and
// transport failures are classified as network errors so the caller can offer
// a fresh attempt.
func (s *ExchangeService) Exchange(ctx context.Context, appID domain.AppID, code, verifier string) (*domain.TokenSet, error) {
	app, err := s.registry.App(appID)
	if err != nil {
		return nil, flowerrors.NewInvalidState(fmt.Sprintf("unknown application %q", appID))
	}

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	ctx = context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)

	token, err := s.oauthConfig(app).Exchange(ctx, code,
		oauth2.SetAuthURLParam("code_verifier", verifier),
	)
	if err != nil {
		return nil, classifyExchangeError(appID, err)
	}

	return &domain.TokenSet{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		TokenType:    token.TokenType,
		ExpiresAt:    token.Expiry,
	}, nil
}

func classifyExchangeError(appID domain.AppID, err error) error {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) {
		body := retrieveErr.Body
		if len(body) > upstreamBodyLimit {
			body = body[:upstreamBodyLimit]
		}
		status := 0
		if retrieveErr.Response != nil {
			status = retrieveErr.Response.StatusCode
		}
		switch status {
		case http.StatusBadRequest, http.StatusUnauthorized, http.StatusForbidden:
			log.Warn().
				Str("app", string(appID)).
				Int("status", status).
				Str("body", string(body)).
				Msg("identity provider rejected code exchange")
			return flowerrors.NewUpstreamAuth(status, "identity provider rejected the authorization code")
		default:
			return flowerrors.NewNetwork(fmt.Sprintf("token endpoint returned status %d", status), err)
		}
	}
	// Timeouts, connection resets, and anything else transport-shaped.
	return flowerrors.NewNetwork("token exchange failed", err)
}
