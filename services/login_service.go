package services

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/skyhook-logistics/portal/domain"
	flowerrors "github.com/skyhook-logistics/portal/errors"
	"github.com/skyhook-logistics/portal/internal/audit"
	"github.com/skyhook-logistics/portal/internal/obfuscate"
)

// LoginService orchestrates one login attempt end to end:
//
//	Idle -> AwaitingProviderRedirect -> CallbackReceived -> Exchanging ->
//	IdentityResolving -> SessionUpdated -> (AdminValidating) -> Complete
//
// with Failed(reason) terminal from any state. The attempt is keyed by the
// opaque state parameter; all attempt-local material (PKCE verifier, redirect
// state) is single-use, so a failed attempt can only be restarted from Idle.
type LoginService struct {
	registry   *domain.Registry
	challenges *ChallengeService
	redirects  *RedirectStateService
	exchanger  *ExchangeService
	identities *IdentityService
	sessions   *SessionService
	adminGate  *AdminGateService
	recorder   audit.Recorder
}

// NewLoginService wires the orchestration layer.
func NewLoginService(
	registry *domain.Registry,
	challenges *ChallengeService,
	redirects *RedirectStateService,
	exchanger *ExchangeService,
	identities *IdentityService,
	sessions *SessionService,
	adminGate *AdminGateService,
	recorder audit.Recorder,
) *LoginService {
	if recorder == nil {
		recorder = audit.LogRecorder{}
	}
	return &LoginService{
		registry:   registry,
		challenges: challenges,
		redirects:  redirects,
		exchanger:  exchanger,
		identities: identities,
		sessions:   sessions,
		adminGate:  adminGate,
		recorder:   recorder,
	}
}

// BeginInput describes a login start request.
type BeginInput struct {
	AppID       domain.AppID
	ReturnPath  string
	Domain      domain.LoginDomain
	AdminIntent bool
}

// BeginResult carries the provider redirect for a started attempt.
type BeginResult struct {
	AuthorizeURL string
	State        string
}

// Begin records the attempt's intent, issues PKCE material, and returns the
// provider authorize URL the browser must be redirected to.
func (s *LoginService) Begin(ctx context.Context, in BeginInput) (*BeginResult, error) {
	app, err := s.registry.App(in.AppID)
	if err != nil {
		return nil, err
	}
	if in.Domain == "" {
		in.Domain = domain.DomainUser
	}

	state := uuid.NewString()

	if err := s.redirects.Save(ctx, state, domain.RedirectState{
		ReturnPath:  in.ReturnPath,
		Domain:      in.Domain,
		AdminIntent: in.AdminIntent,
		AppID:       in.AppID,
	}); err != nil {
		return nil, err
	}

	_, challenge, err := s.challenges.Begin(ctx, state)
	if err != nil {
		return nil, err
	}

	s.recorder.Record(ctx, audit.Event{
		App:     string(in.AppID),
		Action:  audit.ActionLoginStart,
		Domain:  string(in.Domain),
		Success: true,
	})

	return &BeginResult{
		AuthorizeURL: s.exchanger.AuthCodeURL(app, state, challenge),
		State:        state,
	}, nil
}

// CallbackInput describes a provider callback.
type CallbackInput struct {
	AppID        domain.AppID
	Code         string
	State        string
	SessionToken string // the caller's current session cookie value, possibly empty
}

// CallbackResult is the outcome of an attempt's callback leg. SessionToken is
// the value to write back; on failure it is the caller's unchanged input so
// no partial session ever reaches the browser.
type CallbackResult struct {
	FlowState    domain.FlowState
	Failure      flowerrors.Kind // set when FlowState is Failed
	SessionToken string
	AdminToken   string // set only when the gate granted
	AdminGrant   GrantState
	Character    *domain.Character
	RedirectTo   string
}

// Complete runs the callback half of the state machine. The returned error is
// non-nil exactly when the result's FlowState is Failed; the result is always
// usable for redirecting the browser.
func (s *LoginService) Complete(ctx context.Context, in CallbackInput) (*CallbackResult, error) {
	res := &CallbackResult{
		FlowState:    domain.FlowCallbackReceived,
		SessionToken: in.SessionToken,
		AdminGrant:   GrantUnset,
		RedirectTo:   domain.DomainUser.LoginPath(),
	}

	if in.State == "" {
		return s.fail(ctx, res, in, flowerrors.NewInvalidState("callback missing state"))
	}

	// Redirect state is read exactly once, regardless of what happens later.
	redirect, err := s.redirects.Consume(ctx, in.State)
	if err != nil {
		if errors.Is(err, ErrRedirectStateMissing) || errors.Is(err, ErrRedirectStateExpired) {
			return s.fail(ctx, res, in, flowerrors.NewInvalidState("redirect state missing or expired"))
		}
		return s.fail(ctx, res, in, flowerrors.NewNetwork("redirect state load failed", err))
	}
	res.RedirectTo = redirect.Domain.LoginPath()

	if redirect.AppID != in.AppID {
		return s.fail(ctx, res, in, flowerrors.NewInvalidState("callback application does not match attempt"))
	}

	// The verifier is consumed even if the exchange below never happens;
	// attempt material is one-shot.
	verifier, err := s.challenges.Consume(ctx, in.State)
	if err != nil {
		if errors.Is(err, ErrChallengeNotFound) || errors.Is(err, ErrChallengeExpired) || errors.Is(err, ErrVerifierMismatch) {
			return s.fail(ctx, res, in, flowerrors.NewInvalidState("pkce verifier missing, expired, or mismatched"))
		}
		return s.fail(ctx, res, in, flowerrors.NewNetwork("pkce verifier load failed", err))
	}

	// Checked only after the redirect state and verifier are gone: a callback
	// without a code still burns the attempt, so a later replay of the same
	// state cannot complete it.
	if in.Code == "" {
		return s.fail(ctx, res, in, flowerrors.NewInvalidState("callback missing authorization code"))
	}

	res.FlowState = domain.FlowExchanging
	tokens, err := s.exchanger.Exchange(ctx, in.AppID, in.Code, verifier)
	if err != nil {
		return s.fail(ctx, res, in, err)
	}

	res.FlowState = domain.FlowIdentityResolving
	character, err := s.identities.Resolve(ctx, tokens)
	if err != nil {
		return s.fail(ctx, res, in, err)
	}

	app, err := s.registry.App(in.AppID)
	if err != nil {
		return s.fail(ctx, res, in, flowerrors.NewInvalidState("application vanished mid-attempt"))
	}

	res.FlowState = domain.FlowSessionUpdated
	sessionToken, err := s.sessions.Upsert(in.SessionToken, app.SessionNamespace, *character)
	if err != nil {
		return s.fail(ctx, res, in, flowerrors.NewNetwork("session encode failed", err))
	}
	res.SessionToken = sessionToken
	res.Character = character
	res.RedirectTo = redirect.ReturnPath

	if redirect.Domain == domain.DomainAdmin || redirect.AdminIntent {
		res.FlowState = domain.FlowAdminValidating
		res.AdminGrant = GrantPending

		adminToken, grant, gateErr := s.adminGate.RequestGrant(ctx, app.SessionNamespace, character.CharacterID)
		res.AdminGrant = grant
		switch grant {
		case GrantGranted:
			res.AdminToken = adminToken
			s.recorder.Record(ctx, audit.Event{
				App:       string(in.AppID),
				Action:    audit.ActionAdminGranted,
				Character: obfuscate.CharacterHash(character.CharacterID),
				Domain:    string(redirect.Domain),
				Success:   true,
			})
		default:
			// The character stays authenticated; only the admin surface is
			// withheld. Route to the admin login surface, not the target page.
			res.RedirectTo = domain.DomainAdmin.LoginPath()
			s.recorder.Record(ctx, audit.Event{
				App:       string(in.AppID),
				Action:    audit.ActionAdminDenied,
				Character: obfuscate.CharacterHash(character.CharacterID),
				Domain:    string(redirect.Domain),
				Detail:    string(flowerrors.KindOf(gateErr)),
				Success:   false,
			})
		}
	}

	res.FlowState = domain.FlowComplete
	s.recorder.Record(ctx, audit.Event{
		App:       string(in.AppID),
		Action:    audit.ActionLoginDone,
		Character: obfuscate.CharacterHash(character.CharacterID),
		Domain:    string(redirect.Domain),
		Success:   true,
	})
	return res, nil
}

// fail finalizes the attempt in the Failed state. The session token is left
// exactly as the caller supplied it.
func (s *LoginService) fail(ctx context.Context, res *CallbackResult, in CallbackInput, err error) (*CallbackResult, error) {
	res.FlowState = domain.FlowFailed
	res.Failure = flowerrors.KindOf(err)
	res.SessionToken = in.SessionToken

	log.Warn().
		Err(err).
		Str("app", string(in.AppID)).
		Str("kind", string(res.Failure)).
		Msg("login attempt failed")

	s.recorder.Record(ctx, audit.Event{
		App:     string(in.AppID),
		Action:  audit.ActionLoginFailed,
		Detail:  string(res.Failure),
		Success: false,
	})
	return res, err
}
