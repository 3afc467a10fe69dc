package domain

import (
	"errors"
	"fmt"
)

// AppID identifies one OAuth2 application registered at the identity provider.
// Each application carries its own client credentials and scope set.
type AppID string

// The portal's registered applications.
const (
	AppLogin     AppID = "login"     // general portal login
	AppCorp      AppID = "corp"      // corporation management
	AppMarket    AppID = "market"    // market data
	AppStructure AppID = "structure" // structure info
)

// LoginDomain separates the user-facing and the admin-facing login surfaces.
type LoginDomain string

const (
	DomainUser  LoginDomain = "user"
	DomainAdmin LoginDomain = "admin"
)

// BasePath returns the landing path used when no return path was recorded
// for a login attempt.
func (d LoginDomain) BasePath() string {
	if d == DomainAdmin {
		return "/admin"
	}
	return "/"
}

// LoginPath returns the login entry point for the domain. Failed attempts are
// routed back here.
func (d LoginDomain) LoginPath() string {
	if d == DomainAdmin {
		return "/admin/login"
	}
	return "/login"
}

// AppConfig holds the immutable configuration of one OAuth2 application.
type AppConfig struct {
	ID               AppID
	ClientID         string
	ClientSecret     string
	Scopes           []string
	SessionNamespace string
	CanGrantAdmin    bool
}

var ErrAppNotFound = errors.New("oauth application not found")

// Registry is the process-wide, read-only lookup of OAuth application
// configurations. It is built once at startup and never mutated, so it is
// safe for concurrent use without locking.
type Registry struct {
	byID        map[AppID]*AppConfig
	byNamespace map[string]*AppConfig
}

// NewRegistry validates and indexes the given application configurations.
func NewRegistry(apps ...AppConfig) (*Registry, error) {
	r := &Registry{
		byID:        make(map[AppID]*AppConfig, len(apps)),
		byNamespace: make(map[string]*AppConfig, len(apps)),
	}
	for i := range apps {
		app := apps[i]
		if app.ID == "" {
			return nil, errors.New("app config with empty id")
		}
		if app.ClientID == "" {
			return nil, fmt.Errorf("app %q: missing client id", app.ID)
		}
		if app.SessionNamespace == "" {
			return nil, fmt.Errorf("app %q: missing session namespace", app.ID)
		}
		if _, dup := r.byID[app.ID]; dup {
			return nil, fmt.Errorf("duplicate app id %q", app.ID)
		}
		if _, dup := r.byNamespace[app.SessionNamespace]; dup {
			return nil, fmt.Errorf("duplicate session namespace %q", app.SessionNamespace)
		}
		r.byID[app.ID] = &app
		r.byNamespace[app.SessionNamespace] = &app
	}
	return r, nil
}

// App returns the configuration for the given application id.
func (r *Registry) App(id AppID) (*AppConfig, error) {
	app, ok := r.byID[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrAppNotFound, id)
	}
	return app, nil
}

// AppForNamespace returns the application owning the given session namespace.
func (r *Registry) AppForNamespace(namespace string) (*AppConfig, error) {
	app, ok := r.byNamespace[namespace]
	if !ok {
		return nil, fmt.Errorf("%w: namespace %s", ErrAppNotFound, namespace)
	}
	return app, nil
}

// AdminNamespaces lists the session namespaces whose applications may confer
// admin privilege.
func (r *Registry) AdminNamespaces() []string {
	var out []string
	for ns, app := range r.byNamespace {
		if app.CanGrantAdmin {
			out = append(out, ns)
		}
	}
	return out
}
