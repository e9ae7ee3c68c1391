package cookie

import (
	"fmt"
	"net/http"
	"strings"
)

// Level is a named attribute bundle.
type Level int

const (
	LevelBasic Level = iota
	LevelMedium
	LevelHigh
	LevelHighest
)

func (l Level) String() string {
	switch l {
	case LevelBasic:
		return "basic"
	case LevelMedium:
		return "medium"
	case LevelHigh:
		return "high"
	case LevelHighest:
		return "highest"
	default:
		return fmt.Sprintf("level(%d)", int(l))
	}
}

const (
	HostPrefix   = "__Host-"
	SecurePrefix = "__Secure-"
)

// Environment describes the deployment the policy runs in.
type Environment struct {
	Production  bool
	ForceSecure bool
}

func (e Environment) secure() bool {
	return e.Production || e.ForceSecure
}

// Overrides adjusts the attribute bundle of a level. Zero values keep defaults.
type Overrides struct {
	Domain string
	Path   string
	// MaxAge in seconds. Zero emits a session cookie; negative deletes.
	MaxAge int
}

// Attributes is the resolved attribute set of a cookie.
type Attributes struct {
	HTTPOnly bool
	Secure   bool
	SameSite http.SameSite
	Path     string
	Domain   string
	MaxAge   int
}

// Policy resolves names and attributes for one environment. The zero value is a
// development policy.
type Policy struct {
	env Environment
}

// NewPolicy returns a [Policy] for env.
func NewPolicy(env Environment) *Policy {
	return &Policy{env: env}
}

// Environment returns the environment the policy was built for.
func (p *Policy) Environment() Environment {
	return p.env
}

// Name returns the on-the-wire name for base at level.
func (p *Policy) Name(base string, level Level) string {
	if !p.env.secure() {
		return base
	}
	switch level {
	case LevelHighest:
		return HostPrefix + base
	case LevelHigh, LevelMedium:
		return SecurePrefix + base
	default:
		return base
	}
}

// Attributes resolves the attribute set for level with overrides applied.
func (p *Policy) Attributes(level Level, ov Overrides) (Attributes, error) {
	path := ov.Path
	if path == "" {
		path = "/"
	}

	switch level {
	case LevelHighest:
		if ov.Domain != "" {
			return Attributes{}, ErrDomainNotAllowed
		}
		if path != "/" {
			return Attributes{}, ErrPathNotAllowed
		}
		return Attributes{
			HTTPOnly: true,
			Secure:   true,
			SameSite: http.SameSiteStrictMode,
			Path:     "/",
			MaxAge:   ov.MaxAge,
		}, nil
	case LevelHigh, LevelMedium:
		return Attributes{
			HTTPOnly: true,
			Secure:   p.env.secure(),
			SameSite: http.SameSiteStrictMode,
			Path:     path,
			Domain:   ov.Domain,
			MaxAge:   ov.MaxAge,
		}, nil
	case LevelBasic:
		return Attributes{
			HTTPOnly: true,
			Secure:   p.env.Production,
			SameSite: http.SameSiteLaxMode,
			Path:     path,
			Domain:   ov.Domain,
			MaxAge:   ov.MaxAge,
		}, nil
	default:
		return Attributes{}, ErrUnknownLevel
	}
}

// Cookie builds a validated cookie named after base at level.
func (p *Policy) Cookie(base, value string, level Level, ov Overrides) (*http.Cookie, error) {
	attrs, err := p.Attributes(level, ov)
	if err != nil {
		return nil, err
	}

	c := &http.Cookie{
		Name:     p.Name(base, level),
		Value:    value,
		Path:     attrs.Path,
		Domain:   attrs.Domain,
		MaxAge:   attrs.MaxAge,
		HttpOnly: attrs.HTTPOnly,
		Secure:   attrs.Secure,
		SameSite: attrs.SameSite,
	}
	if err := Validate(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Set writes the cookie to w.
func (p *Policy) Set(w http.ResponseWriter, base, value string, level Level, ov Overrides) error {
	c, err := p.Cookie(base, value, level, ov)
	if err != nil {
		return err
	}
	http.SetCookie(w, c)
	return nil
}

// Clear writes an expiring cookie for base at level. Clearing a cookie the client
// never had is harmless.
func (p *Policy) Clear(w http.ResponseWriter, base string, level Level, ov Overrides) error {
	ov.MaxAge = -1
	return p.Set(w, base, "", level, ov)
}

// Read returns the value of the cookie for base at level, if present and non-empty.
func (p *Policy) Read(r *http.Request, base string, level Level) (string, bool) {
	c, err := r.Cookie(p.Name(base, level))
	if err != nil || c.Value == "" {
		return "", false
	}
	return c.Value, true
}

// Validate enforces the browser prefix rules on c.
func Validate(c *http.Cookie) error {
	switch {
	case strings.HasPrefix(c.Name, HostPrefix):
		if !c.Secure || c.Path != "/" || c.Domain != "" {
			return fmt.Errorf("%w: %s", ErrHostPrefixViolation, c.Name)
		}
	case strings.HasPrefix(c.Name, SecurePrefix):
		if !c.Secure {
			return fmt.Errorf("%w: %s", ErrSecurePrefixViolation, c.Name)
		}
	}
	return nil
}
