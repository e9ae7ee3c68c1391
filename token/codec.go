package token

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// MinSecretSize is the smallest accepted HMAC secret, in bytes.
const MinSecretSize = 32

// MaxLeeway bounds [Config.Leeway].
const MaxLeeway = time.Minute

// Claims is implemented by any payload struct that embeds [Timestamps].
type Claims interface {
	jwt.Claims
	stamp(id, issuer string, issuedAt, expiresAt time.Time)
}

// Timestamps carries the registered claims (iat, exp, jti, iss) of an envelope.
// Embed it by value in a payload struct to make the struct a [Claims].
type Timestamps struct {
	jwt.RegisteredClaims
}

func (t *Timestamps) stamp(id, issuer string, issuedAt, expiresAt time.Time) {
	t.ID = id
	t.Issuer = issuer
	t.IssuedAt = jwt.NewNumericDate(issuedAt)
	t.ExpiresAt = jwt.NewNumericDate(expiresAt)
}

// Issued returns the issued-at time, or the zero time when absent.
func (t Timestamps) Issued() time.Time {
	if t.IssuedAt == nil {
		return time.Time{}
	}
	return t.IssuedAt.Time
}

// Expires returns the expiry time, or the zero time when absent.
func (t Timestamps) Expires() time.Time {
	if t.ExpiresAt == nil {
		return time.Time{}
	}
	return t.ExpiresAt.Time
}

// Config holds codec parameters.
type Config struct {
	Secret []byte
	Issuer string
	// Now overrides the clock used for stamping and expiry checks.
	Now func() time.Time
	// RequireIAT rejects tokens whose issued-at lies in the future. Instances
	// with skewed clocks need Leeway when it is set.
	RequireIAT bool
	// Leeway tolerates clock skew on time-based claims. Zero means exact.
	Leeway time.Duration
}

// Codec signs and verifies envelopes with a single symmetric secret.
// A Codec is safe for concurrent use.
type Codec struct {
	secret     []byte
	issuer     string
	now        func() time.Time
	requireIAT bool
	leeway     time.Duration
}

// New creates a [Codec]. The secret is copied.
func New(cfg Config) (*Codec, error) {
	if len(cfg.Secret) < MinSecretSize {
		return nil, ErrWeakSecret
	}
	if cfg.Leeway < 0 || cfg.Leeway > MaxLeeway {
		return nil, ErrInvalidLeeway
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	secret := make([]byte, len(cfg.Secret))
	copy(secret, cfg.Secret)

	return &Codec{
		secret:     secret,
		issuer:     cfg.Issuer,
		now:        now,
		requireIAT: cfg.RequireIAT,
		leeway:     cfg.Leeway,
	}, nil
}

// Sign stamps claims with issued-at, expiry (now + ttl) and a fresh id, then
// returns the signed compact token.
func (c *Codec) Sign(claims Claims, ttl time.Duration) (string, error) {
	if ttl <= 0 {
		return "", ErrInvalidTTL
	}

	now := c.now()
	claims.stamp(uuid.NewString(), c.issuer, now, now.Add(ttl))

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(c.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses tokenStr into claims. Any failure is reported as [ErrInvalidToken]
// wrapping the underlying cause.
func (c *Codec) Verify(tokenStr string, claims Claims) error {
	if tokenStr == "" {
		return fmt.Errorf("%w: empty", ErrInvalidToken)
	}

	options := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(c.now),
		jwt.WithExpirationRequired(),
	}
	if c.leeway > 0 {
		options = append(options, jwt.WithLeeway(c.leeway))
	}
	if c.requireIAT {
		options = append(options, jwt.WithIssuedAt())
	}
	if c.issuer != "" {
		options = append(options, jwt.WithIssuer(c.issuer))
	}

	parsed, err := jwt.NewParser(options...).ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing algorithm: %s", t.Method.Alg())
		}
		return c.secret, nil
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if !parsed.Valid {
		return ErrInvalidToken
	}

	return nil
}

// RandomHex returns n cryptographically random bytes, hex encoded.
func RandomHex(n int) (string, error) {
	buf := make([]byte, n)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return hex.EncodeToString(buf), nil
}
