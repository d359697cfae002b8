package identity

import (
	"errors"
	"fmt"
	"time"

	"realtime-scoring-backend/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// AnonymousTTL is how long a minted anonymous identity stays valid.
const AnonymousTTL = 30 * 24 * time.Hour

var ErrInvalidToken = errors.New("invalid identity token")

// Claims carried by an identity token. Subject is the user id.
type Claims struct {
	Anonymous bool `json:"anon"`
	jwt.RegisteredClaims
}

// Issuer signs and verifies HS256 identity tokens.
type Issuer struct {
	secret []byte
	now    func() time.Time
}

func NewIssuer(secret string) *Issuer {
	return &Issuer{secret: []byte(secret), now: time.Now}
}

// Issue signs a token for id. A zero ttl produces a token without expiry.
func (i *Issuer) Issue(id models.Identity, ttl time.Duration) (string, error) {
	if id.UserID == "" {
		return "", fmt.Errorf("issue token: empty user id")
	}

	now := i.now()
	claims := Claims{
		Anonymous: id.Anonymous,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:  id.UserID,
			IssuedAt: jwt.NewNumericDate(now),
		},
	}
	if ttl > 0 {
		claims.ExpiresAt = jwt.NewNumericDate(now.Add(ttl))
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return signed, nil
}

// Verify parses tokenString and returns the identity it names.
func (i *Issuer) Verify(tokenString string) (models.Identity, error) {
	var claims Claims
	token, err := jwt.ParseWithClaims(tokenString, &claims, func(token *jwt.Token) (interface{}, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil || !token.Valid {
		return models.Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}
	if claims.Subject == "" {
		return models.Identity{}, fmt.Errorf("%w: missing subject", ErrInvalidToken)
	}
	return models.Identity{UserID: claims.Subject, Anonymous: claims.Anonymous}, nil
}

// MintAnonymous creates a fresh ephemeral identity and its token.
func (i *Issuer) MintAnonymous() (models.Identity, string, error) {
	id := models.Identity{UserID: "anon_" + uuid.NewString(), Anonymous: true}
	token, err := i.Issue(id, AnonymousTTL)
	if err != nil {
		return models.Identity{}, "", err
	}
	return id, token, nil
}
