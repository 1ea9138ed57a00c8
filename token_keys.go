package auth

import (
	"crypto/rsa"
	"fmt"
	"strings"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/goliatone/go-errors"
)

const (
	SigningMethodRS256 = "RS256"
	SigningMethodHS256 = "HS256"

	// DefaultKeyID is used when the configuration does not name the key
	DefaultKeyID = "default"
)

// SigningKeys holds the key used to sign new tokens and the set of keys
// accepted when verifying. The set is keyed by kid so previous keys keep
// verifying after a rotation. Loaded once and read-only afterwards.
type SigningKeys struct {
	method  jwt.SigningMethod
	kid     string
	signKey any
	jwks    *keyfunc.JWKS
}

// NewHMACKeys builds an HS256 key set from a shared secret.
func NewHMACKeys(secret []byte, kid string) (*SigningKeys, error) {
	if len(secret) == 0 {
		return nil, errors.New("hmac signing secret must not be empty", errors.CategoryBadInput)
	}

	kid = keyID(kid)
	given := map[string]keyfunc.GivenKey{
		kid: keyfunc.NewGivenHMAC(secret, keyfunc.GivenKeyOptions{
			Algorithm: jwt.SigningMethodHS256.Alg(),
		}),
	}

	return &SigningKeys{
		method:  jwt.SigningMethodHS256,
		kid:     kid,
		signKey: secret,
		jwks:    keyfunc.NewGiven(given),
	}, nil
}

// NewRSAKeys builds an RS256 key set. previous holds public keys of
// retired signing keys, keyed by kid.
func NewRSAKeys(private *rsa.PrivateKey, kid string, previous map[string]*rsa.PublicKey) (*SigningKeys, error) {
	if private == nil {
		return nil, errors.New("rsa private key is required", errors.CategoryBadInput)
	}

	kid = keyID(kid)
	opts := keyfunc.GivenKeyOptions{Algorithm: jwt.SigningMethodRS256.Alg()}

	given := make(map[string]keyfunc.GivenKey, len(previous)+1)
	for prevKID, pub := range previous {
		if pub == nil {
			continue
		}
		given[prevKID] = keyfunc.NewGivenRSA(pub, opts)
	}
	given[kid] = keyfunc.NewGivenRSA(&private.PublicKey, opts)

	return &SigningKeys{
		method:  jwt.SigningMethodRS256,
		kid:     kid,
		signKey: private,
		jwks:    keyfunc.NewGiven(given),
	}, nil
}

// LoadSigningKeys reads the signing material from configuration. RS256
// expects PEM encoded keys, HS256 a shared secret.
func LoadSigningKeys(cfg Config) (*SigningKeys, error) {
	method := strings.ToUpper(strings.TrimSpace(cfg.GetSigningMethod()))
	if method == "" {
		method = SigningMethodRS256
	}

	switch method {
	case SigningMethodHS256:
		return NewHMACKeys([]byte(cfg.GetSigningKey()), cfg.GetKeyID())
	case SigningMethodRS256:
		private, err := jwt.ParseRSAPrivateKeyFromPEM([]byte(cfg.GetPrivateKey()))
		if err != nil {
			return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to parse rsa private key")
		}

		if pemPub := strings.TrimSpace(cfg.GetPublicKey()); pemPub != "" {
			pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemPub))
			if err != nil {
				return nil, errors.Wrap(err, errors.CategoryBadInput, "failed to parse rsa public key")
			}
			if !pub.Equal(&private.PublicKey) {
				return nil, errors.New("rsa public key does not match private key", errors.CategoryBadInput)
			}
		}

		previous := make(map[string]*rsa.PublicKey, len(cfg.GetVerificationKeys()))
		for kid, pemPub := range cfg.GetVerificationKeys() {
			pub, err := jwt.ParseRSAPublicKeyFromPEM([]byte(pemPub))
			if err != nil {
				return nil, errors.Wrap(err, errors.CategoryBadInput, fmt.Sprintf("failed to parse verification key %q", kid))
			}
			previous[kid] = pub
		}

		return NewRSAKeys(private, cfg.GetKeyID(), previous)
	default:
		return nil, errors.New(fmt.Sprintf("unsupported signing method %q", method), errors.CategoryBadInput)
	}
}

// Method returns the algorithm used for new tokens
func (k *SigningKeys) Method() jwt.SigningMethod {
	return k.method
}

// KeyID returns the kid stamped on new tokens
func (k *SigningKeys) KeyID() string {
	return k.kid
}

// KIDs lists the key ids accepted during verification
func (k *SigningKeys) KIDs() []string {
	return k.jwks.KIDs()
}

func (k *SigningKeys) sign(claims jwt.Claims) (string, error) {
	token := jwt.NewWithClaims(k.method, claims)
	token.Header["kid"] = k.kid
	return token.SignedString(k.signKey)
}

func (k *SigningKeys) keyfunc(t *jwt.Token) (any, error) {
	if t.Method.Alg() != k.method.Alg() {
		return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
	}
	return k.jwks.Keyfunc(t)
}

func keyID(kid string) string {
	if kid = strings.TrimSpace(kid); kid == "" {
		return DefaultKeyID
	}
	return kid
}
