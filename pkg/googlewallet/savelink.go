package googlewallet

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"fmt"
	"os"
	"time"

	apperrors "walletbridge/internal/errors"
	"walletbridge/pkg/googlewallet/types"

	"github.com/golang-jwt/jwt/v5"
)

// SaveLinkBuilder signs "add to wallet" JWTs with the issuer's RSA key.
// Tokens carry no expiry; a save link stays valid until the underlying
// object is revoked.
type SaveLinkBuilder struct {
	issuerEmail string
	origins     []string
	baseURL     string
	privateKey  *rsa.PrivateKey
}

func NewSaveLinkBuilder(issuerEmail string, origins []string, baseURL, privateKeyPath string) (*SaveLinkBuilder, error) {
	keyBytes, err := os.ReadFile(privateKeyPath)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeMissingConfig, "failed to read save link signing key")
	}

	key, err := parseRSAPrivateKey(keyBytes)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInvalidConfig, "failed to parse save link signing key")
	}

	return &SaveLinkBuilder{
		issuerEmail: issuerEmail,
		origins:     origins,
		baseURL:     baseURL,
		privateKey:  key,
	}, nil
}

// BuildToken signs the save payload for one template/object pair. The
// class is embedded alongside the object so the save works even before
// the provider has propagated the class insert.
func (b *SaveLinkBuilder) BuildToken(kind types.ObjectKind, template *types.Template, object *types.WalletObject) (string, error) {
	key := kind.PayloadKey()
	claims := jwt.MapClaims{
		"iss": b.issuerEmail,
		"aud": "google",
		"typ": "savetowallet",
		"iat": time.Now().Unix(),
		"payload": map[string]interface{}{
			key + "Classes": []*types.Template{template},
			key + "Objects": []*types.WalletObject{object},
		},
	}
	if len(b.origins) > 0 {
		claims["origins"] = b.origins
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	signed, err := token.SignedString(b.privateKey)
	if err != nil {
		return "", apperrors.NewSigningError("save link JWT", err)
	}
	return signed, nil
}

// SaveURL turns a signed token into the link a holder opens to add the
// pass to their wallet.
func (b *SaveLinkBuilder) SaveURL(token string) string {
	return b.baseURL + token
}

func parseRSAPrivateKey(pemBytes []byte) (*rsa.PrivateKey, error) {
	block, _ := pem.Decode(pemBytes)
	if block == nil {
		return nil, fmt.Errorf("no PEM block found in key material")
	}

	if key, err := x509.ParsePKCS1PrivateKey(block.Bytes); err == nil {
		return key, nil
	}

	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse private key: %w", err)
	}
	rsaKey, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("key is %T, expected RSA", parsed)
	}
	return rsaKey, nil
}
