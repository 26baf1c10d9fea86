package googlewallet

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"os"
	"path/filepath"
	"testing"

	"walletbridge/pkg/googlewallet/types"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTestRSAKey(t *testing.T) (string, *rsa.PrivateKey) {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	keyPath := filepath.Join(t.TempDir(), "issuer.pem")
	pemBytes := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(key),
	})
	require.NoError(t, os.WriteFile(keyPath, pemBytes, 0600))
	return keyPath, key
}

func newTestSaveLinkBuilder(t *testing.T) (*SaveLinkBuilder, *rsa.PrivateKey) {
	t.Helper()

	keyPath, key := writeTestRSAKey(t)
	builder, err := NewSaveLinkBuilder("issuer@example.iam.gserviceaccount.com",
		[]string{"https://shop.example"}, "https://pay.example/save/", keyPath)
	require.NoError(t, err)
	return builder, key
}

func TestBuildToken_Claims(t *testing.T) {
	builder, key := newTestSaveLinkBuilder(t)

	template := &types.Template{ID: "3388.abc"}
	object := &types.WalletObject{ID: "3388.loyalty-def", ClassID: "3388.abc"}

	signed, err := builder.BuildToken(types.KindLoyalty, template, object)
	require.NoError(t, err)

	token, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	}, jwt.WithValidMethods([]string{"RS256"}))
	require.NoError(t, err)
	require.True(t, token.Valid)

	claims := token.Claims.(jwt.MapClaims)
	assert.Equal(t, "issuer@example.iam.gserviceaccount.com", claims["iss"])
	assert.Equal(t, "google", claims["aud"])
	assert.Equal(t, "savetowallet", claims["typ"])
	assert.NotNil(t, claims["iat"])
	assert.Nil(t, claims["exp"], "save links do not expire")

	origins := claims["origins"].([]interface{})
	assert.Equal(t, "https://shop.example", origins[0])

	payload := claims["payload"].(map[string]interface{})
	classes := payload["loyaltyClasses"].([]interface{})
	objects := payload["loyaltyObjects"].([]interface{})
	assert.Equal(t, "3388.abc", classes[0].(map[string]interface{})["id"])
	assert.Equal(t, "3388.loyalty-def", objects[0].(map[string]interface{})["id"])
}

func TestBuildToken_PayloadKeyFollowsKind(t *testing.T) {
	builder, key := newTestSaveLinkBuilder(t)

	signed, err := builder.BuildToken(types.KindGiftCard,
		&types.Template{ID: "3388.abc"}, &types.WalletObject{ID: "3388.giftcard-def"})
	require.NoError(t, err)

	token, err := jwt.Parse(signed, func(token *jwt.Token) (interface{}, error) {
		return &key.PublicKey, nil
	})
	require.NoError(t, err)

	payload := token.Claims.(jwt.MapClaims)["payload"].(map[string]interface{})
	assert.Contains(t, payload, "giftCardClasses")
	assert.Contains(t, payload, "giftCardObjects")
}

func TestSaveURL(t *testing.T) {
	builder, _ := newTestSaveLinkBuilder(t)
	assert.Equal(t, "https://pay.example/save/abc.def.ghi", builder.SaveURL("abc.def.ghi"))
}

func TestNewSaveLinkBuilder_MissingKey(t *testing.T) {
	_, err := NewSaveLinkBuilder("issuer@example.com", nil, "https://pay.example/save/", "/nonexistent/key.pem")
	assert.Error(t, err)
}

func TestNewSaveLinkBuilder_GarbageKey(t *testing.T) {
	keyPath := filepath.Join(t.TempDir(), "bad.pem")
	require.NoError(t, os.WriteFile(keyPath, []byte("not a key"), 0600))

	_, err := NewSaveLinkBuilder("issuer@example.com", nil, "https://pay.example/save/", keyPath)
	assert.Error(t, err)
}
