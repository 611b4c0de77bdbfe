package authjwt

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofrs/uuid"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kickback/api/internal/types"
)

func newKeyPair(t *testing.T) (*ecdsa.PrivateKey, string) {
	t.Helper()
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	require.NoError(t, err)
	der, err := x509.MarshalPKIXPublicKey(&key.PublicKey)
	require.NoError(t, err)
	return key, string(pem.EncodeToMemory(&pem.Block{Type: "PUBLIC KEY", Bytes: der}))
}

func signToken(t *testing.T, key *ecdsa.PrivateKey, claim map[string]interface{}, exp time.Time) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodES256, jwt.MapClaims{
		"claim": claim,
		"exp":   exp.Unix(),
	})
	signed, err := token.SignedString(key)
	require.NoError(t, err)
	return signed
}

func newTestApp(publicKey string) *fiber.App {
	app := fiber.New()
	app.Use(New(Config{PublicKey: publicKey}))
	app.Get("/me", func(c *fiber.Ctx) error {
		user, ok := UserFromCtx(c)
		if !ok {
			return c.SendStatus(http.StatusInternalServerError)
		}
		return c.JSON(user)
	})
	return app
}

func TestAuthJWT_ValidToken(t *testing.T) {
	key, pub := newKeyPair(t)
	app := newTestApp(pub)
	userID := uuid.Must(uuid.NewV4())

	token := signToken(t, key, map[string]interface{}{
		types.HeaderUID: userID.String(),
		"firstName":     "Ada",
		"lastName":      "Lovelace",
		"nickname":      "ada",
	}, time.Now().Add(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.Header.Set(types.HeaderAuthorization, types.BearerPrefix+token)
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthJWT_CookieFallback(t *testing.T) {
	key, pub := newKeyPair(t)
	app := newTestApp(pub)

	token := signToken(t, key, map[string]interface{}{
		types.HeaderUID: uuid.Must(uuid.NewV4()).String(),
	}, time.Now().Add(time.Hour))

	req := httptest.NewRequest(http.MethodGet, "/me", nil)
	req.AddCookie(&http.Cookie{Name: "access_token", Value: token})
	resp, err := app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestAuthJWT_Rejections(t *testing.T) {
	key, pub := newKeyPair(t)
	otherKey, _ := newKeyPair(t)
	app := newTestApp(pub)
	validClaim := map[string]interface{}{types.HeaderUID: uuid.Must(uuid.NewV4()).String()}

	cases := map[string]string{
		"missing token": "",
		"expired":       signToken(t, key, validClaim, time.Now().Add(-time.Minute)),
		"wrong key":     signToken(t, otherKey, validClaim, time.Now().Add(time.Hour)),
		"bad uid":       signToken(t, key, map[string]interface{}{types.HeaderUID: "nope"}, time.Now().Add(time.Hour)),
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			if token != "" {
				req.Header.Set(types.HeaderAuthorization, types.BearerPrefix+token)
			}
			resp, err := app.Test(req)
			require.NoError(t, err)
			assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		})
	}
}
