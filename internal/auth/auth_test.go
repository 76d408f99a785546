package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aura-workshop/backend/internal/models"
	"github.com/aura-workshop/backend/pkg/utils"
)

func TestJWT_RoundTrip(t *testing.T) {
	svc := NewJWTService("secret", 1)
	id := uuid.New()
	tok, err := svc.Generate(id, "a@b.co", models.RoleAdmin)
	require.NoError(t, err)

	claims, err := svc.Validate(tok)
	require.NoError(t, err)
	assert.Equal(t, id, claims.AdminID)
	assert.Equal(t, models.RoleAdmin, claims.Role)
	assert.Equal(t, Issuer, claims.Issuer)
}

func TestJWT_Rejects(t *testing.T) {
	svc := NewJWTService("secret", 1)
	other := NewJWTService("other", 1)
	tok, err := other.Generate(uuid.New(), "a@b.co", models.RoleAdmin)
	require.NoError(t, err)
	_, err = svc.Validate(tok)
	assert.ErrorIs(t, err, ErrInvalidToken)

	expired := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    Issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Minute)),
		},
	})
	s, err := expired.SignedString([]byte("secret"))
	require.NoError(t, err)
	_, err = svc.Validate(s)
	assert.ErrorIs(t, err, ErrInvalidToken)

	_, err = svc.Validate("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

type fakeAdmins struct {
	admins  map[string]*models.Admin
	err     error
	created []string
}

func (f *fakeAdmins) GetByEmail(_ context.Context, email string) (*models.Admin, error) {
	if f.err != nil {
		return nil, f.err
	}
	a, ok := f.admins[email]
	if !ok {
		return nil, ErrAdminNotFound
	}
	return a, nil
}

func (f *fakeAdmins) CreateIfMissing(_ context.Context, email, hash, _ string) (bool, error) {
	if f.err != nil {
		return false, f.err
	}
	if _, ok := f.admins[email]; ok {
		return false, nil
	}
	f.admins[email] = &models.Admin{ID: uuid.New(), Email: email, Password: hash, Role: models.RoleAdmin}
	f.created = append(f.created, email)
	return true, nil
}

func login(t *testing.T, h *Handler, body any) *httptest.ResponseRecorder {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.POST("/auth/login", h.Login)
	b, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, "/auth/login", bytes.NewReader(b))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestLogin(t *testing.T) {
	repo := &fakeAdmins{admins: map[string]*models.Admin{}}
	require.NoError(t, EnsureAdmin(context.Background(), repo, "admin@example.com", "hunter2hunter2", "Admin", nil))
	jwtSvc := NewJWTService("secret", 1)
	h := NewHandler(repo, jwtSvc, nil)

	w := login(t, h, LoginRequest{Email: "admin@example.com", Password: "hunter2hunter2"})
	require.Equal(t, http.StatusOK, w.Code)
	var body struct {
		Data TokenResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "admin@example.com", body.Data.Admin.Email)
	_, err := jwtSvc.Validate(body.Data.Token)
	assert.NoError(t, err)
	assert.NotContains(t, w.Body.String(), "password")

	assert.Equal(t, http.StatusUnauthorized, login(t, h, LoginRequest{Email: "admin@example.com", Password: "wrong-password"}).Code)
	assert.Equal(t, http.StatusUnauthorized, login(t, h, LoginRequest{Email: "nobody@example.com", Password: "hunter2hunter2"}).Code)
	assert.Equal(t, http.StatusBadRequest, login(t, h, map[string]string{"email": "not-an-email"}).Code)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	repo := &fakeAdmins{admins: map[string]*models.Admin{}}

	require.NoError(t, EnsureAdmin(ctx, repo, "", "", "", nil))
	assert.Empty(t, repo.created)

	require.NoError(t, EnsureAdmin(ctx, repo, "admin@example.com", "hunter2hunter2", "Admin", nil))
	require.NoError(t, EnsureAdmin(ctx, repo, "admin@example.com", "another-password", "Admin", nil))
	assert.Equal(t, []string{"admin@example.com"}, repo.created)
	assert.True(t, utils.CheckPassword("hunter2hunter2", repo.admins["admin@example.com"].Password))

	assert.ErrorIs(t, EnsureAdmin(ctx, repo, "x@example.com", "short", "", nil), utils.ErrPasswordTooShort)

	repo.err = errors.New("db down")
	assert.Error(t, EnsureAdmin(ctx, repo, "y@example.com", "hunter2hunter2", "", nil))
}
