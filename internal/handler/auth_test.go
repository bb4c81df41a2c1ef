package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/warnet-bowar/internal/config"
	"github.com/iliyamo/warnet-bowar/internal/model"
	"github.com/iliyamo/warnet-bowar/internal/repository"
	"github.com/iliyamo/warnet-bowar/internal/utils"
)

// --- in-memory account stores ---

type memAccounts struct {
	users  map[uint64]*model.User
	nextID uint64
}

func newAccounts() *memAccounts { return &memAccounts{users: map[uint64]*model.User{}, nextID: 1} }

func (m *memAccounts) Create(ctx context.Context, in repository.NewUser, cost int) (uint64, error) {
	for _, u := range m.users {
		if u.Email == in.Email {
			return 0, repository.ErrEmailExists
		}
	}
	hash, err := utils.HashPassword(in.Password, cost)
	if err != nil {
		return 0, err
	}
	id := m.nextID
	m.nextID++
	m.users[id] = &model.User{ID: id, Name: in.Name, Email: in.Email, PasswordHash: hash, Role: in.Role,
		IsActive: true}
	return id, nil
}

func (m *memAccounts) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (m *memAccounts) GetByID(ctx context.Context, id uint64) (*model.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

type memToken struct {
	userID  uint64
	exp     time.Time
	revoked bool
}

type memTokens struct{ byHash map[string]*memToken }

func newTokens() *memTokens { return &memTokens{byHash: map[string]*memToken{}} }

func (m *memTokens) StoreRefresh(ctx context.Context, userID uint64, hash string, exp time.Time) error {
	m.byHash[hash] = &memToken{userID: userID, exp: exp}
	return nil
}

func (m *memTokens) ValidateRefresh(ctx context.Context, hash string) (uint64, error) {
	t, ok := m.byHash[hash]
	if !ok || t.revoked || time.Now().After(t.exp) {
		return 0, repository.ErrNotFound
	}
	return t.userID, nil
}

func (m *memTokens) Rotate(ctx context.Context, userID uint64, oldHash, newHash string, exp time.Time) error {
	t, ok := m.byHash[oldHash]
	if !ok || t.revoked {
		return repository.ErrConflict
	}
	t.revoked = true
	return m.StoreRefresh(ctx, userID, newHash, exp)
}

func (m *memTokens) RevokeByHash(ctx context.Context, hash string) error {
	if t, ok := m.byHash[hash]; ok {
		t.revoked = true
	}
	return nil
}

func (m *memTokens) RevokeAllForUser(ctx context.Context, userID uint64) error {
	for _, t := range m.byHash {
		if t.userID == userID {
			t.revoked = true
		}
	}
	return nil
}

func (m *memTokens) active(userID uint64) int {
	n := 0
	for _, t := range m.byHash {
		if t.userID == userID && !t.revoked {
			n++
		}
	}
	return n
}

func testAuth() (*AuthHandler, *memAccounts, *memTokens) {
	cfg := config.Config{JWTSecret: "test-secret", AccessTTLMin: 15, RefreshTTLDays: 7, BcryptCost: 4}
	users, tokens := newAccounts(), newTokens()
	return NewAuthHandler(Base{}, cfg, users, tokens), users, tokens
}

func post(path, body string) (echo.Context, *httptest.ResponseRecorder) {
	return newCtx(http.MethodPost, path, echo.MIMEApplicationJSON, strings.NewReader(body), model.Identity{})
}

func authData(t *testing.T, raw json.RawMessage) authResp {
	t.Helper()
	var a authResp
	require.NoError(t, json.Unmarshal(raw, &a))
	return a
}

func TestRegister_Handler_CreatesUserAndTokens(t *testing.T) {
	h, _, tokens := testAuth()
	c, rec := post("/api/auth/register", `{"name":"Budi","email":" Budi@Mail.com ","password":"rahasia123","member_warnet_id":1}`)
	require.NoError(t, h.Register(c))

	assert.Equal(t, http.StatusCreated, rec.Code)
	a := authData(t, decode(t, rec).Data)
	assert.Equal(t, "budi@mail.com", a.User.Email)
	assert.Equal(t, model.RoleUser, a.User.Role)
	assert.Nil(t, a.User.MemberWarnetID, "membership is not self-declared")
	assert.NotEmpty(t, a.Access.Token)
	assert.Equal(t, 1, tokens.active(a.User.ID))

	claims, err := utils.ParseAccessToken("test-secret", a.Access.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleUser, claims.Role)
	assert.Nil(t, claims.WarnetID)
}

func TestRegister_Handler_Validation(t *testing.T) {
	cases := map[string]struct {
		body string
		code int
	}{
		"missing name":  {`{"email":"a@b.com","password":"rahasia123"}`, http.StatusBadRequest},
		"bad email":     {`{"name":"A","email":"nope","password":"rahasia123"}`, http.StatusBadRequest},
		"weak password": {`{"name":"A","email":"a@b.com","password":"123"}`, http.StatusBadRequest},
		"broken json":   {`{"name":`, http.StatusBadRequest},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			h, _, _ := testAuth()
			c, rec := post("/api/auth/register", tc.body)
			require.NoError(t, h.Register(c))
			assert.Equal(t, tc.code, rec.Code)
		})
	}
}

func TestRegister_Handler_DuplicateEmail(t *testing.T) {
	h, _, _ := testAuth()
	body := `{"name":"Budi","email":"budi@mail.com","password":"rahasia123"}`
	c, _ := post("/api/auth/register", body)
	require.NoError(t, h.Register(c))

	c, rec := post("/api/auth/register", body)
	require.NoError(t, h.Register(c))
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "Email sudah terdaftar", decode(t, rec).Message)
}

func TestLogin_Handler(t *testing.T) {
	h, users, _ := testAuth()
	warnet := uint64(2)
	_, err := users.Create(context.Background(), repository.NewUser{Name: "Op", Email: "op@bowar.id", Password: "rahasia123", Role: model.RoleOperator}, 4)
	require.NoError(t, err)
	users.users[1].WarnetID = &warnet

	c, rec := post("/api/auth/login", `{"email":"op@bowar.id","password":"salah-sekali"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = post("/api/auth/login", `{"email":"ghost@bowar.id","password":"rahasia123"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	c, rec = post("/api/auth/login", `{"email":"OP@bowar.id","password":"rahasia123"}`)
	require.NoError(t, h.Login(c))
	require.Equal(t, http.StatusOK, rec.Code)
	claims, err := utils.ParseAccessToken("test-secret", authData(t, decode(t, rec).Data).Access.Token)
	require.NoError(t, err)
	assert.Equal(t, model.RoleOperator, claims.Role)
	require.NotNil(t, claims.WarnetID)
	assert.Equal(t, uint64(2), *claims.WarnetID)
}

func TestLogin_Handler_InactiveUser(t *testing.T) {
	h, users, _ := testAuth()
	_, err := users.Create(context.Background(), repository.NewUser{Name: "B", Email: "b@mail.com", Password: "rahasia123", Role: model.RoleUser}, 4)
	require.NoError(t, err)
	users.users[1].IsActive = false

	c, rec := post("/api/auth/login", `{"email":"b@mail.com","password":"rahasia123"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefresh_Handler_RotatesAndRejectsReplay(t *testing.T) {
	h, _, tokens := testAuth()
	c, rec := post("/api/auth/register", `{"name":"Budi","email":"budi@mail.com","password":"rahasia123"}`)
	require.NoError(t, h.Register(c))
	first := authData(t, decode(t, rec).Data)

	body := `{"refresh_token":"` + first.Refresh.Token + `"}`
	c, rec = post("/api/auth/refresh", body)
	require.NoError(t, h.Refresh(c))
	require.Equal(t, http.StatusOK, rec.Code)
	second := authData(t, decode(t, rec).Data)
	assert.NotEqual(t, first.Refresh.Token, second.Refresh.Token)
	assert.Equal(t, 1, tokens.active(first.User.ID))

	c, rec = post("/api/auth/refresh", body)
	require.NoError(t, h.Refresh(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRefreshAccess_Handler_KeepsRefreshToken(t *testing.T) {
	h, _, tokens := testAuth()
	c, rec := post("/api/auth/register", `{"name":"Budi","email":"budi@mail.com","password":"rahasia123"}`)
	require.NoError(t, h.Register(c))
	a := authData(t, decode(t, rec).Data)

	c, rec = post("/api/auth/refresh-access", `{"refresh_token":"`+a.Refresh.Token+`"}`)
	require.NoError(t, h.RefreshAccess(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	_, err := tokens.ValidateRefresh(context.Background(), utils.HashRefreshRaw(a.Refresh.Token))
	assert.NoError(t, err)
}

func TestLogout_Handler(t *testing.T) {
	h, _, tokens := testAuth()
	c, rec := post("/api/auth/register", `{"name":"Budi","email":"budi@mail.com","password":"rahasia123"}`)
	require.NoError(t, h.Register(c))
	a := authData(t, decode(t, rec).Data)
	c, rec = post("/api/auth/login", `{"email":"budi@mail.com","password":"rahasia123"}`)
	require.NoError(t, h.Login(c))
	assert.Equal(t, 2, tokens.active(a.User.ID))

	// One session by refresh token.
	c, rec = post("/api/auth/logout", `{"refresh_token":"`+a.Refresh.Token+`"}`)
	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 1, tokens.active(a.User.ID))

	// Every session by bearer.
	c, rec = post("/api/auth/logout", ``)
	c.Request().Header.Set(echo.HeaderAuthorization, "Bearer "+a.Access.Token)
	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, 0, tokens.active(a.User.ID))

	c, rec = post("/api/auth/logout", ``)
	require.NoError(t, h.Logout(c))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestMe_Handler(t *testing.T) {
	h, users, _ := testAuth()
	_, err := users.Create(context.Background(), repository.NewUser{Name: "Budi", Email: "budi@mail.com", Password: "rahasia123", Role: model.RoleUser}, 4)
	require.NoError(t, err)

	c, rec := newCtx(http.MethodGet, "/api/me", "", nil, asUser(1))
	require.NoError(t, h.Me(c))
	assert.Equal(t, http.StatusOK, rec.Code)
	var u model.User
	require.NoError(t, json.Unmarshal(decode(t, rec).Data, &u))
	assert.Equal(t, "Budi", u.Name)
	assert.NotContains(t, rec.Body.String(), "password")

	c, rec = newCtx(http.MethodGet, "/api/me", "", nil, model.Identity{})
	require.NoError(t, h.Me(c))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
