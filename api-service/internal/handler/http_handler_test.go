package handler

import (
	"bytes"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/weiawesome/campus-live/api-service/internal/domain"
	"github.com/weiawesome/campus-live/api-service/internal/repository"
	"github.com/weiawesome/campus-live/api-service/internal/service"
	"github.com/weiawesome/campus-live/pkg/database"
	"github.com/weiawesome/campus-live/pkg/idgen"
	"github.com/weiawesome/campus-live/pkg/jwt"
	pkglog "github.com/weiawesome/campus-live/pkg/log"
	"github.com/weiawesome/campus-live/pkg/middleware"
	"github.com/weiawesome/campus-live/pkg/names"
	"github.com/weiawesome/campus-live/pkg/response"
)

type testServer struct {
	router *gin.Engine
	tokens *jwt.Manager
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := database.New(&database.Config{
		Driver:   "sqlite",
		FilePath: fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name()),
		LogLevel: "silent",
	})
	require.NoError(t, err)
	require.NoError(t, database.AutoMigrate(db, &domain.UserModel{}, &domain.MessageModel{}))
	t.Cleanup(func() { database.Close(db) })

	key, err := rsa.GenerateKey(rand.Reader, 1024)
	require.NoError(t, err)
	tokens := jwt.NewManagerWithKey(key, 15*time.Minute, 24*time.Hour, "campus-live")

	ids, err := idgen.NewSnowflake(1, idgen.DefaultEpoch)
	require.NoError(t, err)

	h := NewHandler(
		service.NewUserService(repository.NewGormUserRepository(db), tokens),
		service.NewMessageService(repository.NewGormMessageRepository(db), nil, ids, service.MessageServiceConfig{}),
		service.NewTokenService(tokens, time.Hour),
		middleware.NewAuthMiddleware(tokens),
	)

	r := gin.New()
	r.Use(pkglog.GinMiddleware(pkglog.Nop()))
	h.RegisterRoutes(r)
	return &testServer{router: r, tokens: tokens}
}

func (s *testServer) do(t *testing.T, method, path, token string, body any) (*httptest.ResponseRecorder, response.RawResponse) {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env response.RawResponse
	if w.Body.Len() > 0 {
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	}
	return w, env
}

func (s *testServer) register(t *testing.T, email, username, displayName string) domain.AuthResponse {
	t.Helper()
	w, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "", domain.RegisterRequest{
		Email: email, Username: username, Password: "secret1", DisplayName: displayName,
	})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var auth domain.AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &auth))
	return auth
}

func TestHandler_Health(t *testing.T) {
	s := newTestServer(t)
	w, _ := s.do(t, http.MethodGet, "/health", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_RegisterLoginAndConflicts(t *testing.T) {
	s := newTestServer(t)

	auth := s.register(t, "alice@campus.edu", "alice", "")
	assert.Equal(t, names.Generate("alice@campus.edu"), auth.User.DisplayName)

	w, env := s.do(t, http.MethodPost, "/api/v1/auth/register", "", domain.RegisterRequest{
		Email: "alice@campus.edu", Username: "alice2", Password: "secret1",
	})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, response.CodeConflict, env.Error.Code)

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Email: "alice@campus.edu", Password: "wrong"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env = s.do(t, http.MethodPost, "/api/v1/auth/login", "", domain.LoginRequest{Email: "alice@campus.edu", Password: "secret1"})
	require.Equal(t, http.StatusOK, w.Code)
	var login domain.AuthResponse
	require.NoError(t, json.Unmarshal(env.Data, &login))
	assert.Equal(t, auth.User.ID, login.User.ID)

	w, _ = s.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_DisplayNameLookup(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice@campus.edu", "alice", "Alice A.")

	w, env := s.do(t, http.MethodGet, "/api/v1/users/display-name?account=alice@campus.edu", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got domain.DisplayNameResponse
	require.NoError(t, json.Unmarshal(env.Data, &got))
	assert.Equal(t, "Alice A.", got.DisplayName)

	w, _ = s.do(t, http.MethodGet, "/api/v1/users/display-name?account=ghost@campus.edu", alice.AccessToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/users/display-name", alice.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/users/display-name?account=alice@campus.edu", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_UpdateMe(t *testing.T) {
	s := newTestServer(t)
	bob := s.register(t, "bob@campus.edu", "bob", "")

	name := "Bobby"
	w, env := s.do(t, http.MethodPut, "/api/v1/users/me", bob.AccessToken, domain.UpdateUserRequest{DisplayName: &name})
	require.Equal(t, http.StatusOK, w.Code)
	var user domain.UserResponse
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "Bobby", user.DisplayName)

	w, env = s.do(t, http.MethodGet, "/api/v1/users/me", bob.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &user))
	assert.Equal(t, "Bobby", user.DisplayName)
}

func TestHandler_Messages(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice@campus.edu", "alice", "Alice")

	for _, text := range []string{"first", "second", "third"} {
		w, env := s.do(t, http.MethodPost, "/api/v1/rooms/lobby/messages", alice.AccessToken,
			domain.CreateMessageRequest{Text: text, AuthorName: "Alice"})
		require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
		var created domain.CreatedMessageResponse
		require.NoError(t, json.Unmarshal(env.Data, &created))
		assert.NotEmpty(t, created.ID)
		assert.Positive(t, created.CreatedAtMs)
	}

	w, _ := s.do(t, http.MethodPost, "/api/v1/rooms/lobby/messages", alice.AccessToken, map[string]string{"text": "   "})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env := s.do(t, http.MethodGet, "/api/v1/rooms/lobby/messages?limit=2", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var list domain.MessageListResponse
	require.NoError(t, json.Unmarshal(env.Data, &list))
	require.Len(t, list.Messages, 2)
	assert.Equal(t, "second", list.Messages[0].Text)
	assert.Equal(t, "third", list.Messages[1].Text)
	assert.Equal(t, "alice@campus.edu", list.Messages[1].AuthorID)

	w, _ = s.do(t, http.MethodGet, "/api/v1/rooms/lobby/messages?limit=zero", alice.AccessToken, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, env = s.do(t, http.MethodGet, "/api/v1/rooms/library/messages", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.NoError(t, json.Unmarshal(env.Data, &list))
	assert.Empty(t, list.Messages)
}

func TestHandler_RealtimeToken(t *testing.T) {
	s := newTestServer(t)

	w, _ := s.do(t, http.MethodPost, "/api/v1/realtime/token", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	alice := s.register(t, "alice@campus.edu", "alice", "")

	// A refresh token is not an access token.
	w, _ = s.do(t, http.MethodPost, "/api/v1/realtime/token", alice.RefreshToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w, env := s.do(t, http.MethodPost, "/api/v1/realtime/token", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var cred domain.RealtimeTokenResponse
	require.NoError(t, json.Unmarshal(env.Data, &cred))
	assert.Equal(t, "alice@campus.edu", cred.ClientID)

	claims, err := jwt.NewVerifier(s.tokens.PublicKey(), "campus-live").ValidateRealtime(cred.Token)
	require.NoError(t, err)
	assert.Equal(t, "alice@campus.edu", claims.ClientID)

	// The realtime credential cannot be used against the REST api.
	w, _ = s.do(t, http.MethodGet, "/api/v1/users/me", cred.Token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_Logout(t *testing.T) {
	s := newTestServer(t)
	alice := s.register(t, "alice@campus.edu", "alice", "")

	w, _ := s.do(t, http.MethodPost, "/api/v1/auth/logout", alice.AccessToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	w, _ = s.do(t, http.MethodGet, "/api/v1/users/me", alice.AccessToken, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
