package handler_test

import (
	"bytes"
	"campusconnect/backend/internal/api/handler"
	"campusconnect/backend/internal/auth"
	"campusconnect/backend/internal/chat"
	"campusconnect/backend/internal/chathub"
	"campusconnect/backend/internal/config"
	"campusconnect/backend/internal/logging"
	"campusconnect/backend/internal/models"
	"campusconnect/backend/internal/storage"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type testApp struct {
	router  *gin.Engine
	store   *storage.Service
	tokens  *auth.TokenManager
	gateway *chathub.Gateway
}

func setupTestApp(t *testing.T) *testApp {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, storage.Migrate(db))

	log := logging.Discard()
	store := storage.NewStorageService(db, nil, log)
	chatSvc := chat.NewService(store, config.DefaultChatLimits(), log)
	tokens := auth.NewTokenManager("test-secret", "campusconnect", time.Hour)
	gw := chathub.NewGateway(tokens, chatSvc, chathub.NewRegistry(log), config.DefaultGatewayConfig(), log)

	router := gin.New()
	handler.NewHandler(chatSvc, gw, tokens, []string{"*"}, log).RegisterRoutes(router)

	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = gw.Shutdown(ctx)
	})
	return &testApp{router: router, store: store, tokens: tokens, gateway: gw}
}

func (a *testApp) user(t *testing.T, name string) (string, string) {
	t.Helper()
	u := &models.User{Email: strings.ToLower(name) + "@campus.edu", Name: name}
	require.NoError(t, a.store.SaveUser(context.Background(), u))
	token, err := a.tokens.Generate(u.ID, u.Email)
	require.NoError(t, err)
	return u.ID, token
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
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
	a.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

func TestHealth(t *testing.T) {
	app := setupTestApp(t)
	w := app.do(t, http.MethodGet, "/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestChatRoutes_RequireToken(t *testing.T) {
	app := setupTestApp(t)
	w := app.do(t, http.MethodGet, "/api/chat/groups", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestGroupLifecycle(t *testing.T) {
	app := setupTestApp(t)
	_, aliceToken := app.user(t, "Alice")
	bob, bobToken := app.user(t, "Bob")

	w := app.do(t, http.MethodPost, "/api/chat/groups", aliceToken, map[string]any{"name": "Study"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode[chat.GroupDetail](t, w)
	assert.Equal(t, "Study", created.Name)
	assert.Equal(t, models.GroupRoleAdmin, created.Role)
	require.Len(t, created.Members, 1)
	groupPath := "/api/chat/groups/" + created.ID

	w = app.do(t, http.MethodGet, groupPath, bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "permission_denied", decode[map[string]string](t, w)["code"])

	w = app.do(t, http.MethodPost, groupPath+"/messages", bobToken, map[string]any{"content": "hi"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodPost, groupPath+"/members", bobToken, map[string]any{"user_ids": []string{bob}})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w = app.do(t, http.MethodPost, groupPath+"/members", aliceToken, map[string]any{"user_ids": []string{bob}})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, []string{bob}, decode[map[string][]string](t, w)["added"])

	w = app.do(t, http.MethodPost, groupPath+"/members", aliceToken, map[string]any{"user_ids": []string{bob}})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, decode[map[string][]string](t, w)["added"])

	w = app.do(t, http.MethodPost, groupPath+"/messages", bobToken, map[string]any{"content": "hello"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	sent := decode[chat.MessageView](t, w)
	assert.Equal(t, "Bob", sent.UserName)

	w = app.do(t, http.MethodGet, groupPath+"/messages?limit=1", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	history := decode[[]chat.MessageView](t, w)
	require.Len(t, history, 1)
	assert.Equal(t, "hello", history[0].Content)

	w = app.do(t, http.MethodGet, "/api/chat/groups", bobToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	groups := decode[[]chat.GroupSummary](t, w)
	require.Len(t, groups, 1)
	assert.Equal(t, int64(2), groups[0].MemberCount)
	require.NotNil(t, groups[0].LastMessage)
	assert.Equal(t, "hello", *groups[0].LastMessage)

	w = app.do(t, http.MethodPut, groupPath, aliceToken, map[string]any{"name": "Exam prep"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "Exam prep", decode[models.ChatGroup](t, w).Name)

	w = app.do(t, http.MethodDelete, groupPath+"/leave", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	left := decode[chat.LeaveResult](t, w)
	assert.Equal(t, bob, left.PromotedUserID)

	w = app.do(t, http.MethodDelete, groupPath+"/leave", aliceToken, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetMessages_QueryValidation(t *testing.T) {
	app := setupTestApp(t)
	_, token := app.user(t, "Alice")
	w := app.do(t, http.MethodPost, "/api/chat/groups", token, map[string]any{"name": "Study"})
	require.Equal(t, http.StatusCreated, w.Code)
	groupPath := "/api/chat/groups/" + decode[chat.GroupDetail](t, w).ID

	for _, query := range []string{"?limit=0", "?limit=abc", "?before=yesterday"} {
		w = app.do(t, http.MethodGet, groupPath+"/messages"+query, token, nil)
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
		assert.Equal(t, "validation_error", decode[map[string]string](t, w)["code"])
	}

	w = app.do(t, http.MethodGet, groupPath+"/messages?limit=500&before="+time.Now().UTC().Format(time.RFC3339), token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestCreateGroup_Validation(t *testing.T) {
	app := setupTestApp(t)
	_, token := app.user(t, "Alice")

	w := app.do(t, http.MethodPost, "/api/chat/groups", token, map[string]any{"name": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = app.do(t, http.MethodGet, "/api/chat/groups/does-not-exist", token, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestPresence(t *testing.T) {
	app := setupTestApp(t)
	_, aliceToken := app.user(t, "Alice")
	_, bobToken := app.user(t, "Bob")
	w := app.do(t, http.MethodPost, "/api/chat/groups", aliceToken, map[string]any{"name": "Study"})
	require.Equal(t, http.StatusCreated, w.Code)
	groupID := decode[chat.GroupDetail](t, w).ID

	w = app.do(t, http.MethodGet, "/api/chat/groups/"+groupID+"/presence", aliceToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"connection_count":0`)

	w = app.do(t, http.MethodGet, "/api/chat/groups/"+groupID+"/presence", bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRESTMessageReachesLiveConnection(t *testing.T) {
	app := setupTestApp(t)
	_, aliceToken := app.user(t, "Alice")
	w := app.do(t, http.MethodPost, "/api/chat/groups", aliceToken, map[string]any{"name": "Study"})
	require.Equal(t, http.StatusCreated, w.Code)
	groupID := decode[chat.GroupDetail](t, w).ID

	srv := httptest.NewServer(app.router)
	t.Cleanup(srv.Close)

	wsURL := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/" + groupID + "?token=" + aliceToken
	conn, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	require.Eventually(t, func() bool {
		return app.gateway.Registry().ConnectionCount(groupID) == 1
	}, 2*time.Second, 10*time.Millisecond)

	w = app.do(t, http.MethodPost, "/api/chat/groups/"+groupID+"/messages", aliceToken, map[string]any{"content": "via rest"})
	require.Equal(t, http.StatusCreated, w.Code)

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var evt models.Event
	require.NoError(t, conn.ReadJSON(&evt))
	assert.Equal(t, models.EventMessage, evt.Type)
	assert.Equal(t, "via rest", evt.Content)
}

func TestOriginPolicy(t *testing.T) {
	policy := handler.NewOriginPolicy([]string{"https://Campus.example.edu", "not a url"}, logging.Discard())

	check := func(origin string) bool {
		r := httptest.NewRequest(http.MethodGet, "/ws/x", nil)
		if origin != "" {
			r.Header.Set("Origin", origin)
		}
		return policy.Check(r)
	}

	assert.True(t, check(""))
	assert.True(t, check("https://campus.example.edu"))
	assert.False(t, check("https://evil.example.com"))
	assert.False(t, check("::bad"))

	all := handler.NewOriginPolicy([]string{"*"}, logging.Discard())
	r := httptest.NewRequest(http.MethodGet, "/ws/x", nil)
	r.Header.Set("Origin", "https://anything.example")
	assert.True(t, all.Check(r))
}
