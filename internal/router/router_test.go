package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/library-catalog/config"
	"github.com/oksasatya/library-catalog/internal/container"
	"github.com/oksasatya/library-catalog/internal/domain/entity"
	"github.com/oksasatya/library-catalog/internal/infrastructure/memory"
	"github.com/oksasatya/library-catalog/internal/interface/middleware"
	"github.com/oksasatya/library-catalog/internal/router"
	"github.com/oksasatya/library-catalog/pkg/helpers"
	"github.com/oksasatya/library-catalog/pkg/validation"
)

type envelope struct {
	Status    int             `json:"status"`
	RequestID string          `json:"request_id"`
	Success   bool            `json:"success"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
	Error     json.RawMessage `json:"error"`
}

type api struct {
	t      *testing.T
	engine *gin.Engine
	c      *container.Container
}

func testConfig() *config.Config {
	return &config.Config{
		AppName:            "library-catalog-test",
		Env:                "test",
		StorageDriver:      "memory",
		JWTAccessSecret:    "access",
		JWTRefreshSecret:   "refresh",
		AccessTTL:          15 * time.Minute,
		RefreshTTL:         time.Hour,
		CookieDomain:       "localhost",
		LoanPeriod:         14 * 24 * time.Hour,
		MaxOpenBorrows:     2,
		RabbitMQEmailQueue: "emails",
		ESBooksIndex:       "books",
	}
}

func newAPI(t *testing.T) *api {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	cfg := testConfig()
	c := container.New(cfg, helpers.NewDiscardLogger(), memory.NewStore())

	engine := gin.New()
	engine.Use(middleware.RequestIDMiddleware(), middleware.RealIP())
	reg := router.NewRegistry(engine)
	router.InitModules(reg, c)
	reg.RegisterAll()
	return &api{t: t, engine: engine, c: c}
}

func (a *api) do(method, path, token string, body any) (*httptest.ResponseRecorder, envelope) {
	a.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(a.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	a.engine.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		require.NoError(a.t, json.Unmarshal(w.Body.Bytes(), &env), w.Body.String())
	}
	return w, env
}

func (a *api) login(email, password string) string {
	a.t.Helper()
	w, env := a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": email, "password": password})
	require.Equal(a.t, http.StatusOK, w.Code, w.Body.String())
	var data struct {
		AccessToken string `json:"access_token"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &data))
	return data.AccessToken
}

func (a *api) adminToken() string {
	a.t.Helper()
	_, err := a.c.Auth.CreateAccount(context.Background(), "admin@example.com", "adminpass1", entity.RoleAdmin)
	require.NoError(a.t, err)
	return a.login("admin@example.com", "adminpass1")
}

func (a *api) registerReader(email string) (token, readerID string) {
	a.t.Helper()
	w, env := a.do(http.MethodPost, "/api/auth/register", "", map[string]string{
		"email": email, "password": "password1", "first_name": "Ann", "last_name": "Lee",
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var data struct {
		Reader struct {
			ID string `json:"id"`
		} `json:"reader"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &data))
	return a.login(email, "password1"), data.Reader.ID
}

func (a *api) createBook(token string, copies int) string {
	a.t.Helper()
	w, env := a.do(http.MethodPost, "/api/books", token, map[string]any{
		"title": "Dune", "author": "Frank Herbert", "total_copies": copies,
	})
	require.Equal(a.t, http.StatusCreated, w.Code, w.Body.String())
	var data struct {
		ID string `json:"id"`
	}
	require.NoError(a.t, json.Unmarshal(env.Data, &data))
	return data.ID
}

func decode[T any](t *testing.T, raw json.RawMessage) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(raw, &v))
	return v
}

func TestHealthAndRequestID(t *testing.T) {
	a := newAPI(t)

	w, env := a.do(http.MethodGet, "/api/healthz", "", nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, env.Success)
	assert.NotEmpty(t, env.RequestID)
	assert.Equal(t, env.RequestID, w.Header().Get(middleware.RequestIDHeader))
}

func TestProtectedRoutesNeedToken(t *testing.T) {
	a := newAPI(t)

	w, env := a.do(http.MethodGet, "/api/books", "", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.False(t, env.Success)

	w, _ = a.do(http.MethodGet, "/api/books", "not-a-jwt", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestReaderCannotManageCatalog(t *testing.T) {
	a := newAPI(t)
	token, _ := a.registerReader("ann@example.com")

	w, _ := a.do(http.MethodPost, "/api/books", token, map[string]any{"title": "X", "author": "Y"})
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, _ = a.do(http.MethodGet, "/api/readers", token, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestBookValidationAndNotFound(t *testing.T) {
	a := newAPI(t)
	admin := a.adminToken()

	w, env := a.do(http.MethodPost, "/api/books", admin, map[string]any{"title": "", "author": "Y"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	details := decode[map[string]string](t, env.Error)
	assert.Contains(t, details, "title")

	w, _ = a.do(http.MethodPost, "/api/books", admin, map[string]any{"title": "X", "author": "Y", "isbn": "123"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w, _ = a.do(http.MethodGet, "/api/books/does-not-exist", admin, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBorrowFlowOverHTTP(t *testing.T) {
	a := newAPI(t)
	admin := a.adminToken()
	bookID := a.createBook(admin, 1)
	annToken, annID := a.registerReader("ann@example.com")
	bobToken, bobID := a.registerReader("bob@example.com")

	// reader borrows for themselves without naming a reader
	w, env := a.do(http.MethodPost, "/api/borrows", annToken, map[string]any{"book_id": bookID})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	borrow := decode[struct {
		ID       string `json:"id"`
		ReaderID string `json:"reader_id"`
		Status   string `json:"status"`
	}](t, env.Data)
	assert.Equal(t, annID, borrow.ReaderID)
	assert.Equal(t, "open", borrow.Status)

	// last copy is gone
	w, _ = a.do(http.MethodPost, "/api/borrows", bobToken, map[string]any{"book_id": bookID})
	assert.Equal(t, http.StatusConflict, w.Code)

	// bob may not act for ann or see her borrows
	w, _ = a.do(http.MethodPost, "/api/borrows", bobToken, map[string]any{"book_id": bookID, "reader_id": annID})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = a.do(http.MethodPost, "/api/borrows/"+borrow.ID+"/return", bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
	w, _ = a.do(http.MethodGet, "/api/readers/"+annID+"/borrows/open", bobToken, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)

	w, env = a.do(http.MethodGet, "/api/me/borrows", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, env.Data), 1)

	w, env = a.do(http.MethodGet, "/api/books/"+bookID, annToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.EqualValues(t, 0, decode[map[string]any](t, env.Data)["available_copies"])

	// return, then a second return conflicts
	w, _ = a.do(http.MethodPost, "/api/borrows/"+borrow.ID+"/return", annToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w, _ = a.do(http.MethodPost, "/api/borrows/"+borrow.ID+"/return", annToken, nil)
	assert.Equal(t, http.StatusConflict, w.Code)

	// admin borrows on behalf of bob
	w, _ = a.do(http.MethodPost, "/api/borrows", admin, map[string]any{"book_id": bookID})
	assert.Equal(t, http.StatusBadRequest, w.Code, "admin must name the reader")
	w, _ = a.do(http.MethodPost, "/api/borrows", admin, map[string]any{"book_id": bookID, "reader_id": bobID})
	assert.Equal(t, http.StatusCreated, w.Code)

	w, env = a.do(http.MethodGet, "/api/borrows?reader_id="+annID, admin, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode[[]map[string]any](t, env.Data), 1)

	// book with history cannot be deleted
	w, _ = a.do(http.MethodDelete, "/api/books/"+bookID, admin, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestBorrowPolicyLimitIsForbidden(t *testing.T) {
	a := newAPI(t)
	admin := a.adminToken()
	bookID := a.createBook(admin, 5)
	token, _ := a.registerReader("ann@example.com")

	for i := 0; i < 2; i++ {
		w, _ := a.do(http.MethodPost, "/api/borrows", token, map[string]any{"book_id": bookID})
		require.Equal(t, http.StatusCreated, w.Code)
	}
	w, env := a.do(http.MethodPost, "/api/borrows", token, map[string]any{"book_id": bookID})
	assert.Equal(t, http.StatusForbidden, w.Code)
	assert.Equal(t, "policy_violation", decode[map[string]string](t, env.Error)["code"])
}

func TestNotificationsDisabledWithoutQueue(t *testing.T) {
	a := newAPI(t)
	admin := a.adminToken()

	w, env := a.do(http.MethodPost, "/api/borrows/overdue/notify", admin, nil)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, true, decode[map[string]any](t, env.Data)["disabled"])
}

func TestLogoutAndMe(t *testing.T) {
	a := newAPI(t)
	token, readerID := a.registerReader("ann@example.com")

	w, env := a.do(http.MethodGet, "/api/auth/me", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	me := decode[struct {
		Account struct {
			Email string `json:"email"`
			Role  string `json:"role"`
		} `json:"account"`
		Reader struct {
			ID string `json:"id"`
		} `json:"reader"`
	}](t, env.Data)
	assert.Equal(t, "ann@example.com", me.Account.Email)
	assert.Equal(t, "reader", me.Account.Role)
	assert.Equal(t, readerID, me.Reader.ID)

	w, _ = a.do(http.MethodPost, "/api/auth/logout", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w, _ = a.do(http.MethodPost, "/api/auth/login", "", map[string]string{"email": "ann@example.com", "password": "wrongpass1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestUnknownRouteAndMethod(t *testing.T) {
	a := newAPI(t)

	w, env := a.do(http.MethodGet, "/api/nope", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.False(t, env.Success)
	assert.Equal(t, "route not found", env.Message)

	w, _ = a.do(http.MethodDelete, "/api/healthz", "", nil)
	assert.Equal(t, http.StatusMethodNotAllowed, w.Code)
}

func TestRegisterAllIsIdempotent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	c := container.New(testConfig(), helpers.NewDiscardLogger(), memory.NewStore())
	reg := router.NewRegistry(gin.New())
	router.InitModules(reg, c)

	first := reg.RegisterAll()
	second := reg.RegisterAll()
	assert.NotEmpty(t, first)
	assert.Len(t, second, len(first))
	for _, ri := range first {
		assert.Contains(t, ri.Path, router.APIPrefix+"/")
	}
}

func TestMessageReader(t *testing.T) {
	a := newAPI(t)
	admin := a.adminToken()
	_, withEmail := a.registerReader("ann@example.com")

	w, env := a.do(http.MethodPost, "/api/readers", admin, map[string]any{"first_name": "Bo", "last_name": "Ray"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	noEmail := decode[map[string]any](t, env.Data)["id"].(string)

	msg := map[string]string{"subject": "Hello", "text": "Your card is ready."}
	w, _ = a.do(http.MethodPost, "/api/readers/"+noEmail+"/message", admin, msg)
	assert.Equal(t, http.StatusConflict, w.Code)

	w, env = a.do(http.MethodPost, "/api/readers/"+withEmail+"/message", admin, msg)
	assert.Equal(t, http.StatusAccepted, w.Code)
	assert.Equal(t, true, decode[map[string]any](t, env.Data)["disabled"])

	w, _ = a.do(http.MethodPost, "/api/readers/"+withEmail+"/message", admin, map[string]string{"subject": "Hello"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
