package app

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"
	"time"

	"spendlog/expense-api/db"
	"spendlog/expense-api/internal"
	"spendlog/expense-api/internal/model"
	"spendlog/expense-api/internal/reset"
	"spendlog/expense-api/pkg/security"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type archived struct {
	keys []string
}

func (a *archived) Put(_ context.Context, key string, _ []byte) (string, error) {
	a.keys = append(a.keys, key)
	return key, nil
}

type testApp struct {
	t      *testing.T
	router *gin.Engine
	deps   *internal.Deps
	now    time.Time
	codes  map[string]string
	online bool
	store  *archived
}

func newTestApp(t *testing.T) *testApp {
	t.Helper()

	gdb, err := db.New("sqlite", ":memory:")
	require.NoError(t, err)

	ta := &testApp{
		t:      t,
		now:    time.Date(2025, 3, 15, 9, 0, 0, 0, time.UTC),
		codes:  map[string]string{},
		online: true,
		store:  &archived{},
	}

	argon := &security.ArgonHash{Memory: 1024, Iterations: 1, Parallelism: 1, SaltLength: 16, KeyLength: 32}
	secret := []byte("test-secret")

	markerStore := reset.NewMemoryMarkerStore()
	t.Cleanup(func() { markerStore.Close() })

	notifier := reset.NotifierFunc(func(_ context.Context, email, code string) bool {
		if !ta.online {
			return false
		}
		ta.codes[email] = code
		return true
	})

	ta.deps = &internal.Deps{
		DB:     gdb,
		Argon:  argon,
		Secret: secret,
		Reset: reset.New(reset.NewGormStore(gdb), notifier, argon,
			reset.NewMarkers(secret, 10*time.Minute, markerStore),
			reset.Options{Now: func() time.Time { return ta.now }}),
		Archive: ta.store,
		AuthTTL: time.Hour,
		Now:     func() time.Time { return ta.now },
	}

	ta.router = NewRouter(ta.deps, RouterOptions{
		CORSOrigins: []string{"http://localhost:5173"},
		BodyLimit:   1 << 20,
	})

	return ta
}

func (ta *testApp) do(method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	ta.t.Helper()

	var r *bytes.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(ta.t, err)
		r = bytes.NewReader(b)
	} else {
		r = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	ta.router.ServeHTTP(w, req)

	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var m map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &m), w.Body.String())
	return m
}

func cookie(w *httptest.ResponseRecorder, name string) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// login registers email and returns its auth cookie.
func (ta *testApp) login(email, password string) *http.Cookie {
	ta.t.Helper()

	w := ta.do(http.MethodPost, "/api/users", gin.H{"email": email, "password": password})
	require.Equal(ta.t, http.StatusCreated, w.Code, w.Body.String())

	w = ta.do(http.MethodPost, "/api/users/login", gin.H{"email": email, "password": password})
	require.Equal(ta.t, http.StatusOK, w.Code, w.Body.String())

	c := cookie(w, "auth_token")
	require.NotNil(ta.t, c)
	return c
}

func TestHeartbeat(t *testing.T) {
	ta := newTestApp(t)

	w := ta.do(http.MethodHead, "/api/heartbeat", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestUserLifecycle(t *testing.T) {
	ta := newTestApp(t)
	auth := ta.login(" Alice@Example.com ", "secret1")

	w := ta.do(http.MethodGet, "/api/validate", nil, auth)
	assert.Equal(t, http.StatusOK, w.Code)

	w = ta.do(http.MethodGet, "/api/users", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	u := decode(t, w)["user"].(map[string]any)
	assert.Equal(t, "alice@example.com", u["email"])
	assert.NotContains(t, w.Body.String(), "argon2id")

	w = ta.do(http.MethodPost, "/api/users/logout", nil, auth)
	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "", cookie(w, "auth_token").Value)

	w = ta.do(http.MethodGet, "/api/validate", nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRegisterRejects(t *testing.T) {
	ta := newTestApp(t)
	ta.login("a@x.com", "secret1")

	w := ta.do(http.MethodPost, "/api/users", gin.H{"email": "A@X.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = ta.do(http.MethodPost, "/api/users", gin.H{"email": "nope", "password": "secret1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ta.do(http.MethodPost, "/api/users", gin.H{"email": "b@x.com", "password": "short"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestLoginWrongPassword(t *testing.T) {
	ta := newTestApp(t)
	ta.login("a@x.com", "secret1")

	w := ta.do(http.MethodPost, "/api/users/login", gin.H{"email": "a@x.com", "password": "secret2"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = ta.do(http.MethodPost, "/api/users/login", gin.H{"email": "ghost@x.com", "password": "secret1"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestResetFlow(t *testing.T) {
	ta := newTestApp(t)
	ta.login("a@x.com", "oldpass")

	w := ta.do(http.MethodPost, "/api/reset/request", gin.H{"email": "A@x.com"})
	require.Equal(t, http.StatusOK, w.Code)
	body := decode(t, w)
	assert.Equal(t, "verify", body["next"])
	assert.Equal(t, true, body["delivered"])
	assert.NotEmpty(t, body["requestID"])

	code := ta.codes["a@x.com"]
	require.Len(t, code, 6)

	wrong := "000000"
	if code == wrong {
		wrong = "111111"
	}

	w = ta.do(http.MethodPost, "/api/reset/verify", gin.H{"email": "a@x.com", "code": wrong})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "verify", decode(t, w)["next"])

	// Surrounding whitespace is forgiven
	w = ta.do(http.MethodPost, "/api/reset/verify", gin.H{"email": "a@x.com", "code": " " + code + " "})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "change", decode(t, w)["next"])

	marker := cookie(w, "reset_token")
	require.NotNil(t, marker)
	assert.True(t, marker.HttpOnly)
	// Lifetime follows the app clock
	assert.Equal(t, 600, marker.MaxAge)

	w = ta.do(http.MethodPost, "/api/reset/password", gin.H{"password": "short"}, marker)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "change", decode(t, w)["next"])

	w = ta.do(http.MethodPost, "/api/reset/password", gin.H{"password": "newpass1"}, marker)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Equal(t, "login", decode(t, w)["next"])
	assert.Equal(t, "", cookie(w, "reset_token").Value)

	w = ta.do(http.MethodPost, "/api/users/login", gin.H{"email": "a@x.com", "password": "newpass1"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = ta.do(http.MethodPost, "/api/users/login", gin.H{"email": "a@x.com", "password": "oldpass"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	// The marker is spent
	w = ta.do(http.MethodPost, "/api/reset/password", gin.H{"password": "another1"}, marker)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "request", decode(t, w)["next"])

	// So are the codes
	w = ta.do(http.MethodPost, "/api/reset/verify", gin.H{"email": "a@x.com", "code": code})
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "request", decode(t, w)["next"])
}

func TestResetExpiredCode(t *testing.T) {
	ta := newTestApp(t)

	w := ta.do(http.MethodPost, "/api/reset/request", gin.H{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, w.Code)

	ta.now = ta.now.Add(10 * time.Minute)

	w = ta.do(http.MethodPost, "/api/reset/verify", gin.H{"email": "a@x.com", "code": ta.codes["a@x.com"]})
	assert.Equal(t, http.StatusGone, w.Code)
	assert.Equal(t, "request", decode(t, w)["next"])
}

func TestResetUnknownUser(t *testing.T) {
	ta := newTestApp(t)

	// Unknown addresses get a code too, the account check happens at the end
	w := ta.do(http.MethodPost, "/api/reset/request", gin.H{"email": "ghost@x.com"})
	require.Equal(t, http.StatusOK, w.Code)

	w = ta.do(http.MethodPost, "/api/reset/verify", gin.H{"email": "ghost@x.com", "code": ta.codes["ghost@x.com"]})
	require.Equal(t, http.StatusOK, w.Code)

	w = ta.do(http.MethodPost, "/api/reset/password", gin.H{"password": "newpass1"}, cookie(w, "reset_token"))
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "register", decode(t, w)["next"])
}

func TestResetUndelivered(t *testing.T) {
	ta := newTestApp(t)
	ta.online = false

	w := ta.do(http.MethodPost, "/api/reset/request", gin.H{"email": "a@x.com"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, false, decode(t, w)["delivered"])
}

func TestResetValidation(t *testing.T) {
	ta := newTestApp(t)

	w := ta.do(http.MethodPost, "/api/reset/request", gin.H{"email": "  "})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "request", decode(t, w)["next"])

	w = ta.do(http.MethodPost, "/api/reset/verify", gin.H{"email": "a@x.com", "code": ""})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Equal(t, "verify", decode(t, w)["next"])

	// No marker beats a bad password
	w = ta.do(http.MethodPost, "/api/reset/password", gin.H{"password": "x"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "request", decode(t, w)["next"])

	// and a body that isn't JSON at all
	req := httptest.NewRequest(http.MethodPost, "/api/reset/password", strings.NewReader(`{"password":`))
	req.Header.Set("Content-Type", "application/json")
	w = httptest.NewRecorder()
	ta.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Equal(t, "request", decode(t, w)["next"])
}

func TestExpenseOptions(t *testing.T) {
	ta := newTestApp(t)

	w := ta.do(http.MethodGet, "/api/expenses/options", nil)
	require.Equal(t, http.StatusOK, w.Code)

	body := decode(t, w)
	assert.Len(t, body["categories"], 24)
	assert.Len(t, body["countries"], 10)
	assert.Equal(t, "INR", body["defaultCurrency"])
}

func TestExpenses(t *testing.T) {
	ta := newTestApp(t)
	alice := ta.login("alice@x.com", "secret1")
	bob := ta.login("bob@x.com", "secret1")

	bad := []gin.H{
		{"amount": "abc", "category": "Food", "country": "India"},
		{"amount": "-1", "category": "Food", "country": "India"},
		{"amount": "5", "category": "Yachts", "country": "India"},
		{"amount": "5", "category": "Food", "country": "Atlantis"},
		{"amount": "5", "category": "Food", "country": "India", "date": "15/03/2025"},
		{"category": "Food", "country": "India"},
	}
	for _, b := range bad {
		w := ta.do(http.MethodPost, "/api/expenses", b, alice)
		assert.Equal(t, http.StatusBadRequest, w.Code, "%v", b)
	}

	w := ta.do(http.MethodPost, "/api/expenses", gin.H{"amount": 12.345, "category": "Food", "country": "Japan", "date": "2025-03-01"}, alice)
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	created := decode(t, w)
	assert.Equal(t, "JPY", created["currency"])
	assert.Equal(t, "12.35", created["amount"])

	w = ta.do(http.MethodPost, "/api/expenses", gin.H{"amount": "100", "category": "Rent", "country": "India", "date": "2025-01-10"}, alice)
	require.Equal(t, http.StatusCreated, w.Code)

	w = ta.do(http.MethodPost, "/api/expenses", gin.H{"amount": "7", "category": "Travel", "country": "India", "date": "2024-12-31"}, alice)
	require.Equal(t, http.StatusCreated, w.Code)

	w = ta.do(http.MethodGet, "/api/expenses", nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, decode(t, w)["expenses"], 3)

	w = ta.do(http.MethodGet, "/api/dashboard", nil, alice)
	require.Equal(t, http.StatusOK, w.Code)
	totals := decode(t, w)["totals"].(map[string]any)
	assert.Equal(t, "112.35", totals["year"])
	assert.Equal(t, "12.35", totals["month"])

	id := int(created["id"].(float64))
	path := "/api/expenses/" + strconv.Itoa(id)

	w = ta.do(http.MethodDelete, path, nil, bob)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = ta.do(http.MethodDelete, path, nil, alice)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = ta.do(http.MethodDelete, "/api/expenses/abc", nil, alice)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = ta.do(http.MethodGet, "/api/expenses", nil, bob)
	assert.Len(t, decode(t, w)["expenses"], 0)
}

func TestExpenseDefaultDate(t *testing.T) {
	ta := newTestApp(t)
	auth := ta.login("a@x.com", "secret1")

	w := ta.do(http.MethodPost, "/api/expenses", gin.H{"amount": "1", "category": "Food", "country": "India"}, auth)
	require.Equal(t, http.StatusCreated, w.Code)

	var e model.Expense
	require.NoError(t, ta.deps.DB.First(&e).Error)
	assert.Equal(t, "2025-03-15", e.Date.UTC().Format("2006-01-02"))
	assert.Equal(t, "INR", e.Currency)
}

func TestExport(t *testing.T) {
	ta := newTestApp(t)
	auth := ta.login("a@x.com", "secret1")

	w := ta.do(http.MethodPost, "/api/expenses", gin.H{"amount": "9.5", "category": "Food", "country": "India", "date": "2025-03-02", "description": "chai"}, auth)
	require.Equal(t, http.StatusCreated, w.Code)

	w = ta.do(http.MethodGet, "/api/expenses/export?format=csv", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "expenses.csv")

	records, err := csv.NewReader(w.Body).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, []string{"2025-03-02", "India", "Food", "INR", "9.50", "chai"}, records[1])

	w = ta.do(http.MethodGet, "/api/expenses/export", nil, auth)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))

	w = ta.do(http.MethodGet, "/api/expenses/export?format=xlsx", nil, auth)
	assert.Equal(t, http.StatusBadRequest, w.Code)

	require.Len(t, ta.store.keys, 2)
	assert.True(t, strings.HasSuffix(ta.store.keys[0], "/20250315T090000Z.csv"))
	assert.True(t, strings.HasSuffix(ta.store.keys[1], "/20250315T090000Z.pdf"))
}

func TestBodyTooLarge(t *testing.T) {
	ta := newTestApp(t)

	w := ta.do(http.MethodPost, "/api/reset/request", gin.H{"email": strings.Repeat("a", 2<<20)})
	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
}
