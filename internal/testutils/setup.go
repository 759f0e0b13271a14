package testutils

import (
	"bytes"
	"encoding/json"
	"io"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Kyz7/console/internal/apiclient"
	"github.com/Kyz7/console/internal/audit"
	"github.com/Kyz7/console/internal/auth"
	"github.com/Kyz7/console/internal/database"
	"github.com/Kyz7/console/internal/server"
	"github.com/Kyz7/console/internal/session"
	"github.com/glebarez/sqlite"
	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const TestSecret = "console_test_secret_with_at_least_32_characters"

func TestDB(t *testing.T) *gorm.DB {
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	require.NoError(t, err, "Failed to create test database")

	// Every pooled connection to :memory: would see its own empty database.
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	err = database.Migrate(db)
	require.NoError(t, err, "Failed to migrate test database")

	return db
}

type TestApp struct {
	App      *fiber.App
	Backend  *FakeBackend
	DB       *gorm.DB
	Audit    *audit.Store
	Sessions *session.Manager
	Verifier *auth.Verifier
}

// SetupTestApp wires the console against a fake backend. Debounce is kept
// short so filter tests settle quickly.
func SetupTestApp(t *testing.T) *TestApp {
	backend := NewFakeBackend(t)
	db := TestDB(t)

	client := apiclient.New(apiclient.Options{BaseURL: backend.URL(), Timeout: 5 * time.Second}, nil)
	sessions := session.NewManager(client, 20*time.Millisecond, nil)
	t.Cleanup(sessions.Close)

	store := audit.NewStore(db)
	verifier := auth.NewVerifier(TestSecret)

	app := server.New(server.Deps{
		Verifier:      verifier,
		Sessions:      sessions,
		Deleter:       client,
		Audit:         store,
		SettleTimeout: 5 * time.Second,
	})

	return &TestApp{
		App:      app,
		Backend:  backend,
		DB:       db,
		Audit:    store,
		Sessions: sessions,
		Verifier: verifier,
	}
}

func (a *TestApp) Token(t *testing.T, subject, roleName string) string {
	token, err := a.Verifier.Sign(subject, roleName, time.Hour)
	require.NoError(t, err, "Failed to generate test token")
	return token
}

func MakeRequest(app *fiber.App, method, url string, body interface{}, token string) (*httptest.ResponseRecorder, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, _ := json.Marshal(body)
		bodyReader = bytes.NewReader(jsonBody)
	}

	req := httptest.NewRequest(method, url, bodyReader)
	req.Header.Set("Content-Type", "application/json")

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()

	resp, err := app.Test(req, -1)
	if err != nil {
		return rec, err
	}

	rec.Code = resp.StatusCode

	io.Copy(rec.Body, resp.Body)
	resp.Body.Close()

	return rec, nil
}

func ParseResponse(t *testing.T, resp *httptest.ResponseRecorder, v interface{}) {
	if resp.Body.Len() == 0 {
		t.Log("Warning: Response body is empty")
		return
	}

	err := json.NewDecoder(bytes.NewReader(resp.Body.Bytes())).Decode(v)
	if err != nil && err != io.EOF {
		t.Logf("Response body: %s", resp.Body.String())
		assert.NoError(t, err, "Failed to parse response")
	}
}

type StandardResponse struct {
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   *ErrorDetail    `json:"error"`
	Meta    *Meta           `json:"meta"`
}

type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details"`
}

type Meta struct {
	Page       int `json:"page"`
	Limit      int `json:"limit"`
	Total      int `json:"total"`
	TotalPages int `json:"total_pages"`
}

// ParseData decodes the envelope and then its data field into v.
func ParseData(t *testing.T, resp *httptest.ResponseRecorder, v interface{}) StandardResponse {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	if v != nil && len(result.Data) > 0 {
		require.NoError(t, json.Unmarshal(result.Data, v), "Failed to parse data")
	}
	return result
}

func AssertSuccess(t *testing.T, resp *httptest.ResponseRecorder) {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.True(t, result.Success, "Expected success response")
	assert.Empty(t, result.Error, "Expected no error")
}

func AssertError(t *testing.T, resp *httptest.ResponseRecorder, expectedCode string) {
	var result StandardResponse
	ParseResponse(t, resp, &result)
	assert.False(t, result.Success, "Expected error response")
	if assert.NotNil(t, result.Error, "Expected error object") {
		assert.Equal(t, expectedCode, result.Error.Code, "Error code mismatch")
	}
}
