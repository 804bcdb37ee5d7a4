package license

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bizgrid/backend/internal/config"
	"github.com/bizgrid/backend/internal/database"
	"github.com/bizgrid/backend/internal/middleware"
	"github.com/bizgrid/backend/internal/models"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gateTestConfig() *config.Config {
	return &config.Config{
		JWTSecret:            "gate-test-secret",
		JWTExpireHours:       1,
		WarningThresholdDays: 90,
	}
}

// gateTestApp wires the gate in front of stub routes that echo whether the
// request got through.
func gateTestApp(cfg *config.Config) *fiber.App {
	app := fiber.New()
	app.Use(ValidationGate(cfg))

	passed := func(c *fiber.Ctx) error {
		_, hasResult := c.Locals(LocalsGuardResult).(GuardResult)
		return c.JSON(fiber.Map{"passed": true, "hasResult": hasResult})
	}

	app.Get("/healthz", passed)
	app.Post("/api/v1/auth/login", passed)
	app.Get("/api/v1/license/status", passed)
	app.Post("/api/v1/owner/:id/activate", passed)
	app.Get("/api/v1/owner/:id/activation-status", passed)
	app.Get("/api/v1/owner/:id/settings", passed)
	app.Get("/api/v1/reports/summary", passed)
	return app
}

func bearerFor(t *testing.T, owner *models.Owner, cfg *config.Config) string {
	t.Helper()
	token, err := middleware.GenerateToken(owner, cfg)
	require.NoError(t, err)
	return "Bearer " + token
}

func doGateRequest(t *testing.T, app *fiber.App, method, path, auth string) *http.Response {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	resp, err := app.Test(req)
	require.NoError(t, err)
	return resp
}

func TestGateBypassedPathsNeedNoLicense(t *testing.T) {
	database.InitTestDB()
	defer database.CleanTestDB()

	cfg := gateTestConfig()
	app := gateTestApp(cfg)

	owner := &models.Owner{Email: "bypass@example.com", Password: "x", IsActive: true}
	require.NoError(t, database.DB.Create(owner).Error)
	auth := bearerFor(t, owner, cfg)

	// Owner has no license at all; bypassed paths still pass
	paths := []struct {
		method string
		path   string
	}{
		{"GET", "/healthz"},
		{"POST", "/api/v1/auth/login"},
		{"GET", "/api/v1/license/status"},
		{"POST", fmt.Sprintf("/api/v1/owner/%d/activate", owner.ID)},
		{"GET", fmt.Sprintf("/api/v1/owner/%d/activation-status", owner.ID)},
	}

	for _, p := range paths {
		resp := doGateRequest(t, app, p.method, p.path, auth)
		assert.Equal(t, http.StatusOK, resp.StatusCode, "%s %s should bypass the gate", p.method, p.path)
	}
}

func TestGateEnforcesNonActivationOwnerRoutes(t *testing.T) {
	database.InitTestDB()
	defer database.CleanTestDB()

	cfg := gateTestConfig()
	app := gateTestApp(cfg)

	owner := &models.Owner{Email: "unlicensed@example.com", Password: "x", IsActive: true}
	require.NoError(t, database.DB.Create(owner).Error)
	auth := bearerFor(t, owner, cfg)

	resp := doGateRequest(t, app, "GET", fmt.Sprintf("/api/v1/owner/%d/settings", owner.ID), auth)
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	var body struct {
		Success bool     `json:"success"`
		Code    string   `json:"code"`
		Message string   `json:"message"`
		Errors  []string `json:"errors"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.False(t, body.Success)
	assert.Equal(t, string(CodeNoLicense), body.Code)
	assert.NotEmpty(t, body.Message)
	require.Len(t, body.Errors, 1)
	assert.Equal(t, body.Message, body.Errors[0])
}

func TestGateFailsOpenWithoutIdentity(t *testing.T) {
	database.InitTestDB()
	defer database.CleanTestDB()

	cfg := gateTestConfig()
	app := gateTestApp(cfg)

	// No Authorization header
	resp := doGateRequest(t, app, "GET", "/api/v1/reports/summary", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Garbage token
	resp = doGateRequest(t, app, "GET", "/api/v1/reports/summary", "Bearer not-a-jwt")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	// Valid signature but non-numeric subject
	claims := jwt.RegisteredClaims{
		Subject:   "not-an-owner-id",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(cfg.JWTSecret))
	require.NoError(t, err)
	resp = doGateRequest(t, app, "GET", "/api/v1/reports/summary", "Bearer "+token)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGatePassesValidLicenseWithResult(t *testing.T) {
	database.InitTestDB()
	defer database.CleanTestDB()

	cfg := gateTestConfig()
	app := gateTestApp(cfg)

	owner := &models.Owner{Email: "licensed@example.com", Password: "x", IsActive: true}
	require.NoError(t, database.DB.Create(owner).Error)

	expires := time.Now().UTC().AddDate(1, 0, 0)
	rec := &models.LicenseRecord{
		OwnerID:    owner.ID,
		BusinessID: "biz-1",
		Plan:       "pro",
		Status:     models.LicenseStatusActive,
		ExpiresOn:  &expires,
	}
	rec.IntegrityHash = ComputeIntegrityHash(rec)
	require.NoError(t, database.DB.Create(rec).Error)

	resp := doGateRequest(t, app, "GET", "/api/v1/reports/summary", bearerFor(t, owner, cfg))
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body struct {
		Passed    bool `json:"passed"`
		HasResult bool `json:"hasResult"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.True(t, body.Passed)
	assert.True(t, body.HasResult, "gate should attach its result for downstream use")
}

func TestGateRejectsExpiredLicense(t *testing.T) {
	database.InitTestDB()
	defer database.CleanTestDB()

	cfg := gateTestConfig()
	app := gateTestApp(cfg)

	owner := &models.Owner{Email: "lapsed-gate@example.com", Password: "x", IsActive: true}
	require.NoError(t, database.DB.Create(owner).Error)

	expires := time.Now().UTC().AddDate(0, 0, -1)
	rec := &models.LicenseRecord{
		OwnerID:    owner.ID,
		BusinessID: "biz-1",
		Plan:       "pro",
		Status:     models.LicenseStatusActive,
		ExpiresOn:  &expires,
	}
	require.NoError(t, database.DB.Create(rec).Error)

	resp := doGateRequest(t, app, "GET", fmt.Sprintf("/api/v1/owner/%d/settings", owner.ID), bearerFor(t, owner, cfg))
	assert.Equal(t, http.StatusPaymentRequired, resp.StatusCode)

	var body struct {
		Code string `json:"code"`
	}
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, string(CodeExpired), body.Code)
}

func TestGateUsesMostRecentActiveRecord(t *testing.T) {
	database.InitTestDB()
	defer database.CleanTestDB()

	cfg := gateTestConfig()
	app := gateTestApp(cfg)

	owner := &models.Owner{Email: "renewed@example.com", Password: "x", IsActive: true}
	require.NoError(t, database.DB.Create(owner).Error)

	// Older expired record plus a fresh valid one from a renewal
	expired := time.Now().UTC().AddDate(0, 0, -10)
	old := &models.LicenseRecord{
		OwnerID: owner.ID, BusinessID: "biz-1", Plan: "pro",
		Status: models.LicenseStatusActive, ExpiresOn: &expired,
		CreatedAt: time.Now().UTC().AddDate(-1, 0, 0),
	}
	require.NoError(t, database.DB.Create(old).Error)

	future := time.Now().UTC().AddDate(1, 0, 0)
	fresh := &models.LicenseRecord{
		OwnerID: owner.ID, BusinessID: "biz-1", Plan: "pro",
		Status: models.LicenseStatusActive, ExpiresOn: &future,
	}
	require.NoError(t, database.DB.Create(fresh).Error)

	resp := doGateRequest(t, app, "GET", fmt.Sprintf("/api/v1/owner/%d/settings", owner.ID), bearerFor(t, owner, cfg))
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
