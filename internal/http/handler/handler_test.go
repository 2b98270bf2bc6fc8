package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"marketapi/internal/apperr"
	"marketapi/internal/auth"
	"marketapi/internal/cache"
	"marketapi/internal/geo"
	"marketapi/internal/http/middleware"
	"marketapi/internal/model"
	"marketapi/internal/service"
	serviceMocks "marketapi/internal/service/mocks"
)

// stubSession trusts X-Test-User / X-Test-Role instead of a cookie.
func stubSession(c *fiber.Ctx) error {
	user := c.Get("X-Test-User")
	if user == "" {
		return apperr.Auth("auth.authenticate", "missing/invalid token")
	}
	id := auth.Identity{Subject: user, Role: model.Role(c.Get("X-Test-Role")), Token: "tok-" + user}
	c.Locals(auth.IdentityLocalKey, id)
	c.SetUserContext(auth.WithIdentity(c.UserContext(), id))
	return c.Next()
}

type fakeReindexer struct {
	triggerErr error
	cancelErr  error
}

func (f *fakeReindexer) Trigger(context.Context) (string, error) {
	if f.triggerErr != nil {
		return "", f.triggerErr
	}
	return "run-1", nil
}

func (f *fakeReindexer) Status(context.Context) (*model.SyncJob, error) {
	return &model.SyncJob{Status: model.SyncRunning, RunID: "run-1", SuccessCount: 3}, nil
}

func (f *fakeReindexer) Cancel() (string, error) {
	if f.cancelErr != nil {
		return "", f.cancelErr
	}
	return "run-1", nil
}

func newApp(h *Handler) *fiber.App {
	if h.Session == nil {
		h.Session = stubSession
	}
	if h.Cookie.Name == "" {
		h.Cookie = auth.CookieOptions{Name: "session_token"}
	}
	app := fiber.New(fiber.Config{ErrorHandler: ErrorHandler(zerolog.Nop())})
	app.Use(middleware.RequestID())
	RegisterRoutes(app, h)
	return app
}

func do(t *testing.T, app *fiber.App, method, path string, body any, role model.Role) *http.Response {
	t.Helper()
	var r io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, path, r)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if role != "" {
		req.Header.Set("X-Test-User", "user-1")
		req.Header.Set("X-Test-Role", string(role))
	}
	resp, err := app.Test(req, -1)
	require.NoError(t, err)
	return resp
}

func decodeError(t *testing.T, resp *http.Response) errorPayload {
	t.Helper()
	var body errorPayload
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	return body
}

func testShop(t *testing.T) *model.Shop {
	t.Helper()
	loc, err := geo.Encode(12.9716, 77.5946)
	require.NoError(t, err)
	return &model.Shop{ID: "shop-1", OwnerID: "user-1", Name: "Corner", Address: "1 Main St", IsOpen: true, Location: loc, CreatedAt: time.Now().UTC()}
}

func TestHealth(t *testing.T) {
	db, dbMock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	defer db.Close()

	app := newApp(&Handler{Health: []HealthCheck{
		{Name: "database", Ping: db.PingContext},
		{Name: "cache", Ping: func(context.Context) error { return errors.New("down") }, Optional: true},
	}})

	t.Run("healthy", func(t *testing.T) {
		dbMock.ExpectPing()
		resp := do(t, app, http.MethodGet, "/health", nil, "")
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Status string            `json:"status"`
			Checks map[string]string `json:"checks"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		assert.Equal(t, "healthy", body.Status)
		assert.Equal(t, "up", body.Checks["database"])
		assert.Equal(t, "down", body.Checks["cache"])
	})

	t.Run("unhealthy", func(t *testing.T) {
		dbMock.ExpectPing().WillReturnError(errors.New("db error"))
		resp := do(t, app, http.MethodGet, "/health", nil, "")
		assert.Equal(t, http.StatusServiceUnavailable, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "SERVICE_UNAVAILABLE", body.Error.Code)
		assert.NotEmpty(t, body.RequestID)
	})
}

func TestLiveness(t *testing.T) {
	resp := do(t, newApp(&Handler{}), http.MethodGet, "/healthz", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestGetShop_ExposesCoordinatesNotGeometry(t *testing.T) {
	shops := new(serviceMocks.MockShopService)
	shops.On("Get", mock.Anything, "shop-1").Return(testShop(t), cache.SourceCache, nil)
	app := newApp(&Handler{Shops: shops})

	resp := do(t, app, http.MethodGet, "/shops/shop-1", nil, model.RoleUser)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "cache", resp.Header.Get(cacheHeader))

	var body map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.NotContains(t, body, "location")
	assert.InDelta(t, 12.9716, body["latitude"], 1e-12)
	assert.InDelta(t, 77.5946, body["longitude"], 1e-12)
}

func TestShops_AuthAndRoles(t *testing.T) {
	shops := new(serviceMocks.MockShopService)
	app := newApp(&Handler{Shops: shops})

	t.Run("no session", func(t *testing.T) {
		resp := do(t, app, http.MethodGet, "/shops/shop-1", nil, "")
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "AUTH_FAILED", decodeError(t, resp).Error.Code)
	})

	t.Run("plain user cannot create", func(t *testing.T) {
		resp := do(t, app, http.MethodPost, "/shops", map[string]any{"name": "x"}, model.RoleUser)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
		assert.Equal(t, "FORBIDDEN", decodeError(t, resp).Error.Code)
	})

	shops.AssertNotCalled(t, "Create", mock.Anything, mock.Anything, mock.Anything)
}

func TestCreateShop(t *testing.T) {
	shops := new(serviceMocks.MockShopService)
	app := newApp(&Handler{Shops: shops})

	t.Run("missing coordinates", func(t *testing.T) {
		resp := do(t, app, http.MethodPost, "/shops", map[string]any{"name": "Corner", "address": "1 Main St"}, model.RoleVendor)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "VALIDATION_FAILED", body.Error.Code)
		assert.Equal(t, "latitude and longitude are required", body.Error.Message)
	})

	t.Run("created", func(t *testing.T) {
		shops.On("Create", mock.Anything, mock.MatchedBy(func(id auth.Identity) bool { return id.Subject == "user-1" }),
			service.ShopInput{Name: "Corner", Address: "1 Main St", IsOpen: true, Latitude: 12.9716, Longitude: 77.5946}).
			Return(testShop(t), nil).Once()

		resp := do(t, app, http.MethodPost, "/shops", map[string]any{
			"name": "Corner", "address": "1 Main St", "latitude": 12.9716, "longitude": 77.5946,
		}, model.RoleVendor)
		assert.Equal(t, http.StatusCreated, resp.StatusCode)

		var body shopView
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.NotNil(t, body.Latitude)
		assert.Equal(t, 12.9716, *body.Latitude)
		shops.AssertExpectations(t)
	})

	t.Run("conflict", func(t *testing.T) {
		shops.On("Create", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, apperr.Conflict("shop.create", "vendor already owns a shop")).Once()
		resp := do(t, app, http.MethodPost, "/shops", map[string]any{"name": "B", "address": "C", "latitude": 1, "longitude": 1}, model.RoleVendor)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "vendor already owns a shop", decodeError(t, resp).Error.Message)
	})

	t.Run("store failure does not leak", func(t *testing.T) {
		shops.On("Create", mock.Anything, mock.Anything, mock.Anything).
			Return(nil, apperr.Store("shop.insert", errors.New("pq: connection refused"))).Once()
		resp := do(t, app, http.MethodPost, "/shops", map[string]any{"name": "B", "address": "C", "latitude": 1, "longitude": 1}, model.RoleVendor)
		assert.Equal(t, http.StatusInternalServerError, resp.StatusCode)
		body := decodeError(t, resp)
		assert.Equal(t, "INTERNAL_ERROR", body.Error.Code)
		assert.NotContains(t, body.Error.Message, "connection refused")
	})
}

func TestUpdateShop_NoopHeader(t *testing.T) {
	shops := new(serviceMocks.MockShopService)
	addr := "1 Main St"
	shops.On("Update", mock.Anything, mock.Anything, "shop-1", service.ShopPatch{Address: &addr}).Return(testShop(t), true, nil)
	app := newApp(&Handler{Shops: shops})

	resp := do(t, app, http.MethodPatch, "/shops/shop-1", map[string]any{"address": addr}, model.RoleVendor)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "true", resp.Header.Get("X-Noop"))
}

func TestUpdateShop_NullClearsField(t *testing.T) {
	shops := new(serviceMocks.MockShopService)
	want := service.ShopPatch{Contact: service.Null[string](), Note: service.Of("closed mondays")}
	shops.On("Update", mock.Anything, mock.Anything, "shop-1", want).Return(testShop(t), false, nil)
	app := newApp(&Handler{Shops: shops})

	resp := do(t, app, http.MethodPatch, "/shops/shop-1", map[string]any{"contact": nil, "note": "closed mondays"}, model.RoleVendor)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Header.Get("X-Noop"))
	shops.AssertExpectations(t)
}

func TestNearbyShops(t *testing.T) {
	shops := new(serviceMocks.MockShopService)
	app := newApp(&Handler{Shops: shops})

	t.Run("bad latitude", func(t *testing.T) {
		resp := do(t, app, http.MethodGet, "/shops/nearby?lat=abc&lon=1", nil, model.RoleUser)
		assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	})

	t.Run("ordered hits", func(t *testing.T) {
		shops.On("Nearby", mock.Anything, mock.Anything).
			Return([]service.NearbyShop{{Shop: testShop(t), DistanceMeters: 42}}, nil).Once()
		resp := do(t, app, http.MethodGet, "/shops/nearby?lat=12.97&lon=77.59&radius_km=2", nil, model.RoleUser)
		assert.Equal(t, http.StatusOK, resp.StatusCode)

		var body struct {
			Data []map[string]any `json:"data"`
		}
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
		require.Len(t, body.Data, 1)
		assert.Equal(t, 42.0, body.Data[0]["distance_meters"])
		assert.NotContains(t, body.Data[0], "location")
	})
}

func TestLogin_SetsSessionCookie(t *testing.T) {
	accounts := new(serviceMocks.MockAccountService)
	expires := time.Now().Add(90 * time.Hour).UTC().Truncate(time.Second)
	accounts.On("Login", mock.Anything, "v@example.com", "s3cretpass", false).
		Return(&model.Session{Token: "tok", UserID: "user-1", Role: model.RoleVendor, ExpiresAt: expires}, nil).Once()
	accounts.On("Login", mock.Anything, "v@example.com", "wrong", false).
		Return(nil, apperr.Auth("account.login", "invalid email or password")).Once()
	app := newApp(&Handler{Accounts: accounts})

	resp := do(t, app, http.MethodPost, "/auth/login", map[string]any{"email": "v@example.com", "password": "s3cretpass"}, "")
	require.Equal(t, http.StatusOK, resp.StatusCode)
	cookie := resp.Header.Get("Set-Cookie")
	assert.True(t, strings.HasPrefix(cookie, "session_token=tok"))
	assert.Contains(t, strings.ToLower(cookie), "httponly")

	resp = do(t, app, http.MethodPost, "/auth/login", map[string]any{"email": "v@example.com", "password": "wrong"}, "")
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	assert.Equal(t, "AUTH_FAILED", decodeError(t, resp).Error.Code)
}

func TestLogout(t *testing.T) {
	accounts := new(serviceMocks.MockAccountService)
	accounts.On("Logout", mock.Anything, "tok-user-1").Return(nil).Once()
	app := newApp(&Handler{Accounts: accounts})

	resp := do(t, app, http.MethodPost, "/auth/logout", nil, model.RoleUser)
	assert.Equal(t, http.StatusNoContent, resp.StatusCode)
	assert.Contains(t, resp.Header.Get("Set-Cookie"), "session_token=;")
	accounts.AssertExpectations(t)
}

func TestAdminReindex(t *testing.T) {
	t.Run("accepted", func(t *testing.T) {
		app := newApp(&Handler{Reindex: &fakeReindexer{}})
		resp := do(t, app, http.MethodPost, "/admin/reindex", nil, model.RoleAdmin)
		assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	})

	t.Run("already running", func(t *testing.T) {
		app := newApp(&Handler{Reindex: &fakeReindexer{triggerErr: apperr.Conflict("reindex.trigger", "reindex already running")}})
		resp := do(t, app, http.MethodPost, "/admin/reindex", nil, model.RoleAdmin)
		assert.Equal(t, http.StatusConflict, resp.StatusCode)
		assert.Equal(t, "reindex already running", decodeError(t, resp).Error.Message)
	})

	t.Run("vendors are refused", func(t *testing.T) {
		app := newApp(&Handler{Reindex: &fakeReindexer{}})
		resp := do(t, app, http.MethodPost, "/admin/reindex", nil, model.RoleVendor)
		assert.Equal(t, http.StatusForbidden, resp.StatusCode)
	})

	t.Run("status", func(t *testing.T) {
		app := newApp(&Handler{Reindex: &fakeReindexer{}})
		resp := do(t, app, http.MethodGet, "/admin/reindex", nil, model.RoleAdmin)
		require.Equal(t, http.StatusOK, resp.StatusCode)
		var job model.SyncJob
		require.NoError(t, json.NewDecoder(resp.Body).Decode(&job))
		assert.Equal(t, model.SyncRunning, job.Status)
	})

	t.Run("cancel without a local run", func(t *testing.T) {
		app := newApp(&Handler{Reindex: &fakeReindexer{cancelErr: apperr.NotFound("reindex.cancel", "no reindex running in this process")}})
		resp := do(t, app, http.MethodDelete, "/admin/reindex", nil, model.RoleAdmin)
		assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	})
}

func TestUnknownRoute(t *testing.T) {
	resp := do(t, newApp(&Handler{}), http.MethodGet, "/nope", nil, "")
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
	assert.Equal(t, "NOT_FOUND", decodeError(t, resp).Error.Code)
}

func TestListShops_Filters(t *testing.T) {
	shops := new(serviceMocks.MockShopService)
	open := true
	shops.On("List", mock.Anything, service.ShopFilter{OwnerID: "user-9", IsOpen: &open}, 10, 0).
		Return([]*model.Shop{testShop(t)}, nil).Once()
	app := newApp(&Handler{Shops: shops})

	resp := do(t, app, http.MethodGet, "/shops?owner_id=user-9&is_open=true", nil, model.RoleUser)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	shops.AssertExpectations(t)

	resp = do(t, app, http.MethodGet, "/shops?is_open=maybe", nil, model.RoleUser)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.Equal(t, "VALIDATION_FAILED", decodeError(t, resp).Error.Code)
}

func TestStats(t *testing.T) {
	stats := new(serviceMocks.MockStatsService)
	stats.On("Platform", mock.Anything).Return(&service.PlatformStats{Shops: 2, Items: 9, Users: 5, Vendors: 1}, nil)
	app := newApp(&Handler{Stats: stats})

	resp := do(t, app, http.MethodGet, "/stats", nil, "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]int
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))
	assert.Equal(t, map[string]int{"shops_count": 2, "items_count": 9, "users_count": 5, "vendors_count": 1}, body)
}

func TestRateLimit(t *testing.T) {
	stats := new(serviceMocks.MockStatsService)
	stats.On("Platform", mock.Anything).Return(&service.PlatformStats{}, nil)
	shops := new(serviceMocks.MockShopService)
	shops.On("List", mock.Anything, service.ShopFilter{}, 10, 0).Return([]*model.Shop{}, nil)
	app := newApp(&Handler{Stats: stats, Shops: shops, RateLimit: 3})

	for i := 0; i < 3; i++ {
		resp := do(t, app, http.MethodGet, "/stats", nil, "")
		require.Equal(t, http.StatusOK, resp.StatusCode, "request %d", i+1)
	}
	resp := do(t, app, http.MethodGet, "/stats", nil, "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "RATE_LIMITED", decodeError(t, resp).Error.Code)

	// each route has its own budget
	resp = do(t, app, http.MethodGet, "/shops", nil, model.RoleUser)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	stats.AssertNumberOfCalls(t, "Platform", 3)
}
