package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lukman83/beast-antidetect/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeIdentity struct {
	lastSpec    models.LaunchSpec
	lastTarget  string
	lastCookies bool
	lastSpecs   []models.LaunchSpec
	lastPolicy  models.BulkPolicy
	err         error
}

var stockPrint = models.Fingerprint{UserAgent: "Mozilla/5.0 test", Timezone: "UTC", Language: "en-US"}

func (f *fakeIdentity) GenerateFingerprint(candidate *models.Fingerprint) models.Fingerprint {
	if candidate != nil {
		return *candidate
	}
	return stockPrint
}

func (f *fakeIdentity) QueryIP(_ context.Context, spec models.LaunchSpec) (*models.IPResult, error) {
	f.lastSpec = spec
	if f.err != nil {
		return nil, f.err
	}
	return &models.IPResult{Fingerprint: stockPrint, IP: "203.0.113.7"}, nil
}

func (f *fakeIdentity) Snapshot(_ context.Context, spec models.LaunchSpec, target string, includeCookies bool) (*models.SnapshotResult, error) {
	f.lastSpec, f.lastTarget, f.lastCookies = spec, target, includeCookies
	if f.err != nil {
		return nil, f.err
	}
	return &models.SnapshotResult{Fingerprint: stockPrint, Screenshot: "iVBORw0KGgo="}, nil
}

func (f *fakeIdentity) Cookies(_ context.Context, spec models.LaunchSpec, target string) (*models.CookiesResult, error) {
	f.lastSpec, f.lastTarget = spec, target
	if f.err != nil {
		return nil, f.err
	}
	return &models.CookiesResult{Fingerprint: stockPrint, Cookies: []models.Cookie{{Name: "sid", Value: "1"}}}, nil
}

func (f *fakeIdentity) RunBulk(_ context.Context, specs []models.LaunchSpec, policy models.BulkPolicy) (*models.BulkReport, error) {
	f.lastSpecs, f.lastPolicy = specs, policy
	if f.err != nil {
		return nil, f.err
	}
	report := &models.BulkReport{}
	for _, s := range specs {
		report.Results = append(report.Results, models.BulkEntry{ProfileID: s.ProfileID, Fingerprint: stockPrint, IP: "203.0.113.1"})
	}
	return report, nil
}

func do(t *testing.T, h http.Handler, method, path, body string, header ...string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	for i := 0; i+1 < len(header); i += 2 {
		req.Header.Set(header[i], header[i+1])
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestBannerAndHealth(t *testing.T) {
	h := NewServer(&fakeIdentity{}, "", nil).Handler()

	rec := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, Banner, rec.Body.String())

	rec = do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestFingerprint(t *testing.T) {
	h := NewServer(&fakeIdentity{}, "", nil).Handler()

	t.Run("generated on GET", func(t *testing.T) {
		rec := do(t, h, http.MethodGet, "/api/fingerprint", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, stockPrint, decode[models.Fingerprint](t, rec))
	})

	t.Run("generated on empty POST", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/fingerprint", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, stockPrint, decode[models.Fingerprint](t, rec))
	})

	t.Run("custom passes through", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/fingerprint", `{"userAgent":"custom","timezone":"Asia/Jakarta","hardwareConcurrency":6}`)
		require.Equal(t, http.StatusOK, rec.Code)
		fp := decode[models.Fingerprint](t, rec)
		assert.Equal(t, "custom", fp.UserAgent)
		assert.Equal(t, "Asia/Jakarta", fp.Timezone)
		assert.Equal(t, 6, fp.HardwareConcurrency)
	})

	t.Run("bad JSON", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/fingerprint", `{"userAgent":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.NotEmpty(t, decode[errorBody](t, rec).Error)
	})

	t.Run("wrong field type", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/fingerprint", `{"hardwareConcurrency":"many"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestLaunch(t *testing.T) {
	svc := &fakeIdentity{}
	h := NewServer(svc, "", nil).Handler()

	rec := do(t, h, http.MethodPost, "/api/launch",
		`{"profileId":"p1","proxy":{"host":"10.0.0.1","port":8080,"username":"u","password":"p"}}`)
	require.Equal(t, http.StatusOK, rec.Code)
	res := decode[models.IPResult](t, rec)
	assert.Equal(t, "203.0.113.7", res.IP)
	assert.Equal(t, "p1", svc.lastSpec.ProfileID)
	require.NotNil(t, svc.lastSpec.Proxy)
	assert.Equal(t, 8080, svc.lastSpec.Proxy.Port)
	assert.Nil(t, svc.lastSpec.Fingerprint)

	rec = do(t, h, http.MethodPost, "/api/launch", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Empty(t, svc.lastSpec.ProfileID)

	rec = do(t, h, http.MethodPost, "/api/launch", `profileId=p1`, "Content-Type", "text/plain")
	assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	assert.NotEmpty(t, decode[errorBody](t, rec).Error)
}

func TestLaunchFailure(t *testing.T) {
	svc := &fakeIdentity{err: fmt.Errorf("%w: chrome exited", models.ErrLaunch)}
	h := NewServer(svc, "", nil).Handler()

	rec := do(t, h, http.MethodPost, "/api/launch", `{}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "launch failed: chrome exited", decode[errorBody](t, rec).Error)
}

func TestSnapshotAndCookies(t *testing.T) {
	svc := &fakeIdentity{}
	h := NewServer(svc, "", nil).Handler()

	rec := do(t, h, http.MethodPost, "/api/snapshot", `{"profileId":"s","url":"https://example.com","cookies":true}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "iVBORw0KGgo=", decode[models.SnapshotResult](t, rec).Screenshot)
	assert.Equal(t, "https://example.com", svc.lastTarget)
	assert.True(t, svc.lastCookies)
	assert.Equal(t, "s", svc.lastSpec.ProfileID)

	rec = do(t, h, http.MethodPost, "/api/cookies", `{"url":"https://example.org"}`)
	require.Equal(t, http.StatusOK, rec.Code)
	cookies := decode[models.CookiesResult](t, rec)
	require.Len(t, cookies.Cookies, 1)
	assert.Equal(t, "sid", cookies.Cookies[0].Name)
	assert.Equal(t, "https://example.org", svc.lastTarget)

	for _, path := range []string{"/api/snapshot", "/api/cookies"} {
		rec = do(t, h, http.MethodPost, path, `{"profileId":"x"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code, path)
		assert.Equal(t, "url is required", decode[errorBody](t, rec).Error)
	}
}

func TestBulk(t *testing.T) {
	svc := &fakeIdentity{}
	h := NewServer(svc, "", nil).Handler()

	t.Run("object body", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/bulk", `{"profiles":[{"profileId":"a"},{"profileId":"b"}],"policy":"collect"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		res := decode[bulkResponse](t, rec)
		assert.Equal(t, 2, res.Completed)
		assert.Equal(t, models.BulkCollect, svc.lastPolicy)
		assert.Equal(t, "a", res.Results[0].ProfileID)
		assert.Equal(t, "b", res.Results[1].ProfileID)
	})

	t.Run("bare array", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/bulk", `[{"profileId":"c"}]`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, 1, decode[bulkResponse](t, rec).Completed)
		assert.Equal(t, models.BulkPolicy(""), svc.lastPolicy)
	})

	t.Run("empty body", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/bulk", "")
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("unknown policy", func(t *testing.T) {
		rec := do(t, h, http.MethodPost, "/api/bulk", `{"profiles":[],"policy":"retry"}`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, decode[errorBody](t, rec).Error, "retry")
	})
}

func TestBulkAbortReportsCompleted(t *testing.T) {
	svc := &fakeIdentity{err: &models.BulkAbortError{Index: 2, ProfileID: "c", Completed: 2, Err: models.ErrNavigation}}
	h := NewServer(svc, "", nil).Handler()

	rec := do(t, h, http.MethodPost, "/api/bulk", `{"profiles":[{},{},{}]}`)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decode[errorBody](t, rec)
	require.NotNil(t, body.Completed)
	assert.Equal(t, 2, *body.Completed)
	assert.Contains(t, body.Error, "after 2 completed")
}

func TestBearerAuth(t *testing.T) {
	h := NewServer(&fakeIdentity{}, "s3cret", nil).Handler()

	tests := []struct {
		name   string
		header []string
		want   int
	}{
		{"missing", nil, http.StatusUnauthorized},
		{"wrong scheme", []string{"Authorization", "Basic s3cret"}, http.StatusUnauthorized},
		{"wrong token", []string{"Authorization", "Bearer nope"}, http.StatusUnauthorized},
		{"valid", []string{"Authorization", "Bearer s3cret"}, http.StatusOK},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(t, h, http.MethodGet, "/api/fingerprint", "", tt.header...)
			assert.Equal(t, tt.want, rec.Code)
			if tt.want == http.StatusUnauthorized {
				assert.NotEmpty(t, rec.Header().Get("WWW-Authenticate"))
			}
		})
	}

	// The banner and health check stay public.
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/", "").Code)
	assert.Equal(t, http.StatusOK, do(t, h, http.MethodGet, "/healthz", "").Code)
}
