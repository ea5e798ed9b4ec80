// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Rasul Khiriev

package http

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/MKhiriev/go-receipt-keeper/internal/logger"
	"github.com/MKhiriev/go-receipt-keeper/internal/metrics"
	"github.com/MKhiriev/go-receipt-keeper/internal/mock"
	"github.com/MKhiriev/go-receipt-keeper/internal/service"
	"github.com/MKhiriev/go-receipt-keeper/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

const testOwner = "owner-1"

// handlerFixture wires a Handler to gomock services. Any bearer token
// authenticates as testOwner.
type handlerFixture struct {
	records *mock.MockRecordService
	auth    *mock.MockAuthService
	appInfo *mock.MockAppInfoService
	h       *Handler
	router  http.Handler
}

func newHandlerFixture(t *testing.T, opts ...Option) *handlerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)

	f := &handlerFixture{
		records: mock.NewMockRecordService(ctrl),
		auth:    mock.NewMockAuthService(ctrl),
		appInfo: mock.NewMockAppInfoService(ctrl),
	}
	f.auth.EXPECT().ParseToken(gomock.Any(), gomock.Any()).
		Return(models.Token{UserID: testOwner}, nil).AnyTimes()

	f.h = NewHandler(&service.Services{
		RecordService:  f.records,
		AuthService:    f.auth,
		AppInfoService: f.appInfo,
	}, logger.Nop(), opts...)
	f.router = f.h.Init()
	return f
}

func (f *handlerFixture) do(method, target, body string, headers ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	req.Header.Set("Authorization", "Bearer test-token")
	for i := 0; i+1 < len(headers); i += 2 {
		req.Header.Set(headers[i], headers[i+1])
	}
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)
	return rec
}

func TestNewHandler_AppliesOptions(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewHTTPMetrics(reg)
	require.NoError(t, err)

	h := NewHandler(&service.Services{}, logger.Nop(), WithHashKey("secret"), WithMetrics(m, reg))

	assert.NotNil(t, h.hasher)
	assert.Same(t, m, h.metrics)
	assert.Equal(t, prometheus.Gatherer(reg), h.gatherer)

	plain := NewHandler(&service.Services{}, logger.Nop(), WithHashKey(""))
	assert.Nil(t, plain.hasher)
	assert.Nil(t, plain.metrics)
}

func TestInit_RegistersRoutes(t *testing.T) {
	f := newHandlerFixture(t)
	f.appInfo.EXPECT().GetAppVersion(gomock.Any()).Return("1.2.3").AnyTimes()
	f.records.EXPECT().CreateRecord(gomock.Any(), gomock.Any()).Return(models.CreateRecordResponse{ID: "x"}, nil).AnyTimes()
	f.records.EXPECT().GetRecord(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(models.Record{}, nil).AnyTimes()
	f.records.EXPECT().UpdateRecord(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()
	f.records.EXPECT().DeleteRecord(gomock.Any(), gomock.Any(), gomock.Any(), gomock.Any()).Return(nil).AnyTimes()

	routes := []struct {
		method string
		path   string
		body   string
	}{
		{http.MethodGet, "/api/health", ""},
		{http.MethodGet, "/api/version", ""},
		{http.MethodPost, "/api/records/clients", `{"name":"a"}`},
		{http.MethodGet, "/api/records/clients/c-1", ""},
		{http.MethodPatch, "/api/records/clients/c-1", `{"name":"b"}`},
		{http.MethodDelete, "/api/records/clients/c-1", ""},
	}
	for _, rt := range routes {
		t.Run(rt.method+" "+rt.path, func(t *testing.T) {
			rec := f.do(rt.method, rt.path, rt.body)
			assert.Less(t, rec.Code, 300, "unexpected status for %s %s: %d", rt.method, rt.path, rec.Code)
		})
	}
}

func TestInit_UnknownRouteAndMethod(t *testing.T) {
	f := newHandlerFixture(t)

	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/api/nope", "").Code)
	// only GET is registered for the literal version route
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPost, "/api/version", "").Code)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodPut, "/api/records/clients/c-1", "{}").Code)
}

func TestInit_MetricsEndpoint(t *testing.T) {
	reg := prometheus.NewRegistry()
	m, err := metrics.NewHTTPMetrics(reg)
	require.NoError(t, err)

	f := newHandlerFixture(t, WithMetrics(m, reg))

	rec := f.do(http.MethodGet, "/api/health", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues(http.MethodGet, "/api/health", "200")))

	rec = f.do(http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "receipt_keeper_http_requests_total")
	assert.Equal(t, 0.0, testutil.ToFloat64(m.InFlight))
}

func TestInit_NoMetricsEndpointWithoutGatherer(t *testing.T) {
	f := newHandlerFixture(t)
	assert.Equal(t, http.StatusNotFound, f.do(http.MethodGet, "/metrics", "").Code)
}

func TestGetServerVersion(t *testing.T) {
	f := newHandlerFixture(t)
	f.appInfo.EXPECT().GetAppVersion(gomock.Any()).Return("v0.4.0")

	rec := f.do(http.MethodGet, "/api/version", "")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "v0.4.0", rec.Body.String())
	assert.Equal(t, "text/plain", rec.Header().Get("Content-Type"))
}

func TestHealth_NeedsNoToken(t *testing.T) {
	f := newHandlerFixture(t)

	req := httptest.NewRequestWithContext(context.Background(), http.MethodGet, "/api/health", nil)
	rec := httptest.NewRecorder()
	f.router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}
