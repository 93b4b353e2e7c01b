package api

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"manualqa/internal/util"
)

func TestStatusForTaxonomy(t *testing.T) {
	cases := []struct {
		err  error
		want int
	}{
		{fmt.Errorf("delete: %w", util.ErrUnauthorized), http.StatusForbidden},
		{util.ErrUnsupportedType, http.StatusBadRequest},
		{util.ErrPasswordProtected, http.StatusBadRequest},
		{util.ErrNoReadableText, http.StatusBadRequest},
		{fmt.Errorf("answer: %w", util.ErrGenerationFailed), http.StatusBadGateway},
		{util.ErrNetwork, http.StatusBadGateway},
		{errors.New("429 rate limited"), http.StatusBadGateway},
		{errors.New("some db corruption elsewhere"), http.StatusInternalServerError},
	}
	for _, c := range cases {
		require.Equal(t, c.want, statusFor(c.err), "status for %v", c.err)
	}
}

func TestRequireUser(t *testing.T) {
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/documents", nil)
	require.Empty(t, requireUser(rec, req))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = httptest.NewRecorder()
	req.Header.Set("X-User-ID", "user-a")
	require.Equal(t, "user-a", requireUser(rec, req))
}

func TestAskValidation(t *testing.T) {
	s := &Server{}
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/ask", strings.NewReader(`{"document_id":"","question":""}`))
	s.handleAsk(rec, req)
	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Contains(t, rec.Body.String(), "required")
}

func TestCORSPreflight(t *testing.T) {
	h := withCORS(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("next handler must not run on preflight")
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodOptions, "/ask", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)
	require.Equal(t, "*", rec.Header().Get("Access-Control-Allow-Origin"))
}
