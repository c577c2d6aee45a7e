package server

import (
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stemroom/core/apperr"
	"stemroom/core/auth"
)

func TestAuthMiddleware(t *testing.T) {
	auth.InitJWT("test-secret", time.Hour)

	h := &APIHandler{}
	protected := h.AuthMiddleware(func(w http.ResponseWriter, r *http.Request) {
		userID, err := GetUserIDFromContext(r.Context())
		require.NoError(t, err)
		fmt.Fprintf(w, "%d", userID)
	})

	t.Run("missing header", func(t *testing.T) {
		rec := httptest.NewRecorder()
		protected(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("malformed header", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "token abc def")
		rec := httptest.NewRecorder()
		protected(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer not-a-jwt")
		rec := httptest.NewRecorder()
		protected(rec, req)
		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid token reaches the handler with identity", func(t *testing.T) {
		token, err := auth.GenerateToken(42, "alice")
		require.NoError(t, err)

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		rec := httptest.NewRecorder()
		protected(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "42", rec.Body.String())
	})
}

func TestRespondErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want int
	}{
		{"not found", apperr.NotFoundf("track 9"), http.StatusNotFound},
		{"forbidden", apperr.Forbiddenf("not a member"), http.StatusForbidden},
		{"conflict", apperr.Conflictf("duplicate key"), http.StatusConflict},
		{"invalid input", apperr.InvalidInputf("bad pan"), http.StatusBadRequest},
		{"unknown", fmt.Errorf("connection reset"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			respondError(rec, httptest.NewRequest(http.MethodGet, "/", nil), tc.err)
			assert.Equal(t, tc.want, rec.Code)
		})
	}
}

func TestPathID(t *testing.T) {
	t.Run("parses a positive id", func(t *testing.T) {
		req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil),
			map[string]string{"track_id": "37"})
		id, err := pathID(req, "track_id")
		require.NoError(t, err)
		assert.Equal(t, int64(37), id)
	})

	t.Run("rejects junk and non-positive ids", func(t *testing.T) {
		for _, raw := range []string{"abc", "0", "-5", ""} {
			req := mux.SetURLVars(httptest.NewRequest(http.MethodGet, "/", nil),
				map[string]string{"track_id": raw})
			_, err := pathID(req, "track_id")
			assert.ErrorIs(t, err, apperr.ErrInvalidInput, "raw=%q", raw)
		}
	})
}
