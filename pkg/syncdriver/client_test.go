package syncdriver

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mindburn-labs/integration-core/pkg/model"
)

func TestInitiateJobParsesJobID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/persister/synchronization/jobs", r.URL.Path)
		_ = json.NewEncoder(w).Encode(map[string]any{"job": map[string]any{"id": "job-1"}})
	}))
	defer srv.Close()

	c := New(srv.URL, "token")
	job, err := c.InitiateJob(t.Context())
	require.NoError(t, err)
	assert.Equal(t, "job-1", job.ID)
	assert.Contains(t, job.URL, "job-1")
}

func TestPostEntitiesSendsBearerToken(t *testing.T) {
	var gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
	}))
	defer srv.Close()

	c := New(srv.URL, "secret-key")
	job := model.SynchronizationJob{ID: "job-1"}
	require.NoError(t, c.PostEntities(t.Context(), job, []model.Entity{{Key: "k", Type: "t"}}))
	assert.Equal(t, "Bearer secret-key", gotAuth)
}

func TestUnauthorizedResponseIsNotRetried(t *testing.T) {
	calls := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := New(srv.URL, "token")
	err := c.Finalize(t.Context(), model.SynchronizationJob{ID: "job-1"}, model.PartialDatasets{})
	require.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestCheckAPIKeyExpiryRejectsExpiredJWT(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	})
	signed, err := tok.SignedString([]byte("secret"))
	require.NoError(t, err)

	assert.Error(t, CheckAPIKeyExpiry(signed))
}

func TestCheckAPIKeyExpiryAcceptsOpaqueToken(t *testing.T) {
	assert.NoError(t, CheckAPIKeyExpiry("opaque-static-token"))
}
