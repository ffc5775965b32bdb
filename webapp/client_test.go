package webapp

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClientPredictDecodesOrderedProbabilities(t *testing.T) {
	api, _ := fakeAPI(t, "benign")
	client := NewAPIClient(api.URL+"/", time.Second)

	result, err := client.Predict(context.Background(), map[string]float64{"radius": 1})
	require.NoError(t, err)
	assert.Equal(t, "benign", result.Label)
	assert.Equal(t, []string{"malignant", "benign"}, result.Probabilities.Labels)
	assert.Equal(t, []string{"radius", "texture", "area"}, result.FeatureOrder)
}

func TestClientTimeoutIsTransportError(t *testing.T) {
	release := make(chan struct{})
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer api.Close()
	defer close(release)

	_, err := NewAPIClient(api.URL, 20*time.Millisecond).Features(context.Background())
	var transport *TransportError
	assert.True(t, errors.As(err, &transport), "got %v", err)
}

func TestClientNon2xxIsAPIError(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		io.WriteString(w, "  broken\n")
	}))
	defer api.Close()

	_, err := NewAPIClient(api.URL, time.Second).Features(context.Background())
	var apiErr *APIError
	require.True(t, errors.As(err, &apiErr), "got %v", err)
	assert.Equal(t, http.StatusInternalServerError, apiErr.Status)
	assert.Equal(t, "broken", apiErr.Body)
}

func TestClientUndecodableBody(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, "<html>")
	}))
	defer api.Close()

	_, err := NewAPIClient(api.URL, time.Second).Features(context.Background())
	require.Error(t, err)
	var transport *TransportError
	assert.False(t, errors.As(err, &transport))
}
