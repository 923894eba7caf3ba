package a2a

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/roundtable-ai/roundtable/types"
)

func testCard(url string) AgentCard {
	return AgentCard{
		Name:               "policy-agent",
		Description:        "Looks up company policies",
		URL:                url,
		Version:            "1.0.0",
		ProtocolVersion:    "0.3.0",
		DefaultInputModes:  []string{"text"},
		DefaultOutputModes: []string{"text"},
		Capabilities:       Capabilities{Streaming: true},
		Skills: []Skill{
			{ID: "policy_lookup", Name: "Policy Lookup", Tags: []string{"policy"}},
		},
	}
}

func TestAgentCardValidate(t *testing.T) {
	card := testCard("http://example.com")
	require.NoError(t, card.Validate())

	missing := card
	missing.Name = ""
	assert.ErrorIs(t, missing.Validate(), ErrMissingName)

	missing = card
	missing.URL = ""
	assert.ErrorIs(t, missing.Validate(), ErrMissingURL)

	missing = card
	missing.Version = ""
	assert.ErrorIs(t, missing.Validate(), ErrMissingVersion)
}

func TestResolverCachesCard(t *testing.T) {
	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, WellKnownCardPath, r.URL.Path)
		fetches.Add(1)
		json.NewEncoder(w).Encode(testCard(""))
	}))
	defer srv.Close()

	r := NewResolver(DefaultResolverConfig(srv.URL), nil, zap.NewNop())

	card, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "policy-agent", card.Name)
	assert.Equal(t, srv.URL, card.URL, "empty card URL falls back to the endpoint")

	_, err = r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int32(1), fetches.Load(), "resolution happens once per endpoint")
}

func TestResolverCustomCardPath(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "/agenta2a/v1/card", r.URL.Path)
		json.NewEncoder(w).Encode(testCard(""))
	}))
	defer srv.Close()

	cfg := DefaultResolverConfig(srv.URL)
	cfg.CardPath = "/agenta2a/v1/card"
	r := NewResolver(cfg, nil, zap.NewNop())

	_, err := r.Resolve(context.Background())
	require.NoError(t, err)
}

func TestResolverRetriesThenUnreachable(t *testing.T) {
	var fetches atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fetches.Add(1)
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := DefaultResolverConfig(srv.URL)
	cfg.RetryCount = 2
	cfg.RetryDelay = time.Millisecond
	r := NewResolver(cfg, nil, zap.NewNop())

	_, err := r.Resolve(context.Background())
	require.Error(t, err)
	assert.Equal(t, types.ErrAgentUnreachable, types.GetErrorCode(err))
	assert.Equal(t, int32(3), fetches.Load(), "initial attempt plus two retries")
}

func TestResolverRecoversAfterFailure(t *testing.T) {
	var healthy atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !healthy.Load() {
			http.Error(w, "warming up", http.StatusServiceUnavailable)
			return
		}
		json.NewEncoder(w).Encode(testCard(""))
	}))
	defer srv.Close()

	cfg := DefaultResolverConfig(srv.URL)
	cfg.RetryCount = 0
	cfg.RetryDelay = time.Millisecond
	r := NewResolver(cfg, nil, zap.NewNop())

	_, err := r.Resolve(context.Background())
	require.Error(t, err)

	// A failed resolution is a retry, not a fatal condition: the next
	// Resolve attempts the fetch again.
	healthy.Store(true)
	card, err := r.Resolve(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "policy-agent", card.Name)
}
