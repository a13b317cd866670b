package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func testGithubConfig(t *testing.T, apiHandler http.Handler) GithubConfig {
	tokenServer := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(map[string]string{"access_token": "gho_test", "token_type": "bearer"})
	}))
	t.Cleanup(tokenServer.Close)

	apiServer := httptest.NewServer(apiHandler)
	t.Cleanup(apiServer.Close)

	return GithubConfig{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "https://mcjars.app/api/github/callback",
		Endpoint: oauth2.Endpoint{
			AuthURL:  tokenServer.URL + "/authorize",
			TokenURL: tokenServer.URL + "/token",
		},
		APIBaseURL: apiServer.URL,
	}
}

func TestAuthorizeURL_IncludesClientIDAndState(t *testing.T) {
	cfg := NewGithubConfig("abc123", "secret", "https://mcjars.app/api/github/callback")
	url := cfg.AuthorizeURL("xyz")

	assert.Contains(t, url, "client_id=abc123")
	assert.Contains(t, url, "state=xyz")
	assert.Contains(t, url, "allow_signup=true")
}

func TestExchange_ReturnsUserAndPrimaryEmail(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(GithubUser{ID: 42, Login: "dinnerbone"})
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]githubEmail{
			{Email: "secondary@example.com", Primary: false},
			{Email: "primary@example.com", Primary: true},
		})
	})

	cfg := testGithubConfig(t, mux)

	user, email, err := cfg.Exchange(context.Background(), "some-code")
	require.NoError(t, err)
	assert.Equal(t, int32(42), user.ID)
	assert.Equal(t, "dinnerbone", user.Login)
	assert.Equal(t, "primary@example.com", email)
}

func TestExchange_NoPrimaryEmailFails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(GithubUser{ID: 1, Login: "nobody"})
	})
	mux.HandleFunc("/user/emails", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]githubEmail{{Email: "a@b.com", Primary: false}})
	})

	cfg := testGithubConfig(t, mux)

	_, _, err := cfg.Exchange(context.Background(), "some-code")
	assert.ErrorIs(t, err, ErrNoPrimaryEmail)
}
