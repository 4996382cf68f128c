package forge

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// newTestClient returns a client pointed at a local mux-backed server.
func newTestClient(t *testing.T, token string, mux *http.ServeMux) *Client {
	t.Helper()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return New(Options{
		Token:             token,
		BaseURL:           server.URL,
		RequestsPerSecond: 1000, // no pacing in tests
	})
}

func writeJSON(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = fmt.Fprint(w, body)
}

func writeRateLimited(w http.ResponseWriter, reset time.Time) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("X-Ratelimit-Limit", "60")
	w.Header().Set("X-Ratelimit-Remaining", "0")
	w.Header().Set("X-Ratelimit-Reset", fmt.Sprintf("%d", reset.Unix()))
	w.WriteHeader(http.StatusForbidden)
	_, _ = fmt.Fprint(w, `{"message":"API rate limit exceeded for 127.0.0.1."}`)
}

func TestGetRepository(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{
			"name": "hello",
			"full_name": "octo/hello",
			"owner": {"login": "octo"},
			"description": "demo",
			"size": 1234,
			"language": "Go",
			"default_branch": "main",
			"stargazers_count": 42,
			"forks_count": 7,
			"open_issues_count": 3,
			"created_at": "2020-01-02T03:04:05Z"
		}`)
	})
	client := newTestClient(t, "", mux)

	snap, err := client.GetRepository(context.Background(), "octo", "hello")
	require.NoError(t, err)
	assert.Equal(t, "octo", snap.Owner)
	assert.Equal(t, "hello", snap.Name)
	assert.Equal(t, "octo/hello", snap.FullName)
	assert.Equal(t, 1234, snap.SizeKB)
	assert.Equal(t, "Go", snap.PrimaryLanguage)
	assert.Equal(t, 42, snap.Stars)
	assert.Equal(t, time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC), snap.CreatedAt)
}

func TestGetRepositoryNotFound(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/gone", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = fmt.Fprint(w, `{"message":"Not Found"}`)
	})
	client := newTestClient(t, "", mux)

	_, err := client.GetRepository(context.Background(), "octo", "gone")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRateLimitSurfacesOnAnyEndpoint(t *testing.T) {
	reset := time.Now().Add(20 * time.Minute).Truncate(time.Second)
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		writeRateLimited(w, reset)
	})
	client := newTestClient(t, "", mux)
	ctx := context.Background()

	_, repoErr := client.GetRepository(ctx, "octo", "hello")
	_, langErr := client.GetLanguages(ctx, "octo", "hello")

	for _, err := range []error{repoErr, langErr} {
		var rl *RateLimitError
		require.ErrorAs(t, err, &rl)
		assert.Equal(t, 60, rl.Limit)
		assert.Equal(t, reset.Unix(), rl.ResetTime.Unix())
	}
}

func TestGatedEndpointDegradesWithoutToken(t *testing.T) {
	mux := http.NewServeMux()
	forbidden := func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Ratelimit-Remaining", "42")
		w.WriteHeader(http.StatusForbidden)
		_, _ = fmt.Fprint(w, `{"message":"Resource not accessible"}`)
	}
	mux.HandleFunc("/repos/octo/hello/pulls", forbidden)
	mux.HandleFunc("/repos/octo/hello/issues", forbidden)
	mux.HandleFunc("/repos/octo/hello/actions/runs", forbidden)
	client := newTestClient(t, "", mux)
	ctx := context.Background()

	pulls, err := client.GetPullRequests(ctx, "octo", "hello", "closed", 30)
	require.NoError(t, err)
	assert.Empty(t, pulls)

	issues, err := client.GetIssues(ctx, "octo", "hello", "open", 30)
	require.NoError(t, err)
	assert.Empty(t, issues)

	runs, err := client.GetWorkflowRuns(ctx, "octo", "hello")
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestGatedEndpointHardErrorWithToken(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/pulls", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Ratelimit-Remaining", "42")
		w.WriteHeader(http.StatusForbidden)
		_, _ = fmt.Fprint(w, `{"message":"Resource not accessible by integration"}`)
	})
	client := newTestClient(t, "some-token", mux)

	_, err := client.GetPullRequests(context.Background(), "octo", "hello", "closed", 30)
	var ae *AuthError
	require.ErrorAs(t, err, &ae)
	assert.Equal(t, http.StatusForbidden, ae.StatusCode)
}

func TestUngatedEndpointNeverDegrades(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/languages", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Ratelimit-Remaining", "42")
		w.WriteHeader(http.StatusForbidden)
		_, _ = fmt.Fprint(w, `{"message":"Forbidden"}`)
	})
	client := newTestClient(t, "", mux)

	_, err := client.GetLanguages(context.Background(), "octo", "hello")
	var ae *AuthError
	require.ErrorAs(t, err, &ae)
}

func TestGetCommits(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/commits", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[
			{"sha": "aaa", "commit": {"message": "feat: one", "author": {"name": "Ada", "date": "2024-05-01T10:00:00Z"}}},
			{"sha": "bbb", "commit": {"message": "fix: two", "author": {"name": "Ada", "date": "2024-04-30T10:00:00Z"}}},
			{"sha": "ccc", "commit": {"message": "chore: three", "author": {"name": "Ada", "date": "2024-04-29T10:00:00Z"}}}
		]`)
	})
	client := newTestClient(t, "", mux)

	commits, err := client.GetCommits(context.Background(), "octo", "hello", 2)
	require.NoError(t, err)
	require.Len(t, commits, 2)
	// Reverse-chronological order is preserved.
	assert.Equal(t, "aaa", commits[0].SHA)
	assert.Equal(t, "feat: one", commits[0].Message)
	assert.Equal(t, "bbb", commits[1].SHA)
	assert.True(t, commits[0].AuthoredAt.After(commits[1].AuthoredAt))
}

func TestGetFileContent(t *testing.T) {
	encoded := base64.StdEncoding.EncodeToString([]byte(`{"dependencies":{}}`))
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/contents/package.json", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, fmt.Sprintf(
			`{"type": "file", "name": "package.json", "path": "package.json", "encoding": "base64", "content": %q}`,
			encoded))
	})
	client := newTestClient(t, "", mux)

	content, err := client.GetFileContent(context.Background(), "octo", "hello", "package.json")
	require.NoError(t, err)
	assert.Equal(t, `{"dependencies":{}}`, content)
}

func TestGetDirectoryContents(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/contents/", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[
			{"type": "file", "name": "package.json", "path": "package.json"},
			{"type": "dir", "name": "tests", "path": "tests"}
		]`)
	})
	client := newTestClient(t, "", mux)

	entries, err := client.GetDirectoryContents(context.Background(), "octo", "hello", "")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "package.json", entries[0].Name)
	assert.Equal(t, "file", entries[0].Type)
	assert.Equal(t, "dir", entries[1].Type)
}

func TestGetIssuesFiltersPullRequests(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/issues", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[
			{"number": 1, "state": "open"},
			{"number": 2, "state": "open", "pull_request": {"url": "https://example.invalid/pulls/2"}},
			{"number": 3, "state": "open", "labels": [{"name": "bug"}]}
		]`)
	})
	client := newTestClient(t, "tok", mux)

	issues, err := client.GetIssues(context.Background(), "octo", "hello", "open", 30)
	require.NoError(t, err)
	require.Len(t, issues, 2)
	assert.Equal(t, 1, issues[0].Number)
	assert.Equal(t, 3, issues[1].Number)
	assert.Equal(t, []string{"bug"}, issues[1].Labels)
}

func TestTransientServerErrorRetries(t *testing.T) {
	attempts := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/languages", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeJSON(w, `{"Go": 1000}`)
	})
	client := newTestClient(t, "", mux)

	langs, err := client.GetLanguages(context.Background(), "octo", "hello")
	require.NoError(t, err)
	assert.Equal(t, 2, attempts)
	assert.Equal(t, 1000, langs["Go"])
}

func TestRateLimitNotRetried(t *testing.T) {
	attempts := 0
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/languages", func(w http.ResponseWriter, r *http.Request) {
		attempts++
		writeRateLimited(w, time.Now().Add(time.Hour))
	})
	client := newTestClient(t, "", mux)

	_, err := client.GetLanguages(context.Background(), "octo", "hello")
	assert.True(t, IsRateLimit(err))
	assert.Equal(t, 1, attempts)
}

func TestGetContributors(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/contributors", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[
			{"login": "ada", "contributions": 120},
			{"login": "grace", "contributions": 80}
		]`)
	})
	client := newTestClient(t, "", mux)

	contributors, err := client.GetContributors(context.Background(), "octo", "hello")
	require.NoError(t, err)
	require.Len(t, contributors, 2)
	assert.Equal(t, "ada", contributors[0].Login)
	assert.Equal(t, 120, contributors[0].Contributions)
}

func TestGetCodeFrequencyStatsStillComputing(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/stats/code_frequency", func(w http.ResponseWriter, r *http.Request) {
		// GitHub answers 202 while it computes stats in the background.
		w.WriteHeader(http.StatusAccepted)
	})
	client := newTestClient(t, "", mux)

	stats, err := client.GetCodeFrequencyStats(context.Background(), "octo", "hello")
	require.NoError(t, err)
	assert.Empty(t, stats)
}

func TestGetCodeFrequencyStats(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/octo/hello/stats/code_frequency", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `[[1700000000, 120, -30]]`)
	})
	client := newTestClient(t, "", mux)

	stats, err := client.GetCodeFrequencyStats(context.Background(), "octo", "hello")
	require.NoError(t, err)
	require.Len(t, stats, 1)
	assert.Equal(t, 120, stats[0].Additions)
	assert.Equal(t, -30, stats[0].Deletions)
}

func TestGetRateLimit(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rate_limit", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, `{"resources": {"core": {"limit": 5000, "remaining": 4999, "reset": 1700000000}}}`)
	})
	client := newTestClient(t, "tok", mux)

	rl, err := client.GetRateLimit(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5000, rl.Limit)
	assert.Equal(t, 4999, rl.Remaining)
}

func TestResolveTokenPrefersExplicit(t *testing.T) {
	t.Setenv("GITHUB_TOKEN", "env-token")
	assert.Equal(t, "explicit", ResolveToken("explicit"))
}

func TestAuthenticated(t *testing.T) {
	assert.False(t, NewClient("").Authenticated())
	assert.True(t, NewClient("tok").Authenticated())
}
