package mediawiki

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"viki/vikigraph/internal/wiki"
)

func newTestServer(t *testing.T, handler func(w http.ResponseWriter, r *http.Request)) *wiki.Source {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(handler))
	t.Cleanup(srv.Close)
	return &wiki.Source{APIURL: srv.URL + "/api.php", ContentURL: srv.URL + "/wiki/$1", Searchable: true}
}

func TestExternalLinks(t *testing.T) {
	src := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "extlinks", q.Get("prop"))
		assert.Equal(t, "Main Page", q.Get("titles"))
		assert.Equal(t, "json", q.Get("format"))
		assert.Equal(t, "true", q.Get("redirects"))
		fmt.Fprint(w, `{"query":{"pages":{"12":{"title":"Main Page","extlinks":[{"*":"http://a.org"},{"*":"https://b.org/x"}]}}}}`)
	})

	urls, err := New().ExternalLinks(context.Background(), src, "Main Page")
	require.NoError(t, err)
	assert.Equal(t, []string{"http://a.org", "https://b.org/x"}, urls)
}

func TestOutgoingLinks_FollowsContinuation(t *testing.T) {
	var calls atomic.Int32
	src := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if r.URL.Query().Get("plcontinue") == "" {
			fmt.Fprint(w, `{"continue":{"plcontinue":"12|0|B","continue":"||"},
				"query":{"pages":{"12":{"title":"A","links":[{"ns":0,"title":"A1"}]}}}}`)
			return
		}
		fmt.Fprint(w, `{"query":{"pages":{"12":{"title":"A","links":[{"ns":4,"title":"Project:B"}]}}}}`)
	})

	refs, err := New().OutgoingLinks(context.Background(), src, "A")
	require.NoError(t, err)
	assert.Equal(t, []wiki.PageRef{{Title: "A1", NS: 0}, {Title: "Project:B", NS: 4}}, refs)
	assert.Equal(t, int32(2), calls.Load())
}

func TestOutgoingLinks_TruncatedKeepsPartialResult(t *testing.T) {
	var calls atomic.Int32
	src := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		n := calls.Add(1)
		fmt.Fprintf(w, `{"continue":{"plcontinue":"12|0|%d","continue":"||"},
			"query":{"pages":{"12":{"title":"A","links":[{"ns":0,"title":"L%d"}]}}}}`, n, n)
	})

	refs, err := New().OutgoingLinks(context.Background(), src, "A")
	require.ErrorIs(t, err, ErrTruncated)
	assert.Contains(t, err.Error(), "A")
	assert.Len(t, refs, maxContinuations)
	assert.Equal(t, int32(maxContinuations), calls.Load())
}

func TestIncomingLinks(t *testing.T) {
	src := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "backlinks", r.URL.Query().Get("list"))
		assert.Equal(t, "A", r.URL.Query().Get("bltitle"))
		fmt.Fprint(w, `{"query":{"backlinks":[{"pageid":3,"ns":0,"title":"B"}]}}`)
	})

	refs, err := New().IncomingLinks(context.Background(), src, "A")
	require.NoError(t, err)
	assert.Equal(t, []wiki.PageRef{{Title: "B"}}, refs)
}

func TestPageInfo(t *testing.T) {
	src := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Query().Get("titles") {
		case "Home":
			fmt.Fprint(w, `{"query":{"pages":{"1":{"title":"Home","categories":[{"ns":14,"title":"Category:Draft"}]}}}}`)
		default:
			fmt.Fprint(w, `{"query":{"pages":{"-1":{"ns":0,"title":"Gone","missing":""}}}}`)
		}
	})
	c := New()

	info, err := c.PageInfo(context.Background(), src, "Home")
	require.NoError(t, err)
	assert.False(t, info.Missing)
	assert.Equal(t, []string{"Category:Draft"}, info.Categories)

	info, err = c.PageInfo(context.Background(), src, "Gone")
	require.NoError(t, err)
	assert.True(t, info.Missing)
	assert.Empty(t, info.Categories)
}

func TestContentNamespaces(t *testing.T) {
	supported := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "getContentNamespaces", r.URL.Query().Get("action"))
		fmt.Fprint(w, `{"getContentNamespaces":[0,500]}`)
	})
	unsupported := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":{"code":"unknown_action","info":"Unrecognized value for parameter 'action'"}}`)
	})
	c := New()

	ns, err := c.ContentNamespaces(context.Background(), supported)
	require.NoError(t, err)
	assert.Equal(t, []int{0, 500}, ns)

	_, err = c.ContentNamespaces(context.Background(), unsupported)
	assert.ErrorIs(t, err, wiki.ErrUnknownAction)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, "unknown_action", apiErr.Code)
}

func TestCategoryMembers(t *testing.T) {
	src := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Category:Fruit", r.URL.Query().Get("cmtitle"))
		fmt.Fprint(w, `{"query":{"categorymembers":[{"ns":0,"title":"Apple"},{"ns":0,"title":"Pear"}]}}`)
	})

	titles, err := New().CategoryMembers(context.Background(), src, "Fruit")
	require.NoError(t, err)
	assert.Equal(t, []string{"Apple", "Pear"}, titles)
}

func TestHTTPError(t *testing.T) {
	src := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	})

	_, err := New().ExternalLinks(context.Background(), src, "A")
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.StatusCode)
	assert.NotErrorIs(t, err, wiki.ErrUnknownAction)
}

func TestCanceledContext(t *testing.T) {
	src := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		t.Error("request should not be sent")
	})
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := New(WithRateLimit(1, 1)).IncomingLinks(ctx, src, "A")
	assert.ErrorIs(t, err, context.Canceled)
}
