package web_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/stretchr/testify/require"

	"github.com/mcoot/reflexpool/internal/factory"
	"github.com/mcoot/reflexpool/internal/model"
	"github.com/mcoot/reflexpool/internal/testutil"
	"github.com/mcoot/reflexpool/internal/web"
)

var (
	creator = model.MustParseAddress("0x00000000000000000000000000000000000000c0")
	alice   = model.MustParseAddress("0x00000000000000000000000000000000000000a1")
	bob     = model.MustParseAddress("0x00000000000000000000000000000000000000b2")
)

// webTestServer provides a test server for web interface testing
type webTestServer struct {
	t       *testing.T
	handler http.Handler
	app     *factory.TestApp
}

// newWebTestServer creates a new test server with all dependencies wired
func newWebTestServer(t *testing.T) *webTestServer {
	t.Helper()

	app := factory.NewTestApp()
	t.Cleanup(func() { _ = app.Close() })

	router := web.NewRouter(web.RouterConfig{
		Logger:     testutil.NopLogger(),
		Players:    app.StatsService,
		Pools:      app.PoolFactory,
		Token:      app.Token,
		HubManager: app.HubManager,
	})

	return &webTestServer{
		t:       t,
		handler: router,
		app:     app,
	}
}

// get makes a GET request and returns the response
func (ts *webTestServer) get(path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rr := httptest.NewRecorder()
	ts.handler.ServeHTTP(rr, req)
	return rr
}

// stream opens path for the given duration and returns what was written
func (ts *webTestServer) stream(path string, d time.Duration, during func()) *httptest.ResponseRecorder {
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()

	req := httptest.NewRequest(http.MethodGet, path, nil).WithContext(ctx)
	rr := httptest.NewRecorder()

	done := make(chan struct{})
	go func() {
		defer close(done)
		ts.handler.ServeHTTP(rr, req)
	}()
	if during != nil {
		during()
	}
	<-done
	return rr
}

// parseHTML parses the response body as HTML
func parseHTML(r io.Reader) *goquery.Document {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		panic(err)
	}
	return doc
}

// Helper functions for common test operations

// recordReaction records a free-play reaction
func (ts *webTestServer) recordReaction(player model.Address, t model.ReactionTime) {
	ts.t.Helper()
	_, err := ts.app.StatsService.RecordReaction(ts.t.Context(), player, t, false)
	require.NoError(ts.t, err)
}

// createPool creates a pool with a 10 token fee and returns it
func (ts *webTestServer) createPool() *model.Pool {
	ts.t.Helper()
	p, err := ts.app.PoolFactory.CreatePool(ts.t.Context(), creator, 10_000_000, time.Hour)
	require.NoError(ts.t, err)
	return p
}

// join funds player and joins the pool
func (ts *webTestServer) join(p *model.Pool, player model.Address) {
	ts.t.Helper()
	require.NoError(ts.t, ts.app.Fund(ts.t.Context(), player, p.Address, p.EntryFee))
	_, err := ts.app.PoolService.Join(ts.t.Context(), p.ID, player)
	require.NoError(ts.t, err)
}
