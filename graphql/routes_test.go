package graphql

import (
	"testing"
	"time"

	"github.com/datastax/sql-data-gateway/internal/testutil"
	"github.com/datastax/sql-data-gateway/schema"
)

func TestRouteGeneratorCloseStopsWatcher(t *testing.T) {
	store := schema.NewStore(testutil.LibrarySnapshot())
	rg := &RouteGenerator{
		store:          store,
		built:          store.Load(),
		updateInterval: time.Millisecond,
		done:           make(chan struct{}),
	}

	finished := make(chan struct{})
	go func() {
		rg.watchSnapshot()
		close(finished)
	}()

	rg.Close()
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("snapshot watcher kept running after Close")
	}

	// A second Close is a no-op
	rg.Close()
}
