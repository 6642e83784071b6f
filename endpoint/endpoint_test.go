package endpoint

import (
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/datastax/sql-data-gateway/log"
)

func TestRefreshSchemaStopsOnClose(t *testing.T) {
	endpoint := &DataEndpoint{done: make(chan struct{})}

	finished := make(chan struct{})
	go func() {
		endpoint.refreshSchema(nil, nil, time.Hour, log.NewZapLogger(zap.NewNop()))
		close(finished)
	}()

	endpoint.closeOnce.Do(func() { close(endpoint.done) })
	select {
	case <-finished:
	case <-time.After(time.Second):
		t.Fatal("schema refresh kept running after shutdown")
	}
}
