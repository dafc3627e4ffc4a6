// Command ralph-go is a minimal smoke-test entry point, not a full CLI
// surface: it runs the shape catalog against a sample event and probes the
// ClickHouse backend's status, exercising the dispatch and backend-contract
// wiring end to end without standing up a command tree.
package main

import (
	"fmt"
	"os"

	"github.com/evalgo/ralph-go/backend/column"
	"github.com/evalgo/ralph-go/catalog"
	"github.com/evalgo/ralph-go/evelog"
)

func main() {
	c := catalog.DefaultCatalog()

	sample := catalog.Record{
		"event_source": "server",
		"event_type":   "openassessmentblock.peer_assess",
	}
	shape, err := c.Dispatch(sample)
	if err != nil {
		evelog.Logger.WithError(err).Error("failed to dispatch sample event")
		os.Exit(1)
	}
	fmt.Printf("dispatched sample event to shape %q\n", shape.Name)

	ch := column.New(column.FromEnv())
	status := ch.Status()
	fmt.Printf("clickhouse backend status: %s\n", status)
}
