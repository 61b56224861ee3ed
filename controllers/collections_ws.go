package controller

import (
	"log"
	"sync"

	"collectra/engine"
	"github.com/gofiber/websocket/v2"
)

// runFeed fans ProgressEvents out to websocket subscribers keyed by
// run ID. Slow or dead connections are dropped rather than blocking
// the batch.
var runFeed = struct {
	sync.Mutex
	subscribers map[string][]*websocket.Conn
}{subscribers: make(map[string][]*websocket.Conn)}

// HandleRunProgressWS streams per-invoice progress for one run. The
// client connects with the run ID in the path and reads JSON events
// until the socket closes.
func HandleRunProgressWS(c *websocket.Conn) {
	runID := c.Params("runId")
	if runID == "" {
		c.Close()
		return
	}

	runFeed.Lock()
	runFeed.subscribers[runID] = append(runFeed.subscribers[runID], c)
	runFeed.Unlock()

	defer func() {
		runFeed.Lock()
		conns := runFeed.subscribers[runID]
		for i, conn := range conns {
			if conn == c {
				runFeed.subscribers[runID] = append(conns[:i], conns[i+1:]...)
				break
			}
		}
		if len(runFeed.subscribers[runID]) == 0 {
			delete(runFeed.subscribers, runID)
		}
		runFeed.Unlock()
		c.Close()
	}()

	// Block until the client disconnects; inbound messages are ignored.
	for {
		if _, _, err := c.ReadMessage(); err != nil {
			break
		}
	}
}

// BroadcastRunProgress pushes one progress event to every subscriber
// of its run.
func BroadcastRunProgress(ev engine.ProgressEvent) {
	runFeed.Lock()
	conns := append([]*websocket.Conn(nil), runFeed.subscribers[ev.RunID]...)
	runFeed.Unlock()

	for _, conn := range conns {
		if err := conn.WriteJSON(ev); err != nil {
			log.Printf("[COLLECTIONS] dropping progress subscriber for run %s: %v", ev.RunID, err)
			conn.Close()
		}
	}
}
