// Package wsbridge implements the per-connection WebSocket bridge (§4.7):
// handshake, subscribe-and-forward loop, and command ingestion.
//
// Grounded on the teacher's server/connection_handler.go (a dedicated
// read-loop goroutine reporting back to an owning goroutine/actor) and
// server/websocket.go (golang.org/x/net/websocket connection bookkeeping),
// generalized from a per-room game connection to a bus subscriber.
package wsbridge

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/net/websocket"

	"github.com/divotmaker/flighthook/internal/bus"
	"github.com/divotmaker/flighthook/internal/system"
)

const writeQueueDepth = 256

// startFrame is the single frame a client may send before the handshake
// completes (§4.7 step 2).
type startFrame struct {
	Type string `json:"type"`
	Name string `json:"name,omitempty"`
}

// initFrame acknowledges a handshake (§4.7 step 3).
type initFrame struct {
	Type        string                    `json:"type"`
	SourceID    string                    `json:"source_id"`
	GlobalState bus.GameStateSnapshotEvent `json:"global_state"`
}

// commandFrame is a client->server control message (§4.7 step 5).
type commandFrame struct {
	Cmd  string             `json:"cmd"`
	Mode *bus.DetectionMode `json:"mode,omitempty"`
}

// Handler serves one WebSocket connection's full lifecycle.
type Handler struct {
	busInst *bus.Bus
	reader  *system.StateReader
	log     *zap.SugaredLogger
}

// New constructs a Handler bound to the process bus and game-state reader.
func New(busInst *bus.Bus, reader *system.StateReader, log *zap.SugaredLogger) *Handler {
	return &Handler{busInst: busInst, reader: reader, log: log}
}

// ServeWebsocket implements golang.org/x/net/websocket's Handler signature.
func (h *Handler) ServeWebsocket(ws *websocket.Conn) {
	sourceID, err := newSourceID()
	if err != nil {
		ws.Close()
		return
	}

	if !h.awaitStart(ws) {
		ws.Close()
		return
	}

	if err := websocket.JSON.Send(ws, initFrame{
		Type:        "init",
		SourceID:    sourceID,
		GlobalState: h.reader.Snapshot().ToSnapshotEvent(),
	}); err != nil {
		ws.Close()
		return
	}

	receiver := h.busInst.Subscribe()
	defer receiver.Close()

	sender := h.busInst.NewSender(sourceID, nil)

	writeQueue := make(chan bus.Message, writeQueueDepth)
	done := make(chan struct{})

	go h.writer(ws, writeQueue, done)
	go h.pump(receiver, writeQueue, done)

	h.readLoop(ws, sender)

	close(done)
}

// awaitStart discards any frame other than "start"/"close" until it sees a
// valid start frame, per §4.7 step 2.
func (h *Handler) awaitStart(ws *websocket.Conn) bool {
	for {
		var raw json.RawMessage
		if err := websocket.JSON.Receive(ws, &raw); err != nil {
			return false
		}
		var probe struct {
			Type string `json:"type"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			continue
		}
		switch probe.Type {
		case "start":
			return true
		case "close":
			return false
		default:
			continue
		}
	}
}

// pump forwards every bus envelope to the per-connection write queue,
// dropping the oldest queued frame if the writer falls behind so delivery
// order on the wire always favors the newest state (§4.1 lag policy).
func (h *Handler) pump(receiver *bus.Receiver, writeQueue chan<- bus.Message, done <-chan struct{}) {
	ticker := time.NewTicker(2 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-done:
			return
		case <-ticker.C:
		}
		for {
			msg, err := receiver.Poll()
			if err != nil {
				break
			}
			select {
			case writeQueue <- msg:
			default:
				select {
				case <-writeQueue:
				default:
				}
				select {
				case writeQueue <- msg:
				default:
				}
			}
		}
	}
}

// writer is the dedicated goroutine that serializes frame order on the
// wire (§4.7 step 4): only it calls websocket.JSON.Send.
func (h *Handler) writer(ws *websocket.Conn, writeQueue <-chan bus.Message, done <-chan struct{}) {
	for {
		select {
		case <-done:
			return
		case msg, ok := <-writeQueue:
			if !ok {
				return
			}
			if err := websocket.JSON.Send(ws, msg); err != nil {
				return
			}
		}
	}
}

// readLoop consumes client frames until the connection closes, translating
// {"cmd":"mode"} into a set_mode command (§4.7 step 5).
func (h *Handler) readLoop(ws *websocket.Conn, sender *bus.Sender) {
	for {
		var raw json.RawMessage
		if err := websocket.JSON.Receive(ws, &raw); err != nil {
			return
		}
		var cmd commandFrame
		if err := json.Unmarshal(raw, &cmd); err != nil {
			continue
		}
		switch cmd.Cmd {
		case "mode":
			if cmd.Mode == nil {
				continue
			}
			sender.Send(bus.GameStateCommandEvent{Type: bus.SetMode, Mode: cmd.Mode}, bus.RawPayload{})
		default:
			// unknown cmd values are ignored (§9 open question decision)
		}
	}
}

func newSourceID() (string, error) {
	buf := make([]byte, 4)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("wsbridge: generating source id: %w", err)
	}
	return "ws." + hex.EncodeToString(buf), nil
}
