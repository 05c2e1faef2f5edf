package nostrelay

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	jsoniter "github.com/json-iterator/go"
	"github.com/rs/cors"
	"github.com/sasha-s/go-deadlock"
	"github.com/stackerstan/go-nostr"

	"mossgarden/mossgarden"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

var timeNow = time.Now

// Handler consumes an Event received from a client and reports whether it changed any Mind-state.
type Handler func(e mossgarden.Event) (mossgarden.HashSeq, bool)

// Start serves our local Nostr Relay for frontends and players. It blocks until the server fails.
func Start(handler Handler) {
	mossgarden.LogCLI("Starting our local Nostr Relay for the frontend", 4)
	srv := &http.Server{
		Handler:           newRouter(handler),
		Addr:              mossgarden.MakeOrGetConfig().GetString("websocketAddr"),
		WriteTimeout:      2 * time.Second,
		ReadTimeout:       2 * time.Second,
		IdleTimeout:       30 * time.Second,
		ReadHeaderTimeout: 2 * time.Second,
	}
	mossgarden.LogCLI("listening on "+srv.Addr, 4)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		mossgarden.LogCLI(err.Error(), 1)
	}
}

func newRouter(handler Handler) http.Handler {
	router := mux.NewRouter()
	// catch the websocket call before anything else
	router.Path("/").Headers("Upgrade", "websocket").HandlerFunc(handleWebsocket(handler))
	return cors.Default().Handler(router)
}

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer.
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = pongWait / 2

	// Maximum message size allowed from peer.
	maxMessageSize = 512000
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

//handleWebsocket handles connections from the user interfarce
func handleWebsocket(handler Handler) func(http.ResponseWriter, *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			mossgarden.LogCLI("failed to upgrade websocket", 3)
			return
		}
		ticker := time.NewTicker(pingPeriod)
		ws := &WebSocket{conn: conn}
		done := make(chan struct{})

		// reader
		go func() {
			defer func() {
				close(done)
				removeAllListeners(ws)
				conn.Close()
			}()
			conn.SetReadLimit(maxMessageSize)
			conn.SetReadDeadline(time.Now().Add(pongWait))
			conn.SetPongHandler(func(string) error {
				conn.SetReadDeadline(time.Now().Add(pongWait))
				return nil
			})
			for {
				typ, message, err := conn.ReadMessage()
				if err != nil {
					if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
						mossgarden.LogCLI("unexpected close of websocket", 3)
					}
					return
				}
				if typ == websocket.PingMessage {
					ws.WriteMessage(websocket.PongMessage, nil)
					continue
				}
				go handleMessage(ws, message, handler)
			}
		}()

		// writer
		go func() {
			defer ticker.Stop()
			for {
				select {
				case <-done:
					return
				case <-ticker.C:
					if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
						mossgarden.LogCLI("couldn't ping, exterminating socket", 3)
						return
					}
				}
			}
		}()
	}
}

func handleMessage(ws *WebSocket, message []byte, handler Handler) {
	var clientErrorResp string
	defer func() {
		if clientErrorResp != "" {
			ws.WriteJSON([]interface{}{"NOTICE", clientErrorResp})
		}
	}()

	var request []jsoniter.RawMessage
	if err := json.Unmarshal(message, &request); err != nil {
		// stop silently
		return
	}
	if len(request) < 2 {
		clientErrorResp = "request has less than 2 parameters"
		return
	}
	var typ string
	json.Unmarshal(request[0], &typ)

	switch typ {
	case "EVENT":
		var evt nostr.Event
		if err := json.Unmarshal(request[1], &evt); err != nil {
			clientErrorResp = "failed to decode event"
			return
		}
		hash := sha256.Sum256(evt.Serialize())
		if id := hex.EncodeToString(hash[:]); id != evt.ID {
			ws.WriteJSON([]interface{}{"OK", evt.ID, false, "invalid: event id does not match its content"})
			return
		}
		if ok, err := evt.CheckSignature(); err != nil || !ok {
			ws.WriteJSON([]interface{}{"OK", evt.ID, false, "invalid: signature"})
			return
		}
		_, ok := handler(mossgarden.ConvertToInternalEvent(&evt))
		if ok {
			CacheEventLocally(evt)
			ws.WriteJSON([]interface{}{"OK", evt.ID, true, ""})
			notifyListeners(evt)
			return
		}
		ws.WriteJSON([]interface{}{"OK", evt.ID, false, "rejected: see relay log"})
	case "REQ":
		var id string
		if err := json.Unmarshal(request[1], &id); err != nil || id == "" {
			clientErrorResp = "REQ has no <id>"
			return
		}
		filters := make(nostr.Filters, len(request)-2)
		for i, filterReq := range request[2:] {
			if err := json.Unmarshal(filterReq, &filters[i]); err != nil {
				clientErrorResp = "failed to decode filter"
				return
			}
		}
		setListener(id, ws, filters)
		sub := Subscription{
			Filters:   filters,
			Events:    make(chan nostr.Event),
			Terminate: make(chan bool),
		}
		if !dispatch(sub) {
			ws.WriteJSON([]interface{}{"EOSE", id})
			return
		}
		for {
			select {
			case event := <-sub.Events:
				if err := ws.WriteJSON([]interface{}{"EVENT", id, event}); err != nil {
					mossgarden.LogCLI(err.Error(), 3)
				}
			case <-sub.Terminate:
				ws.WriteJSON([]interface{}{"EOSE", id})
				return
			}
		}
	case "CLOSE":
		var id string
		json.Unmarshal(request[1], &id)
		if id == "" {
			clientErrorResp = "CLOSE has no <id>"
			return
		}
		removeListener(ws, id)
	default:
		clientErrorResp = "unknown message type " + typ
	}
}

type Listener struct {
	filters nostr.Filters
}

var listeners = make(map[*WebSocket]map[string]*Listener)
var listenersMutex = &deadlock.Mutex{}

func setListener(id string, ws *WebSocket, filters nostr.Filters) {
	listenersMutex.Lock()
	defer listenersMutex.Unlock()
	subs, ok := listeners[ws]
	if !ok {
		subs = make(map[string]*Listener)
		listeners[ws] = subs
	}
	subs[id] = &Listener{filters: filters}
}

func removeListener(ws *WebSocket, id string) {
	listenersMutex.Lock()
	defer listenersMutex.Unlock()
	if subs, ok := listeners[ws]; ok {
		delete(subs, id)
		if len(subs) == 0 {
			delete(listeners, ws)
		}
	}
}

// notifyListeners sends event to every open subscription with a matching filter.
func notifyListeners(event nostr.Event) {
	type target struct {
		ws *WebSocket
		id string
	}
	var targets []target
	listenersMutex.Lock()
	for ws, subs := range listeners {
		for id, l := range subs {
			if l.filters.Match(&event) {
				targets = append(targets, target{ws: ws, id: id})
			}
		}
	}
	listenersMutex.Unlock()
	for _, t := range targets {
		if err := t.ws.WriteJSON([]interface{}{"EVENT", t.id, event}); err != nil {
			mossgarden.LogCLI(err.Error(), 3)
		}
	}
}

func removeAllListeners(ws *WebSocket) {
	listenersMutex.Lock()
	defer listenersMutex.Unlock()
	delete(listeners, ws)
}

type Subscription struct {
	Filters   nostr.Filters
	Events    chan nostr.Event
	Terminate chan bool //closed by the responder once it has sent everything
}

var subscriptions = make(map[string]chan Subscription)
var subscriptionsMutex = &deadlock.Mutex{}

// SubscribeToRequests returns a channel that receives every REQ whose filters carry the given tag.
func SubscribeToRequests(tag string) chan Subscription {
	subscriptionsMutex.Lock()
	defer subscriptionsMutex.Unlock()
	c := make(chan Subscription)
	subscriptions[tag] = c
	return c
}

// dispatch hands sub to the first responder registered for one of its filter tags.
func dispatch(sub Subscription) bool {
	subscriptionsMutex.Lock()
	var responder chan Subscription
	for _, filter := range sub.Filters {
		for tag := range filter.Tags {
			if c, ok := subscriptions[tag]; ok {
				responder = c
				break
			}
		}
		if responder != nil {
			break
		}
	}
	subscriptionsMutex.Unlock()
	if responder == nil {
		return false
	}
	select {
	case responder <- sub:
		return true
	case <-time.After(writeWait):
		mossgarden.LogCLI(fmt.Sprintf("no responder picked up subscription %v", sub.Filters), 2)
		return false
	}
}
