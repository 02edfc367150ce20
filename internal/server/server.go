package server

import (
	"context"
	"log"

	"github.com/npezzotti/go-worldstate/internal/engine"
	"github.com/npezzotti/go-worldstate/internal/stats"
)

type bindReq struct {
	client    *Client
	accountId int
}

type stopReq struct {
	done chan struct{}
}

// WorldServer tracks live connections and fans committed engine events out
// to them.
type WorldServer struct {
	log            *log.Logger
	engine         *engine.Engine
	stats          stats.StatsProvider
	clients        map[*Client]int
	registerChan   chan *Client
	deRegisterChan chan *Client
	bindChan       chan bindReq
	eventChan      chan engine.Event
	stop           chan stopReq
	done           chan struct{}
}

func NewWorldServer(logger *log.Logger, e *engine.Engine, su stats.StatsProvider) *WorldServer {
	ws := &WorldServer{
		log:            logger,
		engine:         e,
		stats:          su,
		clients:        make(map[*Client]int),
		registerChan:   make(chan *Client),
		deRegisterChan: make(chan *Client),
		bindChan:       make(chan bindReq),
		eventChan:      make(chan engine.Event, 1024),
		stop:           make(chan stopReq),
		done:           make(chan struct{}),
	}

	su.RegisterMetric(stats.NumConnections)
	e.SetPublisher(ws)
	return ws
}

// Run serves the hub until a shutdown request has stopped every client and
// each of them has been reconciled by the engine and deregistered.
func (ws *WorldServer) Run() {
	defer close(ws.done)

	var waiting []chan struct{}
	for {
		select {
		case c := <-ws.registerChan:
			ws.clients[c] = 0
			ws.stats.Incr(stats.NumConnections)
			if waiting != nil {
				c.stopClient()
			}
		case c := <-ws.deRegisterChan:
			if _, ok := ws.clients[c]; ok {
				delete(ws.clients, c)
				ws.stats.Decr(stats.NumConnections)
			}
		case req := <-ws.bindChan:
			if _, ok := ws.clients[req.client]; ok {
				ws.clients[req.client] = req.accountId
			}
		case ev := <-ws.eventChan:
			ws.deliver(ev)
		case req := <-ws.stop:
			if waiting == nil {
				ws.log.Printf("closing %d connections", len(ws.clients))
				for c := range ws.clients {
					c.stopClient()
				}
			}
			waiting = append(waiting, req.done)
		}

		if waiting != nil && len(ws.clients) == 0 {
			for _, done := range waiting {
				close(done)
			}
			return
		}
	}
}

// deliver queues ev on every connection allowed to see it.
func (ws *WorldServer) deliver(ev engine.Event) {
	msg := EventMessage(ev)
	for c, accountId := range ws.clients {
		if ev.Audience != 0 && ev.Audience != accountId {
			continue
		}
		c.queueMessage(msg)
	}
}

// Publish implements engine.Publisher.
func (ws *WorldServer) Publish(events ...engine.Event) {
	for _, ev := range events {
		select {
		case ws.eventChan <- ev:
		case <-ws.done:
			return
		}
	}
}

func (ws *WorldServer) Register(c *Client) bool {
	select {
	case ws.registerChan <- c:
		return true
	case <-ws.done:
		return false
	}
}

func (ws *WorldServer) deRegister(c *Client) {
	select {
	case ws.deRegisterChan <- c:
	case <-ws.done:
	}
}

// bind records which account a connection speaks for. Zero unbinds.
func (ws *WorldServer) bind(c *Client, accountId int) {
	select {
	case ws.bindChan <- bindReq{client: c, accountId: accountId}:
	case <-ws.done:
	}
}

// Shutdown stops every client and returns once the engine has reconciled
// all of their disconnects, or when ctx is done.
func (ws *WorldServer) Shutdown(ctx context.Context) error {
	ws.log.Println("received shutdown signal")

	req := stopReq{done: make(chan struct{})}
	select {
	case ws.stop <- req:
	case <-ws.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case <-req.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
