package sse

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/amarpathagar/pathagar-server/internal/id"
)

const (
	defaultHeartbeat = 30 * time.Second
	eventQueueSize   = 1000
	clientBufferSize = 100
)

// Client is one open event stream. A member may hold several, one per tab
// or device.
type Client struct {
	ID          string
	UserID      string
	IsAdmin     bool
	ConnectedAt time.Time
	EventChan   chan Event
	Done        chan struct{}
}

// Manager routes circulation events to connected members. Events with a
// UserID go only to that member's streams; admin-only events go to admin
// streams; everything else is broadcast.
type Manager struct {
	logger    *slog.Logger
	heartbeat time.Duration
	events    chan Event
	running   sync.WaitGroup

	mu     sync.RWMutex
	byID   map[string]*Client
	byUser map[string]map[string]*Client

	// closedMu guards closed and the close of events against Emit.
	closedMu sync.RWMutex
	closed   bool
}

// NewManager creates a new SSE Manager.
func NewManager(logger *slog.Logger) *Manager {
	return &Manager{
		logger:    logger,
		heartbeat: defaultHeartbeat,
		events:    make(chan Event, eventQueueSize),
		byID:      make(map[string]*Client),
		byUser:    make(map[string]map[string]*Client),
	}
}

// Start runs the dispatch loop until ctx is cancelled or Shutdown drains the
// queue. Call it once, in its own goroutine.
func (m *Manager) Start(ctx context.Context) {
	m.running.Add(1)
	defer m.running.Done()

	ticker := time.NewTicker(m.heartbeat)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-m.events:
			if !ok {
				return
			}
			m.dispatch(event)
		case <-ticker.C:
			m.dispatch(NewHeartbeatEvent())
		case <-ctx.Done():
			m.disconnectAll()
			return
		}
	}
}

// Shutdown stops accepting events, delivers what is already queued, and
// closes every stream.
func (m *Manager) Shutdown(ctx context.Context) error {
	m.closedMu.Lock()
	if m.closed {
		m.closedMu.Unlock()
		return nil
	}
	m.closed = true
	close(m.events)
	m.closedMu.Unlock()

	drained := make(chan struct{})
	go func() {
		defer close(drained)
		m.running.Wait()
		for event := range m.events {
			m.dispatch(event)
		}
	}()

	select {
	case <-drained:
	case <-ctx.Done():
		m.logger.Warn("SSE shutdown timed out, pending events dropped")
	}
	m.disconnectAll()
	return nil
}

// Emit queues an event. It implements store.EventEmitter and never blocks:
// when the queue is full the event is dropped and logged.
func (m *Manager) Emit(event any) {
	evt, ok := event.(Event)
	if !ok {
		m.logger.Error("ignoring non-SSE event", slog.Any("event", event))
		return
	}

	m.closedMu.RLock()
	defer m.closedMu.RUnlock()
	if m.closed {
		return
	}

	select {
	case m.events <- evt:
	default:
		m.logger.Error("SSE queue full, dropping event", slog.String("event_type", string(evt.Type)))
	}
}

// recipients returns the streams an event should reach. Caller holds mu.
func (m *Manager) recipients(event Event) []*Client {
	if event.UserID != "" {
		streams := m.byUser[event.UserID]
		out := make([]*Client, 0, len(streams))
		for _, c := range streams {
			out = append(out, c)
		}
		return out
	}

	adminOnly := event.Type == EventRequestCreated
	out := make([]*Client, 0, len(m.byID))
	for _, c := range m.byID {
		if adminOnly && !c.IsAdmin {
			continue
		}
		out = append(out, c)
	}
	return out
}

func (m *Manager) dispatch(event Event) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	targets := m.recipients(event)
	dropped := 0
	for _, c := range targets {
		select {
		case c.EventChan <- event:
		default:
			dropped++
		}
	}

	if dropped > 0 {
		m.logger.Warn("SSE clients too slow, events dropped",
			slog.String("event_type", string(event.Type)),
			slog.Int("dropped", dropped))
	}
	if event.Type != EventHeartbeat {
		m.logger.Debug("SSE event dispatched",
			slog.String("event_type", string(event.Type)),
			slog.Int("recipients", len(targets)-dropped))
	}
}

// Connect opens a stream for an authenticated member.
func (m *Manager) Connect(userID string, isAdmin bool) (*Client, error) {
	clientID, err := id.Generate("sse")
	if err != nil {
		return nil, err
	}
	c := &Client{
		ID:          clientID,
		UserID:      userID,
		IsAdmin:     isAdmin,
		ConnectedAt: time.Now(),
		EventChan:   make(chan Event, clientBufferSize),
		Done:        make(chan struct{}),
	}

	m.mu.Lock()
	m.byID[c.ID] = c
	if m.byUser[userID] == nil {
		m.byUser[userID] = make(map[string]*Client)
	}
	m.byUser[userID][c.ID] = c
	total := len(m.byID)
	m.mu.Unlock()

	m.logger.Info("SSE client connected",
		slog.String("client_id", c.ID),
		slog.String("user_id", userID),
		slog.Int("total_clients", total))
	return c, nil
}

// Disconnect closes one stream. Unknown IDs are ignored.
func (m *Manager) Disconnect(clientID string) {
	m.mu.Lock()
	c, ok := m.byID[clientID]
	if ok {
		m.remove(c)
	}
	m.mu.Unlock()

	if ok {
		m.logger.Info("SSE client disconnected",
			slog.String("client_id", clientID),
			slog.Duration("connected_for", time.Since(c.ConnectedAt)))
	}
}

// remove unregisters and closes c. Caller holds mu for writing.
func (m *Manager) remove(c *Client) {
	delete(m.byID, c.ID)
	if streams := m.byUser[c.UserID]; streams != nil {
		delete(streams, c.ID)
		if len(streams) == 0 {
			delete(m.byUser, c.UserID)
		}
	}
	close(c.Done)
	close(c.EventChan)
}

func (m *Manager) disconnectAll() {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.byID {
		m.remove(c)
	}
}

// ClientCount returns the number of open streams.
func (m *Manager) ClientCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.byID)
}
