package realtime

import (
	"encoding/json"
	"sync"

	"medbook/pkg/logger"
	"medbook/pkg/model"
)

// Gateway is the push surface the domain services emit through. A nil-safe
// implementation is always injected; there is no package-level hub.
type Gateway interface {
	// EmitNewAppointment pushes the full appointment to the doctor's room so
	// an open dashboard can render it without a refetch.
	EmitNewAppointment(doctorID string, appt *model.Appointment)
	// EmitStatusUpdate pushes a lightweight signal telling the room's clients
	// to refetch their appointment and notification lists.
	EmitStatusUpdate(room string, appointmentID string, status model.AppointmentState)
}

type Envelope struct {
	Event string `json:"event"`
	Data  any    `json:"data"`
}

const (
	EventNewAppointment = "newAppointment"
	EventStatusUpdate   = "appointmentStatusUpdate"
)

// Hub tracks connected clients per room. Rooms are keyed by principal id, so
// every doctor and patient has a private room; a principal may hold several
// connections (tabs, devices) at once.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Client]struct{}
	log   *logger.Logger
}

func NewHub(log *logger.Logger) *Hub {
	return &Hub{
		rooms: make(map[string]map[*Client]struct{}),
		log:   log,
	}
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[c.room]
	if !ok {
		clients = make(map[*Client]struct{})
		h.rooms[c.room] = clients
	}
	clients[c] = struct{}{}

	h.log.Debug("Realtime client joined", "room", c.room, "clients", len(clients))
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()

	clients, ok := h.rooms[c.room]
	if !ok {
		return
	}
	if _, present := clients[c]; !present {
		return
	}

	delete(clients, c)
	close(c.send)
	if len(clients) == 0 {
		delete(h.rooms, c.room)
	}

	h.log.Debug("Realtime client left", "room", c.room)
}

// broadcast delivers to every client in the room. Clients with a full send
// buffer are dropped rather than allowed to stall the caller.
func (h *Hub) broadcast(room string, env Envelope) {
	payload, err := json.Marshal(env)
	if err != nil {
		h.log.Error("Failed to encode realtime event", "event", env.Event, "error", err)
		return
	}

	h.mu.RLock()
	var slow []*Client
	for c := range h.rooms[room] {
		select {
		case c.send <- payload:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.log.Warn("Dropping slow realtime client", "room", room)
		h.unregister(c)
	}
}

func (h *Hub) EmitNewAppointment(doctorID string, appt *model.Appointment) {
	h.broadcast(doctorID, Envelope{Event: EventNewAppointment, Data: appt})
}

func (h *Hub) EmitStatusUpdate(room string, appointmentID string, status model.AppointmentState) {
	h.broadcast(room, Envelope{
		Event: EventStatusUpdate,
		Data: map[string]string{
			"appointment_id": appointmentID,
			"status":         string(status),
		},
	})
}

// RoomSize is used by tests and the health endpoint.
func (h *Hub) RoomSize(room string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[room])
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for room, clients := range h.rooms {
		for c := range clients {
			close(c.send)
		}
		delete(h.rooms, room)
	}
}

// NopGateway drops all events. Used in tests and when the realtime surface is
// disabled.
type NopGateway struct{}

func (NopGateway) EmitNewAppointment(string, *model.Appointment)             {}
func (NopGateway) EmitStatusUpdate(string, string, model.AppointmentState)   {}
