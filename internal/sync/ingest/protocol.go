// Package ingest implements the ingest actor: a single state machine per
// Manager that requests missing operations from an external driver and
// applies them transactionally.
package ingest

import (
	"errors"

	"github.com/google/uuid"

	"github.com/iudanet/catalogsync/internal/models"
)

// ErrProtocol indicates an event that does not fit the current state, e.g.
// messages received with no outstanding request
var ErrProtocol = errors.New("ingest protocol error")

// Request is emitted by the actor to the driver holding the request handle.
type Request interface {
	isRequest()
}

// RequestMessages asks the driver for operations newer than Timestamps.
// Seq identifies the request; the answering EventMessages must carry it back.
type RequestMessages struct {
	Timestamps models.Watermark // Timestamps watermark запрашивающего узла
	Seq        uint64
	InstanceID uuid.UUID // InstanceID запрашивающий узел
}

// RequestIngested reports that a batch cycle was applied.
type RequestIngested struct{}

// RequestFinishedIngesting ends the cycle; the driver may release the handle.
type RequestFinishedIngesting struct{}

func (RequestMessages) isRequest()          {}
func (RequestIngested) isRequest()          {}
func (RequestFinishedIngesting) isRequest() {}

// Reply builds the event answering r.
func (r RequestMessages) Reply(from uuid.UUID, ops []*models.CRDTOperation, hasMore bool) EventMessages {
	return EventMessages{
		InstanceID: from,
		Messages:   ops,
		HasMore:    hasMore,
		Seq:        r.Seq,
	}
}

// Event is fed into the actor by drivers.
type Event interface {
	isEvent()
}

// EventNotification kicks off (or restarts) a request cycle.
type EventNotification struct{}

// EventMessages answers a RequestMessages.
type EventMessages struct {
	Messages   []*models.CRDTOperation
	Seq        uint64    // Seq номер запроса, на который это ответ
	InstanceID uuid.UUID // InstanceID узел, вернувший пакет
	HasMore    bool      // HasMore пакет был обрезан по лимиту
}

func (EventNotification) isEvent() {}
func (EventMessages) isEvent()     {}
