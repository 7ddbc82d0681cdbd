// Package api describes the wire messages exchanged between instances and
// with the cloud relay. Operations travel as codec envelopes.
package api

import (
	"encoding/json"

	"github.com/iudanet/catalogsync/internal/models"
)

// GetOpsRequest запрос диапазона операций журнала
type GetOpsRequest struct {
	Clocks []models.InstanceTimestamp `json:"clocks"` // watermark запрашивающего узла
	Count  int                        `json:"count"`  // максимальное число операций
}

// OpsResponse ответ с операциями в глобальном порядке
type OpsResponse struct {
	Ops      [][]byte `json:"ops"`      // операции в формате codec
	Instance string   `json:"instance"` // узел, отдавший операции
}

// RelayRequest операции, пересланные облачным relay
type RelayRequest struct {
	Ops [][]byte `json:"ops"`
}

// RelayResponse результат зеркалирования пересланных операций
type RelayResponse struct {
	Stored int `json:"stored"` // количество новых операций
}

// Error codes carried by ErrorResponse
const (
	CodeValidation = "validation" // запрос или данные некорректны, повтор не поможет
	CodeInternal   = "internal"
)

// ErrorResponse тело ответа с ошибкой
type ErrorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

// MessageType тип сообщения websocket сессии
type MessageType string

// Websocket message types
const (
	TypeHello   MessageType = "hello"   // сервер представляется после подключения
	TypeGetOps  MessageType = "get_ops" // запрос операций
	TypeOps     MessageType = "ops"     // ответ на get_ops
	TypeError   MessageType = "error"   // ошибка обработки запроса
	TypeCreated MessageType = "created" // на сервере записаны новые операции
)

// Message is one websocket frame. Responses carry the ID of their request
type Message struct {
	Type    MessageType     `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
	ID      uint64          `json:"id,omitempty"`
}

// NewMessage builds a message with a JSON encoded payload
func NewMessage(t MessageType, id uint64, payload any) (*Message, error) {
	msg := &Message{Type: t, ID: id}
	if payload == nil {
		return msg, nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	msg.Payload = raw
	return msg, nil
}

// UnmarshalPayload decodes the message payload into v
func (m *Message) UnmarshalPayload(v any) error {
	return json.Unmarshal(m.Payload, v)
}

// HelloPayload полезная нагрузка hello
type HelloPayload struct {
	Instance string `json:"instance"`
	Name     string `json:"name,omitempty"` // имя узла для журнала instance
}
