package dto

import (
	"time"

	"ledger-wallet/internal/core/domain"
	"ledger-wallet/internal/core/ports"
)

// MessageURI binds the :id path parameter of message routes.
type MessageURI struct {
	ID string `uri:"id" binding:"required,hex_id"`
}

// OutputURI binds the :id path parameter of output routes.
type OutputURI struct {
	ID string `uri:"id" binding:"required,output_id"`
}

// AddressURI binds the :address path parameter.
type AddressURI struct {
	Address string `uri:"address" binding:"required,max=128"`
}

// SubmitMessageRequest is the request body for message submission.
type SubmitMessageRequest struct {
	Payload *domain.Payload `json:"payload" binding:"required"`
}

// MessageIDResponse is returned by submit and promote.
type MessageIDResponse struct {
	MessageID string `json:"message_id"`
}

// FaucetRequest is the request body for the dev faucet.
type FaucetRequest struct {
	Address string `json:"address" binding:"required,max=128"`
	Amount  uint64 `json:"amount" binding:"required,gt=0"`
}

// SetStateRequest is the request body for overriding inclusion state.
type SetStateRequest struct {
	State string `json:"state" binding:"required,ledger_state"`
}

// OutputResponse is an output as the node reports it.
type OutputResponse struct {
	ID        string `json:"id"`
	MessageID string `json:"message_id"`
	Address   string `json:"address"`
	Amount    uint64 `json:"amount"`
	Spent     bool   `json:"spent"`
	SpentBy   string `json:"spent_by,omitempty"`
}

// AddressOutputsResponse lists every output ever created at an address.
type AddressOutputsResponse struct {
	Address string           `json:"address"`
	Outputs []OutputResponse `json:"outputs"`
}

// MessageResponse is a message as the node reports it.
type MessageResponse struct {
	ID        string         `json:"id"`
	Payload   domain.Payload `json:"payload"`
	Timestamp time.Time      `json:"timestamp"`
}

// MetadataResponse carries the ledger inclusion state of a message.
type MetadataResponse struct {
	MessageID            string `json:"message_id"`
	LedgerInclusionState string `json:"ledger_inclusion_state"`
}

// HealthResponse is the /health body.
type HealthResponse struct {
	Status       string            `json:"status"`
	Dependencies map[string]string `json:"dependencies,omitempty"`
}

func NewOutputResponse(o domain.Output) OutputResponse {
	return OutputResponse{
		ID:        o.ID,
		MessageID: o.MessageID,
		Address:   o.Address,
		Amount:    o.Amount,
		Spent:     o.Spent,
		SpentBy:   o.SpentBy,
	}
}

func (o OutputResponse) ToDomain() domain.Output {
	return domain.Output{
		ID:        o.ID,
		MessageID: o.MessageID,
		Address:   o.Address,
		Amount:    o.Amount,
		Spent:     o.Spent,
		SpentBy:   o.SpentBy,
	}
}

func NewMessageResponse(m ports.NodeMessage) MessageResponse {
	return MessageResponse{ID: m.ID, Payload: m.Payload, Timestamp: m.Timestamp}
}

func (m MessageResponse) ToNode() *ports.NodeMessage {
	return &ports.NodeMessage{ID: m.ID, Payload: m.Payload, Timestamp: m.Timestamp}
}
