package handler

import (
	"errors"

	"ledger-wallet/internal/adapter/http/dto"
	"ledger-wallet/internal/adapter/nodesim"
	"ledger-wallet/internal/core/domain"
	"ledger-wallet/pkg/address"
	"ledger-wallet/pkg/apperror"
	"ledger-wallet/pkg/response"

	"github.com/gin-gonic/gin"
)

// NodeHandler serves the ledger node API over a simulated ledger.
type NodeHandler struct {
	ledger *nodesim.Ledger
}

// NewNodeHandler creates a new NodeHandler.
func NewNodeHandler(ledger *nodesim.Ledger) *NodeHandler {
	return &NodeHandler{ledger: ledger}
}

// AddressOutputs handles GET /api/v1/addresses/:address/outputs.
func (h *NodeHandler) AddressOutputs(c *gin.Context) {
	var uri dto.AddressURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	if err := address.Validate(h.ledger.HRP(), uri.Address); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	outputs := h.ledger.AddressOutputs(uri.Address)
	resp := dto.AddressOutputsResponse{
		Address: uri.Address,
		Outputs: make([]dto.OutputResponse, 0, len(outputs)),
	}
	for _, o := range outputs {
		resp.Outputs = append(resp.Outputs, dto.NewOutputResponse(o))
	}
	response.OK(c, resp)
}

// Output handles GET /api/v1/outputs/:id.
func (h *NodeHandler) Output(c *gin.Context) {
	var uri dto.OutputURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	o, err := h.ledger.Output(uri.ID)
	if errors.Is(err, nodesim.ErrOutputNotFound) {
		response.Error(c, apperror.ErrNotFound("output"))
		return
	}
	if err != nil {
		response.Error(c, apperror.InternalError(err))
		return
	}
	response.OK(c, dto.NewOutputResponse(o))
}

// Message handles GET /api/v1/messages/:id.
func (h *NodeHandler) Message(c *gin.Context) {
	var uri dto.MessageURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	m, err := h.ledger.Message(uri.ID)
	if err != nil {
		response.Error(c, nodesim.ToAppError(err))
		return
	}
	response.OK(c, dto.NewMessageResponse(m))
}

// MessageMetadata handles GET /api/v1/messages/:id/metadata.
func (h *NodeHandler) MessageMetadata(c *gin.Context) {
	var uri dto.MessageURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if _, err := h.ledger.Message(uri.ID); err != nil {
		response.Error(c, nodesim.ToAppError(err))
		return
	}
	response.OK(c, dto.MetadataResponse{
		MessageID:            uri.ID,
		LedgerInclusionState: string(h.ledger.State(uri.ID)),
	})
}

// SubmitMessage handles POST /api/v1/messages.
func (h *NodeHandler) SubmitMessage(c *gin.Context) {
	var req dto.SubmitMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	id, err := h.ledger.Submit(*req.Payload)
	if err != nil {
		response.Error(c, nodesim.ToAppError(err))
		return
	}
	response.Created(c, dto.MessageIDResponse{MessageID: id})
}

// PromoteMessage handles POST /api/v1/messages/:id/promote.
func (h *NodeHandler) PromoteMessage(c *gin.Context) {
	var uri dto.MessageURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	id, err := h.ledger.Promote(uri.ID)
	if err != nil {
		response.Error(c, nodesim.ToAppError(err))
		return
	}
	response.Created(c, dto.MessageIDResponse{MessageID: id})
}

// Faucet handles POST /api/v1/dev/faucet.
func (h *NodeHandler) Faucet(c *gin.Context) {
	var req dto.FaucetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	dto.TrimStrings(&req)

	id, err := h.ledger.Faucet(req.Address, req.Amount)
	if err != nil {
		response.Error(c, nodesim.ToAppError(err))
		return
	}
	response.Created(c, dto.MessageIDResponse{MessageID: id})
}

// SetState handles POST /api/v1/dev/messages/:id/state.
func (h *NodeHandler) SetState(c *gin.Context) {
	var uri dto.MessageURI
	if err := c.ShouldBindUri(&uri); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}
	var req dto.SetStateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, apperror.Validation(err.Error()))
		return
	}

	if err := h.ledger.SetState(uri.ID, domain.ConfirmationState(req.State)); err != nil {
		response.Error(c, nodesim.ToAppError(err))
		return
	}
	response.OK(c, dto.MetadataResponse{MessageID: uri.ID, LedgerInclusionState: req.State})
}
