package ports

import (
	"ledger-wallet/internal/core/domain"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// CreateAccountRequest holds the input for creating an account.
type CreateAccountRequest struct {
	Alias string
	Nodes []domain.NodeConfig
}

// Validate checks every node configuration.
func (r CreateAccountRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Alias, validation.Length(0, 64)),
		validation.Field(&r.Nodes, validation.Required),
	)
}

// TransferRequest holds the input for a value transfer.
type TransferRequest struct {
	Address    string
	Amount     uint64
	Indexation *domain.Indexation
}

// Validate checks the request shape. Address encoding is checked by the
// deriver.
func (r TransferRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Address, validation.Required),
		validation.Field(&r.Amount, validation.Required),
	)
}
