package dto

import (
	"strings"
	"testing"

	"ledger-wallet/internal/core/domain"

	"github.com/gin-gonic/gin/binding"
	"github.com/stretchr/testify/assert"
)

var sampleID = strings.Repeat("ab", 32)

func TestTrimStrings(t *testing.T) {
	req := FaucetRequest{Address: "  atoi1qxyz  ", Amount: 5}
	TrimStrings(&req)
	assert.Equal(t, "atoi1qxyz", req.Address)

	state := " CONFIRMED "
	ptr := struct{ State *string }{State: &state}
	TrimStrings(&ptr)
	assert.Equal(t, "CONFIRMED", state)

	TrimStrings("not a pointer") // no panic
}

func TestHexID(t *testing.T) {
	assert.True(t, hexIDRe.MatchString(sampleID))

	for _, tc := range []string{
		"",
		"abc",
		strings.Repeat("AB", 32),      // uppercase
		strings.Repeat("zz", 32),      // not hex
		sampleID + "00",               // too long
		sampleID[:63] + " ",           // whitespace
	} {
		assert.False(t, hexIDRe.MatchString(tc), "expected invalid: %q", tc)
	}
}

func TestOutputID(t *testing.T) {
	assert.True(t, outputIDRe.MatchString(sampleID+":0"))
	assert.True(t, outputIDRe.MatchString(sampleID+":12"))
	assert.False(t, outputIDRe.MatchString(sampleID))
	assert.False(t, outputIDRe.MatchString(sampleID+":"))
	assert.False(t, outputIDRe.MatchString("faucet-1:0"))
}

func TestBindingValidators(t *testing.T) {
	assert.NoError(t, binding.Validator.ValidateStruct(&MessageURI{ID: sampleID}))
	assert.Error(t, binding.Validator.ValidateStruct(&MessageURI{ID: "nope"}))

	assert.NoError(t, binding.Validator.ValidateStruct(&OutputURI{ID: sampleID + ":1"}))
	assert.Error(t, binding.Validator.ValidateStruct(&OutputURI{ID: sampleID}))

	assert.NoError(t, binding.Validator.ValidateStruct(&SetStateRequest{State: string(domain.ConfirmationConflicting)}))
	assert.Error(t, binding.Validator.ValidateStruct(&SetStateRequest{State: "FINAL"}))

	assert.Error(t, binding.Validator.ValidateStruct(&FaucetRequest{Address: "atoi1q"}), "zero amount")
	assert.Error(t, binding.Validator.ValidateStruct(&SubmitMessageRequest{}), "missing payload")
}

func TestOutputConversion(t *testing.T) {
	o := domain.Output{ID: sampleID + ":0", MessageID: sampleID, Address: "atoi1q", Amount: 7, Spent: true, SpentBy: sampleID}
	assert.Equal(t, o, NewOutputResponse(o).ToDomain())
}
