package models

import "encoding/json"

// AuthorityTier selects which signing authority an operation requires
type AuthorityTier string

const (
	// AuthorityActive is required for balance-moving operations
	AuthorityActive AuthorityTier = "active"
	// AuthorityLimited is the posting-equivalent tier for non-financial ops
	AuthorityLimited AuthorityTier = "limited"
)

// ContractCall is the sidechain contract triple carried inside an envelope
type ContractCall struct {
	ContractName    string      `json:"contractName"`
	ContractAction  string      `json:"contractAction"`
	ContractPayload interface{} `json:"contractPayload"`
}

// OperationEnvelope is an unsigned, structured description of a sidechain
// action, ready to be handed to an external signer for authorization and
// broadcast. This service never holds private keys. Envelopes are built
// once and never mutated after construction.
type OperationEnvelope struct {
	RequiredActiveAuths  []string `json:"requiredActiveAuths"`
	RequiredLimitedAuths []string `json:"requiredLimitedAuths"`
	Payload              string   `json:"payload"`
}

// NewOperationEnvelope wraps a contract call for the given signer and
// authority tier. The payload is the JSON encoding of the triple.
func NewOperationEnvelope(signer string, tier AuthorityTier, call ContractCall) (OperationEnvelope, error) {
	payload, err := json.Marshal(call)
	if err != nil {
		return OperationEnvelope{}, err
	}

	env := OperationEnvelope{
		RequiredActiveAuths:  []string{},
		RequiredLimitedAuths: []string{},
		Payload:              string(payload),
	}
	if tier == AuthorityLimited {
		env.RequiredLimitedAuths = []string{signer}
	} else {
		env.RequiredActiveAuths = []string{signer}
	}
	return env, nil
}

// RewardPayout is one (recipient, amount) pair of a reward distribution
type RewardPayout struct {
	Account string `json:"account"`
	Amount  string `json:"amount"`
}
