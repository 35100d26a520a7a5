package domain

import (
	"errors"
	"net/url"

	validation "github.com/go-ozzo/ozzo-validation/v4"
)

// NodeAuth holds basic auth credentials for a node.
type NodeAuth struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// NodeConfig describes one ledger node an account talks to.
type NodeConfig struct {
	URL      string    `json:"url"`
	Disabled bool      `json:"disabled"`
	Auth     *NodeAuth `json:"auth,omitempty"`
	JWT      string    `json:"jwt,omitempty"`
}

// Validate checks the URL and credentials shape.
func (n NodeConfig) Validate() error {
	return validation.ValidateStruct(&n,
		validation.Field(&n.URL, validation.Required, validation.By(nodeURL)),
		validation.Field(&n.Auth, validation.By(func(value interface{}) error {
			auth, _ := value.(*NodeAuth)
			if auth != nil && auth.Username == "" {
				return errors.New("username is required when auth is set")
			}
			return nil
		})),
	)
}

// EnabledNodes filters out disabled nodes, keeping order.
func EnabledNodes(nodes []NodeConfig) []NodeConfig {
	var out []NodeConfig
	for _, n := range nodes {
		if !n.Disabled {
			out = append(out, n)
		}
	}
	return out
}

func nodeURL(value interface{}) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		return errors.New("must be an http(s) URL")
	}
	return nil
}

// ManagerSettings are the wallet-wide parameters stored accounts were
// derived under. HRP and coin type are fixed for the life of a database.
type ManagerSettings struct {
	HRP      string       `json:"hrp"`
	CoinType uint32       `json:"coin_type"`
	Nodes    []NodeConfig `json:"nodes"`
}

// SameDerivation reports whether o derives the same addresses as s.
func (s ManagerSettings) SameDerivation(o ManagerSettings) bool {
	return s.HRP == o.HRP && s.CoinType == o.CoinType
}
