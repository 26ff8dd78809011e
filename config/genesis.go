package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"stakebank/core"
	coreerrors "stakebank/core/errors"
	"stakebank/core/types"
)

// GenesisAccount seeds a settlement-chain balance.
type GenesisAccount struct {
	Address string          `yaml:"address"`
	Coins   []core.WireCoin `yaml:"coins"`
}

// Genesis describes the initial state of a daemon: funded accounts and the
// contract instantiation.
type Genesis struct {
	Time     uint64              `yaml:"time"`
	Admin    string              `yaml:"admin"`
	Accounts []GenesisAccount    `yaml:"accounts"`
	Contract core.InstantiateMsg `yaml:"contract"`
}

// LoadGenesis decodes a YAML genesis file. Unknown keys are rejected.
func LoadGenesis(path string) (*Genesis, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseGenesis(raw)
}

// ParseGenesis decodes a YAML genesis document.
func ParseGenesis(raw []byte) (*Genesis, error) {
	dec := yaml.NewDecoder(bytes.NewReader(raw))
	dec.KnownFields(true)
	genesis := new(Genesis)
	if err := dec.Decode(genesis); err != nil {
		return nil, fmt.Errorf("genesis: %w", err)
	}
	if _, err := core.ParseAddress(genesis.Admin); err != nil {
		return nil, fmt.Errorf("genesis: admin: %w", err)
	}
	for i, account := range genesis.Accounts {
		if _, err := core.ParseAddress(account.Address); err != nil {
			return nil, fmt.Errorf("genesis: account %d: %w", i, err)
		}
	}
	return genesis, nil
}

// Apply funds the genesis accounts and instantiates the contract. A host
// that was already instantiated is left untouched.
func (g *Genesis) Apply(host *core.Host) error {
	if g == nil || host == nil {
		return fmt.Errorf("genesis: host and genesis required")
	}
	admin, err := core.ParseAddress(g.Admin)
	if err != nil {
		return err
	}
	block := core.Block{Height: 0, Time: g.Time}
	_, err = host.Instantiate(block, types.MessageInfo{Sender: admin}, &g.Contract)
	if errors.Is(err, coreerrors.ErrAlreadyInitialized) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("genesis: instantiate: %w", err)
	}
	for _, account := range g.Accounts {
		addr, err := core.ParseAddress(account.Address)
		if err != nil {
			return err
		}
		if err := host.Fund(addr, core.ToCoins(account.Coins)); err != nil {
			return fmt.Errorf("genesis: fund %s: %w", account.Address, err)
		}
	}
	return nil
}
