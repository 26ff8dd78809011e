package crypto

import (
	"fmt"

	"github.com/btcsuite/btcutil/bech32"
	"github.com/ethereum/go-ethereum/crypto"
)

// AddressPrefix defines the different types of human-readable address prefixes.
type AddressPrefix string

const (
	AccountPrefix   AddressPrefix = "stb"
	ValidatorPrefix AddressPrefix = "stbvaloper"
)

// AddressLength is the size of a raw account identifier.
const AddressLength = 20

// Address represents a 20-byte account identifier with a specific prefix.
type Address struct {
	prefix AddressPrefix
	raw    [AddressLength]byte
}

// NewAddress wraps b, which must be exactly 20 bytes long.
func NewAddress(prefix AddressPrefix, b []byte) (Address, error) {
	if len(b) != AddressLength {
		return Address{}, fmt.Errorf("address must be %d bytes long, got %d", AddressLength, len(b))
	}
	var raw [AddressLength]byte
	copy(raw[:], b)
	return Address{prefix: prefix, raw: raw}, nil
}

// MustNewAddress is NewAddress that panics on malformed input.
func MustNewAddress(prefix AddressPrefix, b []byte) Address {
	addr, err := NewAddress(prefix, b)
	if err != nil {
		panic(err)
	}
	return addr
}

func (a Address) String() string {
	conv, err := bech32.ConvertBits(a.raw[:], 8, 5, true)
	if err != nil {
		panic(err)
	}
	encoded, err := bech32.Encode(string(a.prefix), conv)
	if err != nil {
		panic(err)
	}
	return encoded
}

func (a Address) Bytes() []byte {
	out := make([]byte, AddressLength)
	copy(out, a.raw[:])
	return out
}

// Raw returns the fixed-size identifier used as a state key.
func (a Address) Raw() [AddressLength]byte {
	return a.raw
}

// Prefix returns the human-readable prefix associated with the address.
func (a Address) Prefix() AddressPrefix {
	return a.prefix
}

func DecodeAddress(addrStr string) (Address, error) {
	prefix, decoded, err := bech32.Decode(addrStr)
	if err != nil {
		return Address{}, fmt.Errorf("invalid bech32 string: %w", err)
	}
	conv, err := bech32.ConvertBits(decoded, 5, 8, false)
	if err != nil {
		return Address{}, fmt.Errorf("error converting bits: %w", err)
	}
	return NewAddress(AddressPrefix(prefix), conv)
}

// ParseAccount decodes an account address and rejects foreign prefixes.
func ParseAccount(addrStr string) ([AddressLength]byte, error) {
	addr, err := DecodeAddress(addrStr)
	if err != nil {
		return [AddressLength]byte{}, err
	}
	if addr.prefix != AccountPrefix {
		return [AddressLength]byte{}, fmt.Errorf("unexpected address prefix %q", addr.prefix)
	}
	return addr.raw, nil
}

// AccountString renders a raw account identifier in bech32 form.
func AccountString(raw [AddressLength]byte) string {
	return Address{prefix: AccountPrefix, raw: raw}.String()
}

// ContractAddress derives the deterministic identity of a contract instance
// from its label.
func ContractAddress(label string) [AddressLength]byte {
	return truncate(crypto.Keccak256([]byte("contract:" + label)))
}

// DeriveAddress derives a sub-account owned by base for the named purpose.
func DeriveAddress(base [AddressLength]byte, purpose string) [AddressLength]byte {
	return truncate(crypto.Keccak256(base[:], []byte("/"+purpose)))
}

func truncate(hash []byte) [AddressLength]byte {
	var out [AddressLength]byte
	copy(out[:], hash[len(hash)-AddressLength:])
	return out
}
