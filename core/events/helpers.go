package events

import (
	"math/big"
	"strconv"

	"stakebank/crypto"
)

func formatAmount(v *big.Int) string {
	if v == nil {
		return "0"
	}
	return v.String()
}

func formatAccount(addr [20]byte) string {
	return crypto.AccountString(addr)
}

func zeroAddress(addr [20]byte) bool {
	return addr == [20]byte{}
}

func formatUint(v uint64) string {
	return strconv.FormatUint(v, 10)
}
