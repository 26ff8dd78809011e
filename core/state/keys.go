package state

import "fmt"

var (
	tokenInfoKey       = []byte("token/info")
	tokenHoldersKey    = []byte("token/holders")
	investInfoKey      = []byte("invest/info")
	investSupplyKey    = []byte("invest/supply")
	reinvestMarkerKey  = []byte("invest/reinvest-marker")
	settlementModeKey  = []byte("bank/settlement-mode")
	stakingUnbondKey   = []byte("staking/unbondings")
	tokenBalancePrefix = "token/balance/"
	tokenBackingPrefix = "token/backing/"
	investClaimsPrefix = "invest/claims/"
)

func tokenBalanceKey(addr [20]byte) []byte {
	return append([]byte(tokenBalancePrefix), addr[:]...)
}

func tokenBackingKey(addr [20]byte, kind uint8) []byte {
	key := append([]byte(tokenBackingPrefix), kind, '/')
	return append(key, addr[:]...)
}

func investClaimsKey(owner [20]byte) []byte {
	return append([]byte(investClaimsPrefix), owner[:]...)
}

func bankBalanceKey(addr [20]byte, denom string) []byte {
	return append([]byte(fmt.Sprintf("bank/balance/%s/", denom)), addr[:]...)
}

func bankSupplyKey(denom string) []byte {
	return []byte("bank/supply/" + denom)
}

func delegationKey(delegator [20]byte, validator string) []byte {
	key := append([]byte("staking/delegation/"), delegator[:]...)
	return append(key, []byte("/"+validator)...)
}

func delegatorValidatorsKey(delegator [20]byte) []byte {
	return append([]byte("staking/delegator-validators/"), delegator[:]...)
}

func validatorDelegatorsKey(validator string) []byte {
	return []byte("staking/validator-delegators/" + validator)
}

func rewardsKey(delegator [20]byte, validator string) []byte {
	key := append([]byte("staking/rewards/"), delegator[:]...)
	return append(key, []byte("/"+validator)...)
}
