package types

// Env carries the execution context of a single contract invocation.
type Env struct {
	// Height is the block height the invocation executes at.
	Height uint64
	// Time is the block time in unix seconds.
	Time uint64
	// Contract is the contract's own account identity.
	Contract [20]byte
}

// MessageInfo identifies the sender of an invocation and the funds it
// attached.
type MessageInfo struct {
	Sender [20]byte
	Funds  Coins
}

// Delegation is a staking position as reported by the staking subsystem.
type Delegation struct {
	Delegator [20]byte
	Validator string
	Amount    Coin
}
