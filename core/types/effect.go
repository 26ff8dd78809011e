package types

import "fmt"

// EffectKind enumerates the outbound instructions an invocation may queue.
type EffectKind string

const (
	EffectDelegate        EffectKind = "delegate"
	EffectUndelegate      EffectKind = "undelegate"
	EffectWithdrawRewards EffectKind = "withdraw_rewards"
	EffectBankSend        EffectKind = "bank_send"
	EffectBankMint        EffectKind = "bank_mint"
	EffectBankBurn        EffectKind = "bank_burn"
	EffectSelfCall        EffectKind = "self_call"
)

// Effect is an instruction dispatched by the host after the invocation that
// produced it has been committed. Effects run strictly in emission order.
type Effect struct {
	Kind      EffectKind `json:"kind"`
	Validator string     `json:"validator,omitempty"`
	From      [20]byte   `json:"-"`
	To        [20]byte   `json:"-"`
	Coin      Coin       `json:"coin"`
	Call      *SelfCall  `json:"call,omitempty"`
}

// SelfCall routes a privileged message back into the contract with the
// contract itself as sender.
type SelfCall struct {
	Method string `json:"method"`
	Token  string `json:"token,omitempty"`
}

func (e Effect) String() string {
	switch e.Kind {
	case EffectDelegate, EffectUndelegate:
		return fmt.Sprintf("%s %s to %s", e.Kind, e.Coin, e.Validator)
	case EffectWithdrawRewards:
		return fmt.Sprintf("%s from %s", e.Kind, e.Validator)
	case EffectSelfCall:
		if e.Call == nil {
			return string(e.Kind)
		}
		return fmt.Sprintf("%s %s", e.Kind, e.Call.Method)
	default:
		return fmt.Sprintf("%s %s", e.Kind, e.Coin)
	}
}

func DelegateEffect(validator string, coin Coin) Effect {
	return Effect{Kind: EffectDelegate, Validator: validator, Coin: coin.Copy()}
}

func UndelegateEffect(validator string, coin Coin) Effect {
	return Effect{Kind: EffectUndelegate, Validator: validator, Coin: coin.Copy()}
}

func WithdrawRewardsEffect(validator string) Effect {
	return Effect{Kind: EffectWithdrawRewards, Validator: validator}
}

func BankSendEffect(from, to [20]byte, coin Coin) Effect {
	return Effect{Kind: EffectBankSend, From: from, To: to, Coin: coin.Copy()}
}

func BankMintEffect(to [20]byte, coin Coin) Effect {
	return Effect{Kind: EffectBankMint, To: to, Coin: coin.Copy()}
}

func BankBurnEffect(from [20]byte, coin Coin) Effect {
	return Effect{Kind: EffectBankBurn, From: from, Coin: coin.Copy()}
}

func SelfCallEffect(method, token string) Effect {
	return Effect{Kind: EffectSelfCall, Call: &SelfCall{Method: method, Token: token}}
}

// Attribute is a key/value pair describing an invocation outcome.
type Attribute struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

// Response is returned by every successful execute entry point.
type Response struct {
	Effects    []Effect    `json:"effects"`
	Attributes []Attribute `json:"attributes"`
}

// AddEffect appends an outbound instruction.
func (r *Response) AddEffect(effect Effect) *Response {
	r.Effects = append(r.Effects, effect)
	return r
}

// AddAttribute appends a key/value attribute.
func (r *Response) AddAttribute(key, value string) *Response {
	r.Attributes = append(r.Attributes, Attribute{Key: key, Value: value})
	return r
}

// Attribute returns the first value stored under key.
func (r *Response) Attribute(key string) (string, bool) {
	if r == nil {
		return "", false
	}
	for _, attr := range r.Attributes {
		if attr.Key == key {
			return attr.Value, true
		}
	}
	return "", false
}
