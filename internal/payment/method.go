package payment

import "strings"

type Method string

const (
	MethodCash          Method = "cash"
	MethodBankTransfer  Method = "bank_transfer"
	MethodUPI           Method = "upi"
	MethodCheque        Method = "cheque"
	MethodCreditBalance Method = "credit_balance"
)

var methods = map[Method]string{
	MethodCash:          "Cash",
	MethodBankTransfer:  "Bank transfer",
	MethodUPI:           "UPI",
	MethodCheque:        "Cheque",
	MethodCreditBalance: "Credit balance",
}

// ParseMethod accepts any casing and surrounding whitespace.
func ParseMethod(s string) (Method, error) {
	m := Method(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := methods[m]; !ok {
		return "", ErrUnknownMethod
	}
	return m, nil
}

func (m Method) Valid() bool {
	_, ok := methods[m]
	return ok
}

func (m Method) Label() string {
	if l, ok := methods[m]; ok {
		return l
	}
	return string(m)
}

// DebitsWallet reports whether collecting with m draws on the client's
// credit wallet.
func (m Method) DebitsWallet() bool {
	return m == MethodCreditBalance
}
