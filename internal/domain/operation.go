package domain

import (
	"fmt"
	"strings"
)

// OperationKind is the closed set of ledger operations.
type OperationKind int

const (
	OperationBuy OperationKind = iota + 1
	OperationSell
	OperationBuyToCover
	OperationShortSell
)

// operationNames is the canonical string form written to the ledger.
var operationNames = map[OperationKind]string{
	OperationBuy:        "buy",
	OperationSell:       "sell",
	OperationBuyToCover: "buy to cover",
	OperationShortSell:  "short sell",
}

// AllOperationKinds lists the kinds in canonical order.
var AllOperationKinds = []OperationKind{
	OperationSell,
	OperationBuy,
	OperationBuyToCover,
	OperationShortSell,
}

// ParseOperationKind matches raw case-insensitively against the canonical names.
func ParseOperationKind(raw string) (OperationKind, error) {
	normalized := strings.ToLower(strings.TrimSpace(raw))
	for kind, name := range operationNames {
		if name == normalized {
			return kind, nil
		}
	}
	return 0, fmt.Errorf("%w (expected one of %s)", ErrInvalidOperationKind, strings.Join(operationKindNames(), ", "))
}

func operationKindNames() []string {
	names := make([]string, 0, len(AllOperationKinds))
	for _, k := range AllOperationKinds {
		names = append(names, operationNames[k])
	}
	return names
}

// String returns the canonical lowercase form, e.g. "buy to cover".
func (k OperationKind) String() string {
	if name, ok := operationNames[k]; ok {
		return name
	}
	return fmt.Sprintf("OperationKind(%d)", int(k))
}

// Valid reports whether k is one of the four known kinds.
func (k OperationKind) Valid() bool {
	_, ok := operationNames[k]
	return ok
}

// IsBuyClass is true for Buy and BuyToCover.
func (k OperationKind) IsBuyClass() bool {
	return k == OperationBuy || k == OperationBuyToCover
}

// IsSellClass is true for Sell and ShortSell.
func (k OperationKind) IsSellClass() bool {
	return k == OperationSell || k == OperationShortSell
}

// Sign is +1 for kinds that increase the held quantity and -1 otherwise.
func (k OperationKind) Sign() float64 {
	if k.IsSellClass() {
		return -1
	}
	return 1
}

// MarshalText implements encoding.TextMarshaler.
func (k OperationKind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("%w: %d", ErrInvalidOperationKind, int(k))
	}
	return []byte(k.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (k *OperationKind) UnmarshalText(text []byte) error {
	parsed, err := ParseOperationKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}
