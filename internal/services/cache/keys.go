package cache

import "fmt"

// Key identifies one cached backend resource.
type Key string

// SlotsKey is the slot listing of the current user.
func SlotsKey() Key { return "slots" }

// BankKey is the bank snapshot of a slot.
func BankKey(slot int) Key { return Key(fmt.Sprintf("slot/%d/bank", slot)) }

// ClientsKey is the client list of a slot.
func ClientsKey(slot int) Key { return Key(fmt.Sprintf("slot/%d/clients", slot)) }

// ProductsKey is the property market of a slot.
func ProductsKey(slot int) Key { return Key(fmt.Sprintf("slot/%d/products", slot)) }

// LoansKey is the loan applications of a slot.
func LoansKey(slot int) Key { return Key(fmt.Sprintf("slot/%d/loans", slot)) }

// MortgagesKey is the mortgage applications of a slot.
func MortgagesKey(slot int) Key { return Key(fmt.Sprintf("slot/%d/mortgages", slot)) }

// TransactionsKey is one client's ledger.
func TransactionsKey(slot int, clientID int64) Key {
	return Key(fmt.Sprintf("slot/%d/clients/%d/transactions", slot, clientID))
}

// PropertiesKey is the properties owned by one client.
func PropertiesKey(slot int, clientID int64) Key {
	return Key(fmt.Sprintf("slot/%d/clients/%d/properties", slot, clientID))
}

// InvestmentsKey is the bank's S&P 500 position and history.
func InvestmentsKey(slot int) Key { return Key(fmt.Sprintf("slot/%d/investments", slot)) }

// ClientKeys lists every key a change to one client's balances can affect.
func ClientKeys(slot int, clientID int64) []Key {
	return []Key{ClientsKey(slot), TransactionsKey(slot, clientID), BankKey(slot)}
}
