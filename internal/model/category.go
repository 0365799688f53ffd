package model

import "fmt"

// Category is the semantic role assigned to a connection or circuit.
//
//	INBOUND      relay connection, coming to us
//	OUTBOUND     relay connection, leaving us
//	EXIT         outbound connection leaving the network
//	HIDDEN       connection to a hidden service we are providing
//	SOCKS        client application using our socks listener
//	CIRCUIT      circuit our client has created
//	DIRECTORY    fetching consensus information
//	CONTROL      controller connection (this monitor, etc)
type Category string

const (
	CategoryInbound   Category = "INBOUND"
	CategoryOutbound  Category = "OUTBOUND"
	CategoryExit      Category = "EXIT"
	CategoryHidden    Category = "HIDDEN"
	CategorySocks     Category = "SOCKS"
	CategoryCircuit   Category = "CIRCUIT"
	CategoryDirectory Category = "DIRECTORY"
	CategoryControl   Category = "CONTROL"
)

// Categories lists every category in declaration order. The position in this
// list is the ranking used by the CATEGORY sort attribute.
var Categories = []Category{
	CategoryInbound,
	CategoryOutbound,
	CategoryExit,
	CategoryHidden,
	CategorySocks,
	CategoryCircuit,
	CategoryDirectory,
	CategoryControl,
}

// Ordinal returns the category's position in the declared order, or
// len(Categories) for an unrecognized value.
func (c Category) Ordinal() int {
	for i, v := range Categories {
		if v == c {
			return i
		}
	}
	return len(Categories)
}

// SortAttr is one attribute of the configured connection ordering.
type SortAttr string

const (
	SortByCategory    SortAttr = "CATEGORY"
	SortByUptime      SortAttr = "UPTIME"
	SortByIPAddress   SortAttr = "IP_ADDRESS"
	SortByPort        SortAttr = "PORT"
	SortByFingerprint SortAttr = "FINGERPRINT"
	SortByNickname    SortAttr = "NICKNAME"
	SortByCountry     SortAttr = "COUNTRY"
)

// SortAttrs lists every valid sort attribute.
var SortAttrs = []SortAttr{
	SortByCategory,
	SortByUptime,
	SortByIPAddress,
	SortByPort,
	SortByFingerprint,
	SortByNickname,
	SortByCountry,
}

// ParseSortAttr maps a configuration string to its SortAttr.
func ParseSortAttr(s string) (SortAttr, error) {
	for _, attr := range SortAttrs {
		if string(attr) == s {
			return attr, nil
		}
	}
	return "", fmt.Errorf("unknown sort attribute %q", s)
}

// ListenerRole identifies a locally configured listener port's purpose.
type ListenerRole string

const (
	ListenerOR      ListenerRole = "or"
	ListenerDir     ListenerRole = "dir"
	ListenerSocks   ListenerRole = "socks"
	ListenerControl ListenerRole = "control"
)
