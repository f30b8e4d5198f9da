package models

import (
	"fmt"
	"strings"
)

// DomainMode selects display labels. Field semantics never change between modes:
// ExpiryDate always marks the end of usability.
type DomainMode string

// Domain modes
const (
	DomainGrocery  DomainMode = "grocery"
	DomainFashion  DomainMode = "fashion"
	DomainPharmacy DomainMode = "pharmacy"
)

// Labels maps fields and statuses to their display text for a mode
type Labels struct {
	Mode         DomainMode `json:"mode"`
	Product      string     `json:"product"`
	Batch        string     `json:"batch"`
	ExpiryDate   string     `json:"expiryDate"`
	ShelfLife    string     `json:"shelfLife"`
	Fresh        string     `json:"fresh"`
	ExpiringSoon string     `json:"expiringSoon"`
	Expired      string     `json:"expired"`
	Unknown      string     `json:"unknown"`
}

var labelTable = map[DomainMode]Labels{
	DomainGrocery: {
		Mode:         DomainGrocery,
		Product:      "Product",
		Batch:        "Batch",
		ExpiryDate:   "Expiry date",
		ShelfLife:    "Shelf life (days)",
		Fresh:        "Fresh",
		ExpiringSoon: "Expiring soon",
		Expired:      "Expired",
		Unknown:      "Unknown",
	},
	DomainFashion: {
		Mode:         DomainFashion,
		Product:      "Style",
		Batch:        "Delivery",
		ExpiryDate:   "Season end",
		ShelfLife:    "Season length (days)",
		Fresh:        "In season",
		ExpiringSoon: "Season ending",
		Expired:      "Out of season",
		Unknown:      "Unknown",
	},
	DomainPharmacy: {
		Mode:         DomainPharmacy,
		Product:      "Medicine",
		Batch:        "Lot",
		ExpiryDate:   "Use by",
		ShelfLife:    "Stability (days)",
		Fresh:        "In date",
		ExpiringSoon: "Short dated",
		Expired:      "Out of date",
		Unknown:      "Unknown",
	},
}

// ParseDomainMode resolves a configured mode name
func ParseDomainMode(s string) (DomainMode, error) {
	mode := DomainMode(strings.ToLower(strings.TrimSpace(s)))
	if mode == "" {
		return DomainGrocery, nil
	}
	if _, ok := labelTable[mode]; !ok {
		return "", fmt.Errorf("unknown domain mode: %s", s)
	}
	return mode, nil
}

// LabelsFor returns the label table of a mode, falling back to grocery
func LabelsFor(mode DomainMode) Labels {
	if l, ok := labelTable[mode]; ok {
		return l
	}
	return labelTable[DomainGrocery]
}

// StatusLabel returns the display text of a status
func (l Labels) StatusLabel(status FreshnessStatus) string {
	switch status {
	case StatusFresh:
		return l.Fresh
	case StatusExpiringSoon:
		return l.ExpiringSoon
	case StatusExpired:
		return l.Expired
	default:
		return l.Unknown
	}
}
