package model

import (
	"sort"
	"strings"
)

// Province is a two-letter Canadian province or territory code.
type Province string

// Province and territory codes.
const (
	Alberta                 Province = "AB"
	BritishColumbia         Province = "BC"
	Manitoba                Province = "MB"
	NewBrunswick            Province = "NB"
	NewfoundlandAndLabrador Province = "NL"
	NovaScotia              Province = "NS"
	NorthwestTerritories    Province = "NT"
	Nunavut                 Province = "NU"
	Ontario                 Province = "ON"
	PrinceEdwardIsland      Province = "PE"
	Quebec                  Province = "QC"
	Saskatchewan            Province = "SK"
	Yukon                   Province = "YT"
)

var provinceNames = map[Province]string{
	Alberta:                 "Alberta",
	BritishColumbia:         "British Columbia",
	Manitoba:                "Manitoba",
	NewBrunswick:            "New Brunswick",
	NewfoundlandAndLabrador: "Newfoundland and Labrador",
	NovaScotia:              "Nova Scotia",
	NorthwestTerritories:    "Northwest Territories",
	Nunavut:                 "Nunavut",
	Ontario:                 "Ontario",
	PrinceEdwardIsland:      "Prince Edward Island",
	Quebec:                  "Quebec",
	Saskatchewan:            "Saskatchewan",
	Yukon:                   "Yukon",
}

// ParseProvince normalizes a code ("bc", " BC ") and reports whether it is known.
func ParseProvince(code string) (Province, bool) {
	p := Province(strings.ToUpper(strings.TrimSpace(code)))
	_, ok := provinceNames[p]
	return p, ok
}

// FullName returns the province's full English name, or "" for unknown codes.
func (p Province) FullName() string {
	return provinceNames[p]
}

// Valid reports whether p is one of the enumerated codes.
func (p Province) Valid() bool {
	_, ok := provinceNames[p]
	return ok
}

// Provinces returns all codes in alphabetical order.
func Provinces() []Province {
	out := make([]Province, 0, len(provinceNames))
	for p := range provinceNames {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
