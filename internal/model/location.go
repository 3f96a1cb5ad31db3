// Package model defines the canonical record shapes shared across the pipeline.
package model

import (
	"math"
	"strings"
)

// Canonical field names. Source column mappings target these names.
const (
	FieldStoreName   = "StoreName"
	FieldCity        = "City"
	FieldAddress     = "Address"
	FieldFullAddress = "FullAddress"
	FieldPostalCode  = "PostalCode"
	FieldLatitude    = "Latitude"
	FieldLongitude   = "Longitude"
	FieldX           = "X"
	FieldY           = "Y"
)

// CanonicalFields lists the mapping targets a source may declare.
var CanonicalFields = []string{
	FieldStoreName, FieldCity, FieldAddress, FieldFullAddress, FieldPostalCode,
	FieldLatitude, FieldLongitude, FieldX, FieldY,
}

// OutputColumns is the column order of a written StoreLocation.
var OutputColumns = []string{
	"StoreName", "City", "Province", "FullProvinceName",
	"Address", "PostalCode", "Latitude", "Longitude",
}

// IsCanonicalField reports whether name is a valid mapping target.
func IsCanonicalField(name string) bool {
	for _, f := range CanonicalFields {
		if f == name {
			return true
		}
	}
	return false
}

// ProjectedPoint is a source coordinate in a projected reference system.
type ProjectedPoint struct {
	X   float64
	Y   float64
	CRS string
}

// StoreLocation is the canonical record every regional store registry is mapped into.
// Latitude and Longitude are either both set or both nil; use SetCoordinates and
// ClearCoordinates rather than assigning them directly.
type StoreLocation struct {
	StoreName        string   `json:"store_name"`
	City             string   `json:"city"`
	Province         Province `json:"province"`
	FullProvinceName string   `json:"full_province_name"`
	Address          string   `json:"address"`
	PostalCode       string   `json:"postal_code,omitempty"`
	Latitude         *float64 `json:"latitude,omitempty"`
	Longitude        *float64 `json:"longitude,omitempty"`

	// Projected holds source coordinates awaiting reprojection. Not written out.
	Projected *ProjectedPoint `json:"-"`
}

// HasCoordinates reports whether both latitude and longitude are present.
func (s *StoreLocation) HasCoordinates() bool {
	return s.Latitude != nil && s.Longitude != nil
}

// SetCoordinates sets latitude and longitude together.
func (s *StoreLocation) SetCoordinates(lat, lng float64) {
	s.Latitude = &lat
	s.Longitude = &lng
}

// ClearCoordinates nulls latitude and longitude together.
func (s *StoreLocation) ClearCoordinates() {
	s.Latitude = nil
	s.Longitude = nil
}

// FillPostalCode sets the postal code only if none has been resolved yet.
// It returns true when the value was written.
func (s *StoreLocation) FillPostalCode(postal string) bool {
	if s.PostalCode != "" || postal == "" {
		return false
	}
	s.PostalCode = postal
	return true
}

// IsMissing reports whether a raw cell holds one of the missing-value tokens
// found in the source exports.
func IsMissing(v string) bool {
	switch strings.TrimSpace(v) {
	case "", "NaN", "nan", "NULL", "null":
		return true
	}
	return false
}

// ValidLatLng reports whether lat and lng are finite and within the
// geographic range.
func ValidLatLng(lat, lng float64) bool {
	if math.IsNaN(lat) || math.IsNaN(lng) || math.IsInf(lat, 0) || math.IsInf(lng, 0) {
		return false
	}
	return math.Abs(lat) <= 90 && math.Abs(lng) <= 180
}
