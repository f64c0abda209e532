package models

// ResultRecord is one place extracted from the results list, in DOM order.
// Latitude and Longitude are nil when the page did not expose usable coordinates.
type ResultRecord struct {
	Name      string   `json:"name"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Address   string   `json:"address,omitempty"`
	Country   string   `json:"country,omitempty"`
	Type      string   `json:"type,omitempty"`
}

// HasCoordinates reports whether both coordinates are present.
func (r ResultRecord) HasCoordinates() bool {
	return r.Latitude != nil && r.Longitude != nil
}
