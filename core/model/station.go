package model

// StationConfig is a configured charging point as read from configuration.
type StationConfig struct {
	ID       string `json:"id" yaml:"id"`
	Location string `json:"location" yaml:"location"`
}

// Station is a charging point tracked by the allocator.
type Station struct {
	ID       string `json:"id"`
	Location string `json:"location"`
	Occupied bool   `json:"occupied"` // true while exactly one active session references the station
}
