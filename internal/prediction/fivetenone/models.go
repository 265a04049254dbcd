package fivetenone

import "time"

// VehicleActivity is one observed vehicle position on a line.
type VehicleActivity struct {
	RecordedAt   time.Time
	LineRef      string
	VehicleRef   string
	Lat          float64
	Lon          float64
	DelaySeconds float64
	HasDelay     bool
}

// StopVisit is one upcoming arrival at a monitored stop.
type StopVisit struct {
	LineRef      string
	StopRef      string
	VehicleRef   string
	Aimed        time.Time
	Expected     time.Time
	DelaySeconds float64
}

// Wire types for the 511.org SIRI JSON envelope. The feed nests
// everything under Siri.ServiceDelivery and serializes coordinates
// and durations as strings.

type siriResponse struct {
	Siri siriEnvelope `json:"Siri"`
}

type siriEnvelope struct {
	ServiceDelivery serviceDelivery `json:"ServiceDelivery"`
}

type serviceDelivery struct {
	ResponseTimestamp         string                     `json:"ResponseTimestamp"`
	Status                    string                     `json:"Status"`
	VehicleMonitoringDelivery *vehicleMonitoringDelivery `json:"VehicleMonitoringDelivery,omitempty"`
	StopMonitoringDelivery    *stopMonitoringDelivery    `json:"StopMonitoringDelivery,omitempty"`
}

type vehicleMonitoringDelivery struct {
	VehicleActivity []vehicleActivityEntry `json:"VehicleActivity"`
}

type vehicleActivityEntry struct {
	RecordedAtTime          string                  `json:"RecordedAtTime"`
	MonitoredVehicleJourney monitoredVehicleJourney `json:"MonitoredVehicleJourney"`
}

type stopMonitoringDelivery struct {
	MonitoredStopVisit []monitoredStopVisit `json:"MonitoredStopVisit"`
}

type monitoredStopVisit struct {
	RecordedAtTime          string                  `json:"RecordedAtTime"`
	MonitoredVehicleJourney monitoredVehicleJourney `json:"MonitoredVehicleJourney"`
}

type monitoredVehicleJourney struct {
	LineRef         string           `json:"LineRef"`
	DirectionRef    string           `json:"DirectionRef"`
	VehicleRef      string           `json:"VehicleRef"`
	Delay           string           `json:"Delay,omitempty"`
	VehicleLocation *vehicleLocation `json:"VehicleLocation,omitempty"`
	MonitoredCall   *monitoredCall   `json:"MonitoredCall,omitempty"`
}

type vehicleLocation struct {
	Latitude  string `json:"Latitude"`
	Longitude string `json:"Longitude"`
}

type monitoredCall struct {
	StopPointRef        string `json:"StopPointRef"`
	AimedArrivalTime    string `json:"AimedArrivalTime"`
	ExpectedArrivalTime string `json:"ExpectedArrivalTime"`
}
