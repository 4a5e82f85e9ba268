package mqttbridge

// entityConfig is the Home Assistant discovery payload for one entity.
type entityConfig struct {
	UniqueID          string       `json:"unique_id"`
	Name              string       `json:"name"`
	StateTopic        string       `json:"state_topic"`
	UnitOfMeasurement string       `json:"unit_of_measurement,omitempty"`
	Device            deviceConfig `json:"device"`
}

// deviceConfig is the device block shared by all the entities of one
// router, so that Home Assistant groups them together.
type deviceConfig struct {
	Identifiers  []string `json:"identifiers"`
	Manufacturer string   `json:"manufacturer"`
	Model        string   `json:"model"`
	Name         string   `json:"name"`
	SWVersion    string   `json:"sw_version"`
	SerialNumber string   `json:"-"`
}
