package routerdata

// Model identifies the hardware variant of a router.
type Model int

const (
	// ModelUnknown is reported when the model tag in a document
	// is missing or not recognised.
	ModelUnknown Model = iota
	// Model2x2 is the two-input, two-output variant. It reports its
	// two dimmer outputs as a raw 0-400 range.
	Model2x2
	// Model4x4 is the four-input, four-output variant. It reports
	// its outputs directly in watts and maintains two extra daily
	// energy counters.
	Model4x4
)

const (
	model2x2Tag = "MSPV_2_2d"
	model4x4Tag = "MSPV_4_4d"
)

// ParseModel returns the model identified by the given tag as found
// in a document's paramSys field.
func ParseModel(tag string) Model {
	switch tag {
	case model2x2Tag:
		return Model2x2
	case model4x4Tag:
		return Model4x4
	}
	return ModelUnknown
}

func (m Model) String() string {
	switch m {
	case Model2x2:
		return model2x2Tag
	case Model4x4:
		return model4x4Tag
	}
	return "unknown"
}
