package routerdata

import (
	"math"
	"strconv"
	"strings"

	errgo "gopkg.in/errgo.v1"
)

// SysParams holds the system identification fields shared by the
// status and index documents (the paramSys field).
type SysParams struct {
	Time    string
	Date    string
	SDSave  string // whether readings are being saved to the SD card
	SDDelay string // SD card save interval

	// ModelName holds the model tag exactly as reported;
	// Model holds its parsed form.
	ModelName string
	Model     Model

	Version        string
	SerialNumber   string
	FirmwareWifi   string
	FirmwareRouter string
}

// Status holds one decoded snapshot of the router's live telemetry
// (the status document). DecodeStatus returns a fresh value on every
// call, so a Status never changes once decoded.
type Status struct {
	SysParams

	// Clock holds the router's clock display text (rtcc).
	Clock string

	// RSSIValue and RSSIQuality hold the wifi signal strength as a
	// percentage and in dBm respectively (rssi).
	RSSIValue   int
	RSSIQuality int

	// PowerReso holds the grid power reading in W, positive when
	// drawing from the grid. PowerPVRead holds the panel power as
	// reported, negative when producing; PowerPVPositive is the
	// same reading with the sign convention inverted so that
	// production is positive. (inAns slots 0 and 1.)
	PowerReso       float64
	PowerPVRead     float64
	PowerPVPositive float64

	// OutBalloon and OutRadiator hold the two regulated outputs
	// (inAns slots 2 and 3). On the 2x2 model they are percentages,
	// the raw 0-400 range scaled onto 0-100; on the 4x4 model they
	// are watts. On an unknown model they decode to 0.
	OutBalloon  float64
	OutRadiator float64

	// Temperature readings in °C (inAns slots 5 to 7).
	TemperatureBalloon  float64
	TemperatureRadiator float64
	TemperatureRoom     float64

	// ExtraSensors holds the raw readings of sensor slots 8 to 15.
	ExtraSensors [8]float64

	// Power balance in W, always recomputed from the readings above.
	PowerHome       float64 // home consumption
	PowerPVInject   float64 // production exported to the grid
	PowerPVConsumed float64 // production consumed locally

	// SurvMm holds the 16 sensor monitoring codes (survMm):
	// 0 ok; 1 maximum overflow; 2 minimum overflow or disconnected.
	SurvMm [16]int

	// CmdPos holds the raw positions of the 8 command slots (cmdPos).
	CmdPos [8]string

	// Actuator mode flags, bit-decoded from CmdPos[0].
	CmdBalloonManual  bool
	CmdBalloonAuto    bool
	CmdRadiatorManual bool
	CmdRadiatorAuto   bool

	// Router test state flags, bit-decoded from CmdPos[7].
	TestRouterInject bool
	TestRouterZero   bool
	TestRouterMedium bool
	TestRouterHigh   bool

	// OutStat holds the 16 output levels as 0-100 percentages (outStat).
	OutStat [16]int

	// CptVals holds the 8 raw hexadecimal counter values (cptVals).
	CptVals [8]string

	// Daily energy totals in kWh, decoded from CptVals.
	// DailyBalloonConsumption and DailyRadiatorConsumption are
	// maintained by the 4x4 model only and decode to 0 otherwise.
	DailyConsumption         float64
	DailyInjection           float64
	DailyProduction          float64
	CumulativeProduction     float64
	DailyBalloonConsumption  float64
	DailyRadiatorConsumption float64

	// Derived energy totals in kWh, always recomputed.
	ProductionDailyConsumption float64 // production consumed locally
	TotalConsumption           float64 // grid plus locally consumed production

	// ChOutVal holds the raw values computed at the output of the
	// heating modules (chOutVal), kept verbatim.
	ChOutVal []string
}

// DecodeStatus decodes a status document. Missing or malformed fields
// decode to their zero defaults; decoding fails only when the outer
// envelope cannot be parsed, in which case the returned error has the
// cause ErrEnvelope.
func DecodeStatus(text string) (*Status, error) {
	doc, err := parseDocument(text)
	if err != nil {
		return nil, errgo.Mask(err, errgo.Is(ErrEnvelope))
	}
	st := &Status{
		SysParams: decodeSysParams(doc["paramSys"]),
		Clock:     doc["rtcc"],
	}
	st.RSSIValue, st.RSSIQuality = decodeRSSI(doc["rssi"])
	decodeSensors(doc["inAns"], st)
	st.SurvMm = decodeIntList16(doc["survMm"])
	decodeCommandPositions(doc["cmdPos"], st)
	st.OutStat = decodeIntList16(doc["outStat"])
	decodeCounters(doc["cptVals"], st)
	st.ChOutVal = decodeHeatOutputs(doc["chOutVal"])
	return st, nil
}

// decodeSysParams decodes the paramSys field. Positions 4, 10 and 11
// are reserved and ignored.
func decodeSysParams(field string) SysParams {
	vals := splitField(field)
	p := SysParams{
		Time:           tok(vals, 0),
		Date:           tok(vals, 1),
		SDSave:         tok(vals, 2),
		SDDelay:        tok(vals, 3),
		ModelName:      tok(vals, 5),
		Version:        tok(vals, 6),
		SerialNumber:   tok(vals, 7),
		FirmwareWifi:   tok(vals, 8),
		FirmwareRouter: tok(vals, 9),
	}
	p.Model = ParseModel(p.ModelName)
	return p
}

func decodeRSSI(field string) (value, quality int) {
	vals := strings.Split(field, ";")
	return atoiField(tok(vals, 0)), atoiField(tok(vals, 1))
}

// decodeSensors decodes the 16 sensor readings (inAns) into st and
// recomputes the power balance. The balance is computed even when the
// field is absent so that the derived fields are always consistent
// with the readings.
func decodeSensors(field string, st *Status) {
	var vals []string
	if field != "" {
		vals = splitField(field)
	}
	f := func(i int) float64 { return floatField(tok(vals, i)) }
	st.PowerReso = f(0)
	st.PowerPVRead = f(1)
	st.PowerPVPositive = 0 - st.PowerPVRead
	switch st.Model {
	case Model2x2:
		st.OutBalloon = math.Round(f(2) / 4)
		st.OutRadiator = math.Round(f(3) / 4)
	case Model4x4:
		st.OutBalloon = f(2)
		st.OutRadiator = f(3)
	}
	st.TemperatureBalloon = f(5)
	st.TemperatureRadiator = f(6)
	st.TemperatureRoom = f(7)
	if len(vals) >= 16 {
		for i := range st.ExtraSensors {
			st.ExtraSensors[i] = f(8 + i)
		}
	}

	st.PowerHome = st.PowerPVRead - st.PowerReso
	if st.PowerPVPositive >= 0 && st.PowerReso <= 0 {
		st.PowerPVInject = 0 - st.PowerReso
	}
	st.PowerPVConsumed = st.PowerPVPositive - st.PowerPVInject
}

// decodeIntList16 decodes a semicolon-delimited list of integers,
// ignoring blank values, into exactly 16 entries: shorter input is
// zero-padded and longer input truncated. If any value fails to parse
// the whole list falls back to zeros.
func decodeIntList16(field string) [16]int {
	var out [16]int
	i := 0
	for _, s := range strings.Split(field, ";") {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		v, err := strconv.Atoi(s)
		if err != nil {
			return [16]int{}
		}
		if i < len(out) {
			out[i] = v
		}
		i++
	}
	return out
}

// decodeCommandPositions decodes the raw command positions (cmdPos)
// and the bit flags carried by slots 0 and 7. Each position is a
// bitmask: 0x01 and 0x02 are the manual and auto modes of the first
// actuator, 0x04 and 0x08 of the second; on slot 7 the same four bits
// select the router test state.
func decodeCommandPositions(field string, st *Status) {
	for i := range st.CmdPos {
		st.CmdPos[i] = "0"
	}
	if field != "" {
		vals := strings.Split(field, ";")
		for i := 0; i < len(st.CmdPos) && i < len(vals); i++ {
			st.CmdPos[i] = vals[i]
		}
	}
	pos0 := atoiField(st.CmdPos[0])
	st.CmdBalloonManual = pos0&0x01 != 0
	st.CmdBalloonAuto = pos0&0x02 != 0
	st.CmdRadiatorManual = pos0&0x04 != 0
	st.CmdRadiatorAuto = pos0&0x08 != 0
	pos7 := atoiField(st.CmdPos[7])
	st.TestRouterInject = pos7&0x01 != 0
	st.TestRouterZero = pos7&0x02 != 0
	st.TestRouterMedium = pos7&0x04 != 0
	st.TestRouterHigh = pos7&0x08 != 0
}

// decodeCounters decodes the 8 hexadecimal counters (cptVals) and the
// kWh totals derived from them. The injection, production and
// cumulative counters count downwards, hence the negative divisors.
// Only the 4x4 model maintains the per-output counters in slots 4
// and 5. The two derived totals are recomputed even when the field is
// absent.
func decodeCounters(field string, st *Status) {
	for i := range st.CptVals {
		st.CptVals[i] = "0"
	}
	if field != "" {
		vals := strings.Split(field, ";")
		for i := 0; i < len(st.CptVals) && i < len(vals); i++ {
			st.CptVals[i] = strings.TrimSpace(vals[i])
		}
		st.DailyConsumption = float64(hexToInt(st.CptVals[0])) / 10000
		st.DailyInjection = float64(hexToInt(st.CptVals[1])) / -10000
		st.DailyProduction = float64(hexToInt(st.CptVals[2])) / -10000
		st.CumulativeProduction = float64(hexToInt(st.CptVals[3])) / -10
		if st.Model == Model4x4 {
			st.DailyBalloonConsumption = float64(hexToInt(st.CptVals[4])) / 10000
			st.DailyRadiatorConsumption = float64(hexToInt(st.CptVals[5])) / 10000
		}
	}
	st.ProductionDailyConsumption = st.DailyProduction - st.DailyInjection
	st.TotalConsumption = st.DailyConsumption + st.ProductionDailyConsumption
}

// decodeHeatOutputs decodes the heating module outputs (chOutVal).
// The values are kept verbatim; their format varies between firmware
// versions.
func decodeHeatOutputs(field string) []string {
	if field == "" {
		return nil
	}
	return strings.Split(field, ";")
}

// SensorValues returns the 16 sensor readings by slot, for composing
// with the sensor labels from the index document. Slots that the
// decoder does not retain (the reserved slot 4) read as zero.
func (st *Status) SensorValues() [16]float64 {
	vals := [16]float64{
		0: st.PowerReso,
		1: st.PowerPVRead,
		2: st.OutBalloon,
		3: st.OutRadiator,
		5: st.TemperatureBalloon,
		6: st.TemperatureRadiator,
		7: st.TemperatureRoom,
	}
	copy(vals[8:], st.ExtraSensors[:])
	return vals
}

// CounterValues returns the decoded energy totals by counter slot,
// for composing with the counter labels from the index document.
// Slots 6 and 7 are unused by current firmware and read as zero.
func (st *Status) CounterValues() [8]float64 {
	return [8]float64{
		st.DailyConsumption,
		st.DailyInjection,
		st.DailyProduction,
		st.CumulativeProduction,
		st.DailyBalloonConsumption,
		st.DailyRadiatorConsumption,
	}
}
