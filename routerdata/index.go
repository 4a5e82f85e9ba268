package routerdata

import (
	"strconv"
	"strings"

	errgo "gopkg.in/errgo.v1"
)

// ErrIndexOutOfRange is the cause of errors returned by the lookup
// accessors when given a slot index beyond the decoded table. Callers
// are expected to bound indexes using the table length accessors.
var ErrIndexOutOfRange = errgo.New("lookup index out of range")

// Index holds one decoded snapshot of the router's index document,
// which describes how to interpret the status document's fields for
// the connected hardware model. Like Status, it is an immutable
// snapshot.
type Index struct {
	SysParams

	// SensorTypes holds the raw sensor type descriptors (typAns),
	// one per sensor slot. Use SensorTypeInfo to interpret one.
	SensorTypes []string

	// OutputTypes holds the raw output type descriptors (typouts).
	// Use OutputLabel to interpret one.
	OutputTypes []string

	// Commands holds the raw command descriptors (cmdM0 to cmdM7),
	// one per command slot. A slot the document does not mention is
	// left empty. Use CommandInfo to interpret one.
	Commands [8]string

	// CounterTypes holds the raw counter type descriptors (typCpt).
	// Use CounterTypeInfo to interpret one.
	CounterTypes []string
}

// DecodeIndex decodes an index document with the same tolerant
// defaults policy as DecodeStatus.
func DecodeIndex(text string) (*Index, error) {
	doc, err := parseDocument(text)
	if err != nil {
		return nil, errgo.Mask(err, errgo.Is(ErrEnvelope))
	}
	idx := &Index{
		SysParams:    decodeSysParams(doc["paramSys"]),
		SensorTypes:  decodeTypeList(doc["typAns"]),
		OutputTypes:  decodeTypeList(doc["typouts"]),
		CounterTypes: decodeTypeList(doc["typCpt"]),
	}
	for i := range idx.Commands {
		idx.Commands[i] = doc["cmdM"+strconv.Itoa(i)]
	}
	return idx, nil
}

// decodeTypeList splits a colon-delimited type table into its
// entries. The router terminates the table with a trailing colon; the
// resulting empty entry is dropped so that the table length matches
// the slot count.
func decodeTypeList(field string) []string {
	if field == "" {
		return nil
	}
	return strings.Split(strings.TrimSuffix(field, ":"), ":")
}

// TypeInfo describes one sensor or counter slot.
type TypeInfo struct {
	// Name holds the slot's display label.
	Name string
	// DotPos holds the number of decimal digits in the slot's value.
	DotPos int
	// Code holds the slot's internal type code.
	Code int
	// Suffix holds the physical unit for Code, or "" if the code is
	// not a known one.
	Suffix string
}

// CommandInfo describes one command slot.
type CommandInfo struct {
	Type   int
	Value  int
	Label  string
	Params [4]string
}

// NumSensorTypes returns the number of sensor slots described by the
// index document.
func (idx *Index) NumSensorTypes() int { return len(idx.SensorTypes) }

// NumOutputs returns the number of output slots described by the
// index document.
func (idx *Index) NumOutputs() int { return len(idx.OutputTypes) }

// NumCounterTypes returns the number of counter slots described by
// the index document.
func (idx *Index) NumCounterTypes() int { return len(idx.CounterTypes) }

// NumCommands returns the number of command slots. The document
// format fixes it at 8.
func (idx *Index) NumCommands() int { return len(idx.Commands) }

// SensorTypeInfo interprets the sensor type descriptor at slot i.
func (idx *Index) SensorTypeInfo(i int) (TypeInfo, error) {
	return typeInfo(idx.SensorTypes, i)
}

// CounterTypeInfo interprets the counter type descriptor at slot i.
func (idx *Index) CounterTypeInfo(i int) (TypeInfo, error) {
	return typeInfo(idx.CounterTypes, i)
}

func typeInfo(table []string, i int) (TypeInfo, error) {
	if i < 0 || i >= len(table) {
		return TypeInfo{}, errgo.WithCausef(nil, ErrIndexOutOfRange, "no type descriptor at index %d", i)
	}
	vals := strings.Split(table[i], ";")
	info := TypeInfo{
		Name:   tok(vals, 0),
		DotPos: atoiField(tok(vals, 1)),
		Code:   atoiField(tok(vals, 2)),
	}
	info.Suffix = UnitSuffix(info.Code)
	return info, nil
}

// OutputLabel returns the display label of the output at slot i.
func (idx *Index) OutputLabel(i int) (string, error) {
	if i < 0 || i >= len(idx.OutputTypes) {
		return "", errgo.WithCausef(nil, ErrIndexOutOfRange, "no output descriptor at index %d", i)
	}
	return tok(strings.Split(idx.OutputTypes[i], ";"), 0), nil
}

// CommandInfo interprets the command descriptor at slot i. An empty
// slot yields a zero CommandInfo.
func (idx *Index) CommandInfo(i int) (CommandInfo, error) {
	if i < 0 || i >= len(idx.Commands) {
		return CommandInfo{}, errgo.WithCausef(nil, ErrIndexOutOfRange, "no command descriptor at index %d", i)
	}
	if idx.Commands[i] == "" {
		return CommandInfo{}, nil
	}
	vals := strings.Split(idx.Commands[i], ";")
	return CommandInfo{
		Type:  atoiField(tok(vals, 0)),
		Value: atoiField(tok(vals, 1)),
		Label: tok(vals, 2),
		Params: [4]string{
			tok(vals, 3),
			tok(vals, 4),
			tok(vals, 5),
			tok(vals, 6),
		},
	}, nil
}

// unitSuffixes maps a slot's internal type code to its physical unit.
// The spellings are the router's own, including Htz.
var unitSuffixes = map[int]string{
	1:  "°C",
	2:  "°C",
	3:  "%",
	4:  "V",
	5:  "mV",
	6:  "W",
	7:  "kW",
	8:  "bar",
	9:  "mb",
	10: "l",
	11: "m3",
	12: "s",
	13: "mn",
	14: "hr",
	15: "day",
	16: "Wh",
	17: "kWh",
	18: "°C",
	19: "°F",
	20: "°K",
	21: "mS",
	22: "Htz",
	23: "J",
	24: "hPa",
	25: "lux",
}

// UnitSuffix returns the unit suffix for the given internal type
// code, or "" if the code is not a known one.
func UnitSuffix(code int) string {
	return unitSuffixes[code]
}
