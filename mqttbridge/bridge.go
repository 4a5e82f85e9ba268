// Package mqttbridge publishes MSunPV router snapshots to an MQTT
// broker using the Home Assistant discovery conventions, so that
// every sensor, output and energy counter the router describes in its
// index document appears as an entity with its own label and unit.
package mqttbridge

import (
	"encoding/json"
	"fmt"
	"log"
	"strconv"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	errgo "gopkg.in/errgo.v1"

	"github.com/ardtek/msunpv/pollworker"
	"github.com/ardtek/msunpv/routerdata"
)

// Publisher is the part of mqtt.Client used by the bridge.
type Publisher interface {
	Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token
}

// Config holds the bridge configuration.
type Config struct {
	// TopicPrefix is the prefix for state topics.
	// If it's empty, "msunpv" is used.
	TopicPrefix string
	// DiscoveryPrefix is the Home Assistant discovery prefix.
	// If it's empty, "homeassistant" is used.
	DiscoveryPrefix string
}

// Bridge publishes router states to an MQTT broker.
type Bridge struct {
	pub       Publisher
	cfg       Config
	lastIndex *routerdata.Index
}

// New returns a bridge publishing through pub.
func New(pub Publisher, cfg Config) *Bridge {
	if cfg.TopicPrefix == "" {
		cfg.TopicPrefix = "msunpv"
	}
	if cfg.DiscoveryPrefix == "" {
		cfg.DiscoveryPrefix = "homeassistant"
	}
	return &Bridge{
		pub: pub,
		cfg: cfg,
	}
}

// UpdateRouterState implements pollworker.Updater. The discovery
// configuration is republished whenever the index snapshot changes.
func (b *Bridge) UpdateRouterState(state *pollworker.State) {
	if state.Index != b.lastIndex {
		if err := b.Register(state.Index); err != nil {
			log.Printf("cannot publish discovery configuration: %v", err)
			return
		}
		b.lastIndex = state.Index
	}
	if err := b.PublishState(state.Index, state.Status); err != nil {
		log.Printf("cannot publish router state: %v", err)
	}
}

// Register publishes the discovery configuration for every slot the
// index document describes. Sensor and counter slots with an empty
// label or a zero type code are unconfigured on the router and are
// skipped, as are outputs with an empty label.
func (b *Bridge) Register(index *routerdata.Index) error {
	device := deviceFor(index)
	for i := 0; i < index.NumSensorTypes(); i++ {
		info, err := index.SensorTypeInfo(i)
		if err != nil {
			return errgo.Mask(err)
		}
		if info.Name == "" || info.Code == 0 {
			continue
		}
		if err := b.register("sensor", i, info.Name, info.Suffix, device); err != nil {
			return errgo.Mask(err)
		}
	}
	for i := 0; i < index.NumOutputs(); i++ {
		label, err := index.OutputLabel(i)
		if err != nil {
			return errgo.Mask(err)
		}
		if label == "" {
			continue
		}
		if err := b.register("output", i, label, "%", device); err != nil {
			return errgo.Mask(err)
		}
	}
	for i := 0; i < index.NumCounterTypes(); i++ {
		info, err := index.CounterTypeInfo(i)
		if err != nil {
			return errgo.Mask(err)
		}
		if info.Name == "" || info.Code == 0 {
			continue
		}
		if err := b.register("counter", i, info.Name, info.Suffix, device); err != nil {
			return errgo.Mask(err)
		}
	}
	return nil
}

func (b *Bridge) register(kind string, slot int, name, unit string, device deviceConfig) error {
	uniqueID := fmt.Sprintf("msunpv_%s_%s_%d", device.SerialNumber, kind, slot)
	payload, err := json.Marshal(entityConfig{
		UniqueID:          uniqueID,
		Name:              name,
		StateTopic:        b.stateTopic(kind, slot),
		UnitOfMeasurement: unit,
		Device:            device,
	})
	if err != nil {
		return errgo.Mask(err)
	}
	topic := fmt.Sprintf("%s/sensor/%s/config", b.cfg.DiscoveryPrefix, uniqueID)
	return publish(b.pub, topic, payload)
}

// PublishState publishes the current value of every configured slot,
// retained so that Home Assistant picks the values up on restart, and
// the whole status snapshot as JSON on the state topic.
func (b *Bridge) PublishState(index *routerdata.Index, status *routerdata.Status) error {
	sensors := status.SensorValues()
	for i := 0; i < index.NumSensorTypes() && i < len(sensors); i++ {
		info, err := index.SensorTypeInfo(i)
		if err != nil {
			return errgo.Mask(err)
		}
		if info.Name == "" || info.Code == 0 {
			continue
		}
		payload := strconv.FormatFloat(sensors[i], 'f', info.DotPos, 64)
		if err := publish(b.pub, b.stateTopic("sensor", i), payload); err != nil {
			return errgo.Mask(err)
		}
	}
	for i := 0; i < index.NumOutputs() && i < len(status.OutStat); i++ {
		label, err := index.OutputLabel(i)
		if err != nil {
			return errgo.Mask(err)
		}
		if label == "" {
			continue
		}
		payload := strconv.Itoa(status.OutStat[i])
		if err := publish(b.pub, b.stateTopic("output", i), payload); err != nil {
			return errgo.Mask(err)
		}
	}
	counters := status.CounterValues()
	for i := 0; i < index.NumCounterTypes() && i < len(counters); i++ {
		info, err := index.CounterTypeInfo(i)
		if err != nil {
			return errgo.Mask(err)
		}
		if info.Name == "" || info.Code == 0 {
			continue
		}
		payload := strconv.FormatFloat(counters[i], 'f', 4, 64)
		if err := publish(b.pub, b.stateTopic("counter", i), payload); err != nil {
			return errgo.Mask(err)
		}
	}
	snapshot, err := json.Marshal(status)
	if err != nil {
		return errgo.Mask(err)
	}
	return publish(b.pub, b.cfg.TopicPrefix+"/state", snapshot)
}

func (b *Bridge) stateTopic(kind string, slot int) string {
	return fmt.Sprintf("%s/%s/%d", b.cfg.TopicPrefix, kind, slot)
}

func publish(pub Publisher, topic string, payload interface{}) error {
	if t := pub.Publish(topic, 0, true, payload); t.Wait() && t.Error() != nil {
		return errgo.Notef(t.Error(), "cannot publish to %s", topic)
	}
	return nil
}

func deviceFor(index *routerdata.Index) deviceConfig {
	return deviceConfig{
		Identifiers:  []string{"msunpv_" + index.SerialNumber},
		Manufacturer: "Ard-Tek",
		Model:        index.ModelName,
		Name:         "MSunPV " + index.SerialNumber,
		SWVersion:    index.Version,
		SerialNumber: index.SerialNumber,
	}
}
