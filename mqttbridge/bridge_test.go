package mqttbridge

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"testing"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	qt "github.com/frankban/quicktest"

	"github.com/ardtek/msunpv/pollworker"
	"github.com/ardtek/msunpv/routerdata"
	"github.com/ardtek/msunpv/routertest"
	"github.com/ardtek/msunpv/webconnect"
)

// fakePublisher records everything published through it.
type fakePublisher struct {
	mu   sync.Mutex
	msgs map[string]message
}

type message struct {
	retained bool
	payload  string
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{
		msgs: make(map[string]message),
	}
}

func (p *fakePublisher) Publish(topic string, qos byte, retained bool, payload interface{}) mqtt.Token {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.msgs[topic] = message{
		retained: retained,
		payload:  fmt.Sprintf("%s", payload),
	}
	return &mqtt.DummyToken{}
}

func (p *fakePublisher) get(c *qt.C, topic string) message {
	p.mu.Lock()
	defer p.mu.Unlock()
	msg, ok := p.msgs[topic]
	if !ok {
		c.Fatalf("nothing published to %q", topic)
	}
	return msg
}

func (p *fakePublisher) has(topic string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	_, ok := p.msgs[topic]
	return ok
}

// decodeDocs fetches and decodes one snapshot from a fake router.
func decodeDocs(c *qt.C, model routerdata.Model) (*routerdata.Index, *routerdata.Status) {
	srv, err := routertest.NewServer("localhost:0", model)
	c.Assert(err, qt.IsNil)
	defer srv.Close()
	client, err := webconnect.New(srv.Addr)
	c.Assert(err, qt.IsNil)
	ctx := context.Background()
	index, err := client.GetIndex(ctx)
	c.Assert(err, qt.IsNil)
	status, err := client.GetStatus(ctx)
	c.Assert(err, qt.IsNil)
	return index, status
}

func TestRegister(t *testing.T) {
	c := qt.New(t)
	index, _ := decodeDocs(c, routerdata.Model2x2)
	pub := newFakePublisher()
	b := New(pub, Config{})
	err := b.Register(index)
	c.Assert(err, qt.IsNil)

	msg := pub.get(c, "homeassistant/sensor/msunpv_0000224_sensor_0/config")
	c.Assert(msg.retained, qt.Equals, true)
	var cfg entityConfig
	err = json.Unmarshal([]byte(msg.payload), &cfg)
	c.Assert(err, qt.IsNil)
	c.Assert(cfg, qt.DeepEquals, entityConfig{
		UniqueID:          "msunpv_0000224_sensor_0",
		Name:              "PowRéso",
		StateTopic:        "msunpv/sensor/0",
		UnitOfMeasurement: "W",
		Device: deviceConfig{
			Identifiers:  []string{"msunpv_0000224"},
			Manufacturer: "Ard-Tek",
			Model:        "MSPV_2_2d",
			Name:         "MSunPV 0000224",
			SWVersion:    "5.0.1",
		},
	})

	// Unconfigured sensor slots (zero type code) are skipped.
	c.Assert(pub.has("homeassistant/sensor/msunpv_0000224_sensor_8/config"), qt.Equals, false)
	// Outputs and counters are registered too.
	c.Assert(pub.has("homeassistant/sensor/msunpv_0000224_output_0/config"), qt.Equals, true)
	c.Assert(pub.has("homeassistant/sensor/msunpv_0000224_counter_3/config"), qt.Equals, true)
	c.Assert(pub.has("homeassistant/sensor/msunpv_0000224_counter_6/config"), qt.Equals, false)
}

func TestPublishState(t *testing.T) {
	c := qt.New(t)
	index, status := decodeDocs(c, routerdata.Model2x2)
	pub := newFakePublisher()
	b := New(pub, Config{TopicPrefix: "house/pv"})
	err := b.PublishState(index, status)
	c.Assert(err, qt.IsNil)

	// Values are formatted with the decimal digit count the index
	// declares for each slot.
	c.Assert(pub.get(c, "house/pv/sensor/0").payload, qt.Equals, "-49.6")
	c.Assert(pub.get(c, "house/pv/sensor/5").payload, qt.Equals, "40.0")
	c.Assert(pub.get(c, "house/pv/output/0").payload, qt.Equals, "17")
	c.Assert(pub.get(c, "house/pv/counter/0").payload, qt.Equals, "3.9426")

	var snapshot routerdata.Status
	err = json.Unmarshal([]byte(pub.get(c, "house/pv/state").payload), &snapshot)
	c.Assert(err, qt.IsNil)
	c.Assert(snapshot.SerialNumber, qt.Equals, "0000224")
}

func TestUpdateRouterState(t *testing.T) {
	c := qt.New(t)
	index, status := decodeDocs(c, routerdata.Model2x2)
	pub := newFakePublisher()
	b := New(pub, Config{})
	b.UpdateRouterState(&pollworker.State{Status: status, Index: index})

	c.Assert(pub.has("homeassistant/sensor/msunpv_0000224_sensor_0/config"), qt.Equals, true)
	c.Assert(pub.has("msunpv/sensor/0"), qt.Equals, true)
}
