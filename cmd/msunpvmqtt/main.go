// Msunpvmqtt bridges an MSunPV solar router to an MQTT broker using
// the Home Assistant discovery conventions.
package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"log"
	"os"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"
	yaml "gopkg.in/yaml.v2"

	"github.com/ardtek/msunpv/mqttbridge"
	"github.com/ardtek/msunpv/pollworker"
	"github.com/ardtek/msunpv/webconnect"
)

type config struct {
	// RouterAddr holds the router address (host, host:port or URL).
	RouterAddr string `yaml:"routerAddr"`
	// PollInterval holds the status polling interval.
	// If it's zero, pollworker.DefaultInterval is used.
	PollInterval time.Duration `yaml:"pollInterval"`
	MQTT         mqttConfig    `yaml:"mqtt"`
}

type mqttConfig struct {
	// Broker holds the broker URL, e.g. tcp://broker.local:1883.
	Broker          string `yaml:"broker"`
	Username        string `yaml:"username"`
	Password        string `yaml:"password"`
	TopicPrefix     string `yaml:"topicPrefix"`
	DiscoveryPrefix string `yaml:"discoveryPrefix"`
}

var configFlag = flag.String("config", "msunpvmqtt.yaml", "configuration file path")

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: msunpvmqtt [-config <path>]\n")
		os.Exit(2)
	}
	flag.Parse()
	data, err := ioutil.ReadFile(*configFlag)
	if err != nil {
		log.Fatal(err)
	}
	var cfg config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		log.Fatalf("cannot parse %q: %v", *configFlag, err)
	}
	if cfg.RouterAddr == "" {
		log.Fatalf("no routerAddr set in %q", *configFlag)
	}
	if cfg.MQTT.Broker == "" {
		log.Fatalf("no mqtt broker set in %q", *configFlag)
	}
	client, err := webconnect.New(cfg.RouterAddr)
	if err != nil {
		log.Fatal(err)
	}

	opts := mqtt.NewClientOptions().
		AddBroker(cfg.MQTT.Broker).
		SetUsername(cfg.MQTT.Username).
		SetPassword(cfg.MQTT.Password).
		SetAutoReconnect(true).
		SetConnectionLostHandler(func(client mqtt.Client, err error) {
			log.Printf("MQTT connection lost: %v", err)
		})
	mqttClient := mqtt.NewClient(opts)
	if t := mqttClient.Connect(); t.Wait() && t.Error() != nil {
		log.Fatalf("cannot connect to MQTT broker: %v", t.Error())
	}

	bridge := mqttbridge.New(mqttClient, mqttbridge.Config{
		TopicPrefix:     cfg.MQTT.TopicPrefix,
		DiscoveryPrefix: cfg.MQTT.DiscoveryPrefix,
	})
	w, err := pollworker.New(pollworker.Params{
		Client:   client,
		Updater:  bridge,
		Interval: cfg.PollInterval,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer w.Close()
	log.Printf("bridging router %s to %s", cfg.RouterAddr, cfg.MQTT.Broker)
	select {}
}
