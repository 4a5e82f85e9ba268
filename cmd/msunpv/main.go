// Msunpv polls an MSunPV solar router and prints its readings,
// composing each value with the label and unit the router's index
// document declares for it.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/ardtek/msunpv/routerdata"
	"github.com/ardtek/msunpv/webconnect"
)

var (
	addrFlag     = flag.String("addr", "", "router address (host, host:port or URL)")
	intervalFlag = flag.Duration("interval", 10*time.Second, "poll interval")
	countFlag    = flag.Int("count", 1, "number of polls (0 means forever)")
	jsonFlag     = flag.Bool("json", false, "print raw snapshots as JSON")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: msunpv -addr <router> [-interval <duration>] [-count <n>] [-json]\n")
		os.Exit(2)
	}
	flag.Parse()
	if *addrFlag == "" || flag.NArg() > 0 {
		flag.Usage()
	}
	client, err := webconnect.New(*addrFlag)
	if err != nil {
		log.Fatal(err)
	}
	ctx := context.Background()
	index, err := client.GetIndex(ctx)
	if err != nil {
		log.Fatalf("cannot fetch router index: %v", err)
	}
	for n := 0; *countFlag == 0 || n < *countFlag; n++ {
		if n > 0 {
			time.Sleep(*intervalFlag)
		}
		status, err := client.GetStatus(ctx)
		if err != nil {
			log.Printf("cannot fetch router status: %v", err)
			continue
		}
		if *jsonFlag {
			data, err := json.MarshalIndent(status, "", "\t")
			if err != nil {
				log.Fatal(err)
			}
			fmt.Printf("%s\n", data)
		} else {
			printStatus(index, status)
		}
	}
}

func printStatus(index *routerdata.Index, status *routerdata.Status) {
	fmt.Printf("%s %s %s (serial %s, version %s)\n", status.Date, status.Time, index.ModelName, index.SerialNumber, index.Version)
	fmt.Printf("power: home %.1fW, PV %.1fW (%.1fW consumed, %.1fW injected)\n",
		status.PowerHome, status.PowerPVPositive, status.PowerPVConsumed, status.PowerPVInject)
	fmt.Printf("energy today: %.4fkWh consumed, %.4fkWh injected, %.4fkWh produced\n",
		status.TotalConsumption, status.DailyInjection, status.DailyProduction)

	sensors := status.SensorValues()
	for i := 0; i < index.NumSensorTypes() && i < len(sensors); i++ {
		info, err := index.SensorTypeInfo(i)
		if err != nil || info.Name == "" || info.Code == 0 {
			continue
		}
		fmt.Printf("\t%s: %.*f%s\n", info.Name, info.DotPos, sensors[i], info.Suffix)
	}
	for i := 0; i < index.NumOutputs() && i < len(status.OutStat); i++ {
		label, err := index.OutputLabel(i)
		if err != nil || label == "" {
			continue
		}
		fmt.Printf("\t%s: %d%%\n", label, status.OutStat[i])
	}
	counters := status.CounterValues()
	for i := 0; i < index.NumCounterTypes() && i < len(counters); i++ {
		info, err := index.CounterTypeInfo(i)
		if err != nil || info.Name == "" || info.Code == 0 {
			continue
		}
		fmt.Printf("\t%s: %.4f%s\n", info.Name, counters[i], info.Suffix)
	}
}
