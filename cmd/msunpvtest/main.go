// Msunpvtest runs a fake MSunPV router for manual testing.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/ardtek/msunpv/routerdata"
	"github.com/ardtek/msunpv/routertest"
)

var (
	addrFlag  = flag.String("addr", "localhost:0", "listen address")
	modelFlag = flag.String("model", "MSPV_2_2d", "router model tag (MSPV_2_2d or MSPV_4_4d)")
)

func main() {
	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "usage: msunpvtest [-addr <listenaddr>] [-model <tag>]\n")
		os.Exit(2)
	}
	flag.Parse()
	model := routerdata.ParseModel(*modelFlag)
	if model == routerdata.ModelUnknown {
		log.Fatalf("unknown model %q", *modelFlag)
	}
	srv, err := routertest.NewServer(*addrFlag, model)
	if err != nil {
		log.Fatalf("cannot start server: %v", err)
	}
	fmt.Printf("%v\n", srv.Addr)
	select {}
}
