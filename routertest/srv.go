// Package routertest provides a fake MSunPV router that serves the
// status and index documents over HTTP so that tests and manual
// experiments don't need real hardware.
package routertest

import (
	"bytes"
	"context"
	"log"
	"net"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"text/template"

	"github.com/juju/httprequest"
	"github.com/julienschmidt/httprouter"
	errgo "gopkg.in/errgo.v1"

	"github.com/ardtek/msunpv/routerdata"
)

// The documents are rendered with Latin-1 byte strings, matching the
// encoding the real device serves.
var statusTmpl = template.Must(template.New("").Parse("" +
	"<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
	"<xml>\n" +
	"<rtcc>16:03:53 ME</rtcc>\n" +
	"<rssi>40;-80</rssi>\n" +
	"<paramSys>16:03:53;05/06/2025;On;01:00;0,0;{{.Model}};5.0.1;0000224;105b;105c;00:00;00:00</paramSys>\n" +
	"<inAns>{{.PowerReso}};{{.PowerPV}};69; 0;221,5;40,0;21,5;19,0; 0; 0; 0; 0; 0; 0; 0; 0;</inAns>\n" +
	"<survMm>0;0;0;0;0;0;0;0;0;0;0;0;0;0;0;0;</survMm>\n" +
	"<cmdPos>2;0;0;0;0;0;0;2;</cmdPos>\n" +
	"<outStat>17;0;0;0;0;0;0;0;0;0;0;0;0;0;0;0;</outStat>\n" +
	"<cptVals>{{range .Counters}}{{.}};{{end}}</cptVals>\n" +
	"<chOutVal>0;0;0;ff;0,0;0,0;0,0;0,0;</chOutVal>\n" +
	"</xml>"))

var indexTmpl = template.Must(template.New("").Parse("" +
	"<?xml version=\"1.0\" encoding=\"ISO-8859-1\"?>\n" +
	"<xml>\n" +
	"<paramSys>16:15:40;05/06/2025;On;01:00;0,0;{{.Model}};5.0.1;0000224;105b;105c;00:00;00:00</paramSys>\n" +
	"<typAns>PowR\xe9so;1;6:PowP.V;1;6:OutBal;0;{{.OutCode}}:OutRad;0;{{.OutCode}}:VoltR\xe9s;1;4:T_Bal1;1;18:T_SDB;1;18:T_Amb;1;18:S9;0;0:S10;0;0:S11;0;0:S12;0;0:S13;0;0:S14;0;0:S15;0;0:S16;0;0:</typAns>\n" +
	"<typouts>R_Bal1;0;2:Rad_SDB;0;2:A3;0;0:A4;0;0:A5;0;0:A6;0;0:A7;0;0:A8;0;0:A9;0;0:A10;0;0:A11;0;0:A12;0;0:A13;0;0:A14;0;0:A15;0;0:A16;0;0:</typouts>\n" +
	"<cmdM0>3;2;Comd Manu/Auto;ManuBal;AutoBal;ManuRad;AutoRad;</cmdM0>\n" +
	"<cmdM7>1;2;Test routeur;Inject;Z\xe9ro;Moyen;Fort;</cmdM7>\n" +
	"<typCpt>EnConso;1;16:EnInj;1;16:EnPV_J;1;16:EnPV_P;1;17:Compt 5;0;0:Compt 6;0;0:Compt 7;0;0:Compt 8;0;0:</typCpt>\n" +
	"</xml>"))

type statusValues struct {
	Model     string
	PowerReso string
	PowerPV   string
	Counters  [8]string
}

type indexValues struct {
	Model   string
	OutCode int
}

// Server is a fake router listening on Addr.
type Server struct {
	Addr string
	lis  net.Listener

	mu        sync.Mutex
	model     routerdata.Model
	powerReso float64
	powerPV   float64
	counters  [8]string
	broken    bool
	missing   bool
}

var reqServer = &httprequest.Server{}

// NewServer starts a fake router of the given model listening on
// addr. The initial readings mimic a sunny day: the grid meter shows
// export and the counters hold plausible mid-day values.
func NewServer(addr string, model routerdata.Model) (*Server, error) {
	lis, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, errgo.Notef(err, "cannot listen on %q", addr)
	}
	srv := &Server{
		Addr:      lis.Addr().String(),
		lis:       lis,
		model:     model,
		powerReso: -49.6,
		powerPV:   -0.6,
		counters:  [8]string{"9a02", "ffffa128", "ffffff69", "ffffa560", "0", "0", "0", "0"},
	}
	router := httprouter.New()
	for _, h := range reqServer.Handlers(srv.handler) {
		router.Handle(h.Method, h.Path, h.Handle)
	}
	go http.Serve(lis, router)
	return srv, nil
}

// Close stops the server.
func (srv *Server) Close() {
	srv.lis.Close()
}

// SetPowerReso sets the grid power reading in W.
func (srv *Server) SetPowerReso(power float64) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.powerReso = power
}

// SetPowerPV sets the panel power reading in W.
func (srv *Server) SetPowerPV(power float64) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.powerPV = power
}

// SetCounter sets the raw hexadecimal value of the given counter slot.
func (srv *Server) SetCounter(slot int, val string) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if slot >= 0 && slot < len(srv.counters) {
		srv.counters[slot] = val
	}
}

// SetBroken makes the server serve a truncated envelope when broken
// is true, mimicking the firmware cutting a reply short.
func (srv *Server) SetBroken(broken bool) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.broken = broken
}

// SetMissing makes the server serve the router's literal FileNotFound
// body when missing is true.
func (srv *Server) SetMissing(missing bool) {
	srv.mu.Lock()
	defer srv.mu.Unlock()
	srv.missing = missing
}

func (srv *Server) handler(p httprequest.Params) (handler, context.Context, error) {
	return handler{srv}, p.Context, nil
}

type handler struct {
	srv *Server
}

type statusReq struct {
	httprequest.Route `httprequest:"GET /status.xml"`
}

func (h handler) Status(p httprequest.Params, req *statusReq) {
	srv := h.srv
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.serveSpecial(p.Response) {
		return
	}
	h.execute(p.Response, statusTmpl, statusValues{
		Model:     srv.model.String(),
		PowerReso: deviceNumber(srv.powerReso),
		PowerPV:   deviceNumber(srv.powerPV),
		Counters:  srv.counters,
	})
}

type indexReq struct {
	httprequest.Route `httprequest:"GET /index.xml"`
}

func (h handler) Index(p httprequest.Params, req *indexReq) {
	srv := h.srv
	srv.mu.Lock()
	defer srv.mu.Unlock()
	if srv.serveSpecial(p.Response) {
		return
	}
	outCode := 3 // percent
	if srv.model == routerdata.Model4x4 {
		outCode = 6 // watts
	}
	h.execute(p.Response, indexTmpl, indexValues{
		Model:   srv.model.String(),
		OutCode: outCode,
	})
}

// serveSpecial serves the broken or missing reply if one is
// configured. It reports whether it wrote a response.
func (srv *Server) serveSpecial(w http.ResponseWriter) bool {
	switch {
	case srv.missing:
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("FileNotFound"))
	case srv.broken:
		w.Header().Set("Content-Type", "text/xml")
		w.Write([]byte("<xml><rtcc>16:03"))
	default:
		return false
	}
	return true
}

func (h handler) execute(w http.ResponseWriter, tmpl *template.Template, values interface{}) {
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, values); err != nil {
		log.Printf("cannot execute template: %v", err)
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/xml")
	w.Write(buf.Bytes())
}

// deviceNumber formats a reading the way the firmware does, with a
// decimal comma.
func deviceNumber(v float64) string {
	return strings.Replace(strconv.FormatFloat(v, 'f', 1, 64), ".", ",", 1)
}

type setPowerResoReq struct {
	httprequest.Route `httprequest:"PUT /v/powerReso"`
	Value             float64 `httprequest:"v,form"`
}

func (h handler) SetPowerReso(req *setPowerResoReq) {
	h.srv.SetPowerReso(req.Value)
}

type setPowerPVReq struct {
	httprequest.Route `httprequest:"PUT /v/powerPV"`
	Value             float64 `httprequest:"v,form"`
}

func (h handler) SetPowerPV(req *setPowerPVReq) {
	h.srv.SetPowerPV(req.Value)
}

type setCounterReq struct {
	httprequest.Route `httprequest:"PUT /v/counter"`
	Slot              int    `httprequest:"slot,form"`
	Value             string `httprequest:"v,form"`
}

func (h handler) SetCounter(req *setCounterReq) {
	h.srv.SetCounter(req.Slot, req.Value)
}

type setBrokenReq struct {
	httprequest.Route `httprequest:"PUT /v/broken"`
	Value             bool `httprequest:"v,form"`
}

func (h handler) SetBroken(req *setBrokenReq) {
	h.srv.SetBroken(req.Value)
}
