// Package monitoring turns a running simulation into a web server that can be
// inspected and controlled while it runs.
package monitoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strings"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/pkg/browser"
	"github.com/rs/xid"
	"github.com/sarchlab/trafficsim/monitoring/web"
	"github.com/sarchlab/trafficsim/sim"
	"github.com/sarchlab/trafficsim/tracing"
	"github.com/shirou/gopsutil/process"
	"github.com/sirupsen/logrus"
	"github.com/syifan/goseth"
)

// Controller is the part of a driver that the monitor can control.
type Controller interface {
	Pause()
	Continue()
	IsPaused() bool
	Step()
	TickCount() uint64
	Snapshot() sim.Snapshot
}

// CounterSource provides per-road counters.
type CounterSource interface {
	Counts() map[string]tracing.RoadCounters
}

// Monitor can turn a simulation into a server and allows external monitoring
// controlling of the simulation.
type Monitor struct {
	controller Controller
	counters   CounterSource
	portNumber int
	logger     logrus.FieldLogger

	server   *http.Server
	url      string
	stopping chan struct{}
	stopOnce sync.Once

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		logger:   logrus.StandardLogger(),
		stopping: make(chan struct{}),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber < 1000 {
		m.logger.Warnf(
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// WithLogger sets the logger that the monitor reports to.
func (m *Monitor) WithLogger(logger logrus.FieldLogger) *Monitor {
	m.logger = logger
	return m
}

// RegisterController registers the driver that runs the simulation.
func (m *Monitor) RegisterController(c Controller) {
	m.controller = c
}

// RegisterCounters registers the source of per-road counters.
func (m *Monitor) RegisterCounters(c CounterSource) {
	m.counters = c
}

// CreateProgressBar creates a new progress bar.
func (m *Monitor) CreateProgressBar(name string, total uint64) *ProgressBar {
	bar := &ProgressBar{
		ID:        xid.New().String(),
		Name:      name,
		StartTime: time.Now(),
		Total:     total,
	}

	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	m.progressBars = append(m.progressBars, bar)

	return bar
}

// CompleteProgressBar removes a bar to be shown on the webpage.
func (m *Monitor) CompleteProgressBar(pb *ProgressBar) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	newBars := make([]*ProgressBar, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		if b != pb {
			newBars = append(newBars, b)
		}
	}

	m.progressBars = newBars
}

func (m *Monitor) newRouter() *mux.Router {
	r := mux.NewRouter()

	r.HandleFunc("/api/pause", m.pause)
	r.HandleFunc("/api/continue", m.continueRun)
	r.HandleFunc("/api/now", m.now)
	r.HandleFunc("/api/step", m.step)
	r.HandleFunc("/api/snapshot", m.snapshot)
	r.HandleFunc("/api/stream", m.streamSnapshots)
	r.HandleFunc("/api/roads", m.listRoads)
	r.HandleFunc("/api/road/{name}", m.roadDetails)
	r.HandleFunc("/api/field/{json}", m.listFieldValue)
	r.HandleFunc("/api/counters", m.listCounters)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = fmt.Sprintf(":%d", m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	m.url = fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)
	m.server = &http.Server{
		Handler:           m.newRouter(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	m.logger.WithField("url", m.url).Info("monitoring simulation")

	go func() {
		err := m.server.Serve(listener)
		if err != nil && err != http.ErrServerClosed {
			dieOnErr(err)
		}
	}()

	return m.url
}

// URL returns the address of the server, or an empty string if the server has
// not been started.
func (m *Monitor) URL() string {
	return m.url
}

// OpenInBrowser opens the monitor in the default web browser.
func (m *Monitor) OpenInBrowser() error {
	if m.url == "" {
		return fmt.Errorf("monitoring server is not started")
	}

	return browser.OpenURL(m.url)
}

// StopServer shuts the server down and closes the snapshot streams.
func (m *Monitor) StopServer(ctx context.Context) error {
	m.stopOnce.Do(func() { close(m.stopping) })

	if m.server == nil {
		return nil
	}

	return m.server.Shutdown(ctx)
}

func (m *Monitor) pause(w http.ResponseWriter, _ *http.Request) {
	m.controller.Pause()
	_, err := w.Write(nil)
	dieOnErr(err)
}

func (m *Monitor) continueRun(w http.ResponseWriter, _ *http.Request) {
	m.controller.Continue()
	_, err := w.Write(nil)
	dieOnErr(err)
}

type nowRsp struct {
	Tick           uint64 `json:"tick"`
	ElapsedSeconds int64  `json:"elapsed_seconds"`
	Paused         bool   `json:"paused"`
}

func (m *Monitor) now(w http.ResponseWriter, _ *http.Request) {
	s := m.controller.Snapshot()

	m.writeJSON(w, nowRsp{
		Tick:           s.Tick,
		ElapsedSeconds: s.ElapsedSeconds,
		Paused:         m.controller.IsPaused(),
	})
}

func (m *Monitor) step(w http.ResponseWriter, _ *http.Request) {
	if !m.controller.IsPaused() {
		w.WriteHeader(http.StatusConflict)
		_, err := w.Write([]byte("Simulation must be paused to step"))
		dieOnErr(err)
		return
	}

	m.controller.Step()
	m.now(w, nil)
}

func (m *Monitor) snapshot(w http.ResponseWriter, _ *http.Request) {
	m.writeJSON(w, m.controller.Snapshot())
}

func (m *Monitor) listRoads(w http.ResponseWriter, _ *http.Request) {
	s := m.controller.Snapshot()

	names := make([]string, 0, len(s.Roads))
	for _, r := range s.Roads {
		names = append(names, r.Name)
	}

	m.writeJSON(w, names)
}

func (m *Monitor) roadDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	road, ok := m.findRoadOr404(w, name)
	if !ok {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(road)
	serializer.SetMaxDepth(1)
	err := serializer.Serialize(w)

	dieOnErr(err)
}

type fieldReq struct {
	RoadName  string `json:"road_name,omitempty"`
	FieldName string `json:"field_name,omitempty"`
}

func (m *Monitor) listFieldValue(w http.ResponseWriter, r *http.Request) {
	jsonString := mux.Vars(r)["json"]
	req := fieldReq{}

	err := json.Unmarshal([]byte(jsonString), &req)
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	road, ok := m.findRoadOr404(w, req.RoadName)
	if !ok {
		return
	}

	serializer := goseth.NewSerializer()
	serializer.SetRoot(road)
	serializer.SetMaxDepth(1)

	err = serializer.SetEntryPoint(strings.Split(req.FieldName, "."))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprintf(w, "Error: %s", err)
		return
	}

	err = serializer.Serialize(w)
	dieOnErr(err)
}

func (m *Monitor) findRoadOr404(
	w http.ResponseWriter,
	name string,
) (*sim.RoadSnapshot, bool) {
	road, ok := m.controller.Snapshot().Road(name)
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Road not found"))
		dieOnErr(err)

		return nil, false
	}

	return &road, true
}

func (m *Monitor) listCounters(w http.ResponseWriter, _ *http.Request) {
	if m.counters == nil {
		m.writeJSON(w, map[string]tracing.RoadCounters{})
		return
	}

	m.writeJSON(w, m.counters.Counts())
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	defer m.progressBarsLock.Unlock()

	bars := make([]ProgressBarStatus, 0, len(m.progressBars))
	for _, b := range m.progressBars {
		bars = append(bars, b.Status())
	}

	m.writeJSON(w, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	pid := os.Getpid()
	process, err := process.NewProcess(int32(pid))
	dieOnErr(err)

	cpuPercent, err := process.CPUPercent()
	dieOnErr(err)

	memorySize, err := process.MemoryInfo()
	dieOnErr(err)

	m.writeJSON(w, resourceRsp{
		CPUPercent: cpuPercent,
		MemorySize: memorySize.RSS,
	})
}

func (m *Monitor) collectProfile(w http.ResponseWriter, _ *http.Request) {
	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	dieOnErr(err)

	time.Sleep(time.Second)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	m.writeJSON(w, prof)
}

func (m *Monitor) writeJSON(w http.ResponseWriter, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
