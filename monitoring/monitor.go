// Package monitoring serves one engine session over HTTP so that it can be
// inspected and driven from a browser.
package monitoring

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"os"
	"runtime/pprof"
	"strconv"
	"sync"
	"time"

	// Enable profiling
	_ "net/http/pprof"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"github.com/sarchlab/vmsim/mem/vm"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
	"github.com/sarchlab/vmsim/monitoring/web"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Monitor turns an engine into a server. Every request that touches the
// engine holds the same lock, so the engine only ever sees one caller.
type Monitor struct {
	sessionID  string
	portNumber int

	lock   sync.Mutex
	engine *mmu.Engine
	driver *mmu.Driver

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		sessionID: xid.New().String(),
	}
}

// WithPortNumber sets the port number of the monitor.
func (m *Monitor) WithPortNumber(portNumber int) *Monitor {
	if portNumber != 0 && portNumber < 1000 {
		fmt.Fprintf(os.Stderr,
			"Port number %d is assigned to the monitoring server, "+
				"which is not allowed. Using a random port instead.\n", portNumber)
		portNumber = 0
	}

	m.portNumber = portNumber

	return m
}

// RegisterEngine registers the engine that the monitor exposes.
func (m *Monitor) RegisterEngine(e *mmu.Engine) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.engine = e
	m.driver = mmu.NewDriver(e)
}

// Handler returns the router that serves the API and the web page.
func (m *Monitor) Handler() http.Handler {
	r := mux.NewRouter()

	r.HandleFunc("/api/progress", m.listProgressBars).Methods(http.MethodGet)
	r.HandleFunc("/api/resource", m.listResources).Methods(http.MethodGet)
	r.HandleFunc("/api/profile", m.collectProfile).Methods(http.MethodGet)

	api := r.PathPrefix("/api").Subrouter()
	api.Use(m.requireEngine)
	api.HandleFunc("/session", m.session).Methods(http.MethodGet)
	api.HandleFunc("/config", m.config).Methods(http.MethodGet)
	api.HandleFunc("/tables", m.tables).Methods(http.MethodGet)
	api.HandleFunc("/stats", m.stats).Methods(http.MethodGet)
	api.HandleFunc("/state", m.state).Methods(http.MethodGet)
	api.HandleFunc("/engine", m.engineDetails).Methods(http.MethodGet)
	api.HandleFunc("/configure", m.configure).Methods(http.MethodPost)
	api.HandleFunc("/translate/{address}", m.translate).
		Methods(http.MethodPost)
	api.HandleFunc("/step/{address}/{step}", m.step).
		Methods(http.MethodPost)
	api.HandleFunc("/submit", m.submit).Methods(http.MethodPost)
	api.HandleFunc("/next", m.next).Methods(http.MethodPost)
	api.HandleFunc("/abort", m.abort).Methods(http.MethodPost)
	api.HandleFunc("/reset", m.reset).Methods(http.MethodPost)

	r.PathPrefix("/debug/pprof/").Handler(http.DefaultServeMux)
	r.PathPrefix("/").Handler(http.FileServer(web.GetAssets()))

	return r
}

// StartServer starts the monitor as a web server and returns its URL.
func (m *Monitor) StartServer() string {
	actualPort := ":0"
	if m.portNumber > 1000 {
		actualPort = ":" + strconv.Itoa(m.portNumber)
	}

	listener, err := net.Listen("tcp", actualPort)
	dieOnErr(err)

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring simulation with %s\n", url)

	handler := m.Handler()

	go func() {
		err := http.Serve(listener, handler)
		dieOnErr(err)
	}()

	return url
}

var (
	// ErrNoEngine is reported by engine routes until an engine is
	// registered.
	ErrNoEngine = errors.New("no engine registered")

	// ErrDriverBusy is reported when an address is driven by hand while a
	// submitted address is being translated.
	ErrDriverBusy = errors.New("a submitted address is being translated")
)

func (m *Monitor) requireEngine(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.lock.Lock()
		registered := m.engine != nil
		m.lock.Unlock()

		if !registered {
			writeJSON(w, http.StatusServiceUnavailable,
				errorRsp{Error: ErrNoEngine.Error()})
			return
		}

		next.ServeHTTP(w, r)
	})
}

// driverBusy reports a conflict if the driver has an address in flight. The
// caller holds the lock.
func (m *Monitor) driverBusy(w http.ResponseWriter) bool {
	current, inFlight := m.driver.Current()
	if !inFlight {
		return false
	}

	writeJSON(w, http.StatusConflict,
		errorRsp{Error: fmt.Sprintf("%v: %s", ErrDriverBusy, current)})

	return true
}

type errorRsp struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	err := json.NewEncoder(w).Encode(v)
	dieOnErr(err)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, http.StatusBadRequest, errorRsp{Error: err.Error()})
}

type sessionRsp struct {
	ID     string `json:"id"`
	Engine string `json:"engine"`
}

func (m *Monitor) session(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	writeJSON(w, http.StatusOK, sessionRsp{
		ID:     m.sessionID,
		Engine: m.engine.Name(),
	})
}

type configRsp struct {
	vm.Config
	Configured bool `json:"configured"`
}

func (m *Monitor) config(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	cfg, ok := m.engine.Config()
	writeJSON(w, http.StatusOK, configRsp{Config: cfg, Configured: ok})
}

func (m *Monitor) tables(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	writeJSON(w, http.StatusOK, m.engine.Snapshot())
}

type statsRsp struct {
	mmu.Stats
	HitRate  float64 `json:"hit_rate"`
	MissRate float64 `json:"miss_rate"`
}

func (m *Monitor) stats(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	s := m.engine.Stats()
	writeJSON(w, http.StatusOK, statsRsp{
		Stats:    s,
		HitRate:  s.HitRate(),
		MissRate: s.MissRate(),
	})
}

type stateRsp struct {
	State    mmu.State      `json:"state"`
	NextStep mmu.StepNumber `json:"next_step"`
	Current  string         `json:"current,omitempty"`
	Pending  int            `json:"pending"`
}

func (m *Monitor) state(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	current, _ := m.engine.Current()
	writeJSON(w, http.StatusOK, stateRsp{
		State:    m.engine.State(),
		NextStep: m.engine.NextStep(),
		Current:  current,
		Pending:  m.driver.Pending(),
	})
}

func (m *Monitor) configure(w http.ResponseWriter, r *http.Request) {
	cfg := vm.Config{}

	err := json.NewDecoder(r.Body).Decode(&cfg)
	if err != nil {
		writeError(w, err)
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	err = m.engine.Configure(cfg)
	if err != nil {
		writeError(w, err)
		return
	}

	m.driver = mmu.NewDriver(m.engine)

	writeJSON(w, http.StatusOK, cfg)
}

func (m *Monitor) translate(w http.ResponseWriter, r *http.Request) {
	address := mux.Vars(r)["address"]

	m.lock.Lock()
	defer m.lock.Unlock()

	if m.driverBusy(w) {
		return
	}

	result, err := m.engine.Translate(address)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (m *Monitor) step(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	step, err := strconv.Atoi(vars["step"])
	if err != nil {
		writeError(w, err)
		return
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	if m.driverBusy(w) {
		return
	}

	o, err := m.engine.Step(vars["address"], mmu.StepNumber(step))
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, o)
}

type submitRsp struct {
	Pending     int    `json:"pending"`
	ProgressBar string `json:"progress_bar"`
}

func (m *Monitor) submit(w http.ResponseWriter, r *http.Request) {
	var addresses []string

	err := json.NewDecoder(r.Body).Decode(&addresses)
	if err != nil {
		writeError(w, err)
		return
	}

	bar := m.CreateProgressBar("Submitted addresses", uint64(len(addresses)))

	m.lock.Lock()
	defer m.lock.Unlock()

	m.driver.Submit(addresses...)

	writeJSON(w, http.StatusOK, submitRsp{
		Pending:     m.driver.Pending(),
		ProgressBar: bar.ID,
	})
}

func (m *Monitor) next(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	o, err := m.driver.Next()
	if errors.Is(err, mmu.ErrNoPendingAddress) {
		writeError(w, err)
		return
	}

	if err != nil {
		m.advanceProgress()
		writeError(w, err)

		return
	}

	if o.Terminal {
		m.advanceProgress()
	}

	writeJSON(w, http.StatusOK, o)
}

type emptyRsp struct{}

func (m *Monitor) abort(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.driver.Abort()

	writeJSON(w, http.StatusOK, emptyRsp{})
}

func (m *Monitor) reset(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.engine.Reset()
	m.driver = mmu.NewDriver(m.engine)

	writeJSON(w, http.StatusOK, emptyRsp{})
}

func (m *Monitor) engineDetails(w http.ResponseWriter, _ *http.Request) {
	m.lock.Lock()
	defer m.lock.Unlock()

	serializer := goseth.NewSerializer()
	serializer.SetRoot(m.engine)
	serializer.SetMaxDepth(1)

	w.Header().Set("Content-Type", "application/json")

	err := serializer.Serialize(w)
	dieOnErr(err)
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

	writeJSON(w, http.StatusOK, resourceRsp{
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

	writeJSON(w, http.StatusOK, prof)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
