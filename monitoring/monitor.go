// Package monitoring serves the geometries and aggregates of a running
// benchmark over HTTP.
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
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/pprof/profile"
	"github.com/gorilla/mux"
	"github.com/rs/xid"
	"github.com/sarchlab/cachetile/mem/cachegeom"
	"github.com/sarchlab/cachetile/mem/tiling"
	"github.com/sarchlab/cachetile/monitoring/web"
	"github.com/shirou/gopsutil/process"
	"github.com/syifan/goseth"
)

// Monitor turns a benchmark into a server that exposes its cache geometries,
// its aggregates, and the progress of its runs.
type Monitor struct {
	portNumber int

	lock       sync.RWMutex
	geometries map[string]cachegeom.Geometry
	stores     map[string]guardedStore

	progressBarsLock sync.Mutex
	progressBars     []*ProgressBar
}

// A guardedStore is an aggregate and the lock its writers hold.
type guardedStore struct {
	store tiling.Store
	lock  sync.Locker
}

// NewMonitor creates a new Monitor
func NewMonitor() *Monitor {
	return &Monitor{
		geometries: make(map[string]cachegeom.Geometry),
		stores:     make(map[string]guardedStore),
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

// RegisterGeometry makes a geometry visible under name.
func (m *Monitor) RegisterGeometry(name string, g cachegeom.Geometry) {
	m.lock.Lock()
	defer m.lock.Unlock()

	m.geometries[name] = g
}

// RegisterStore makes an aggregate visible under name. The monitor holds
// lock while it reads the aggregate, so anything writing s concurrently must
// hold it too. A nil lock means s is not written while the monitor runs.
func (m *Monitor) RegisterStore(name string, s tiling.Store, lock sync.Locker) {
	if lock == nil {
		lock = new(sync.Mutex)
	}

	m.lock.Lock()
	defer m.lock.Unlock()

	m.stores[name] = guardedStore{store: s, lock: lock}
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

// Router returns the HTTP routes of the monitor.
func (m *Monitor) Router() *mux.Router {
	r := mux.NewRouter()

	fServer := http.FileServer(web.GetAssets())
	r.HandleFunc("/api/list_geometries", m.listGeometries)
	r.HandleFunc("/api/geometry/{name}", m.geometryDetails)
	r.HandleFunc("/api/list_aggregates", m.listAggregates)
	r.HandleFunc("/api/aggregate/{name}", m.aggregateDetails)
	r.HandleFunc("/api/aggregate/{name}/row/{row:[0-9]+}", m.aggregateRow)
	r.HandleFunc("/api/progress", m.listProgressBars)
	r.HandleFunc("/api/resource", m.listResources)
	r.HandleFunc("/api/profile", m.collectProfile)
	r.PathPrefix("/").Handler(fServer)

	return r
}

// StartServer listens on the configured port and serves in the background.
// It returns the URL of the server.
func (m *Monitor) StartServer() (string, error) {
	actualPort := ":" + strconv.Itoa(m.portNumber)

	listener, err := net.Listen("tcp", actualPort)
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://localhost:%d",
		listener.Addr().(*net.TCPAddr).Port)

	fmt.Fprintf(os.Stderr, "Monitoring benchmark with %s\n", url)

	go func() {
		err := http.Serve(listener, m.Router())
		dieOnErr(err)
	}()

	return url, nil
}

func sortedKeys[V any](entries map[string]V) []string {
	keys := make([]string, 0, len(entries))
	for k := range entries {
		keys = append(keys, k)
	}

	sort.Strings(keys)

	return keys
}

func (m *Monitor) listGeometries(w http.ResponseWriter, _ *http.Request) {
	m.lock.RLock()
	names := sortedKeys(m.geometries)
	m.lock.RUnlock()

	writeJSON(w, http.StatusOK, names)
}

type geometryField struct {
	Name  string `json:"name"`
	Value uint64 `json:"value"`
}

type geometryRsp struct {
	Name   string          `json:"name"`
	Width  int             `json:"width"`
	Fields []geometryField `json:"fields"`
}

type widthErrorRsp struct {
	Error string   `json:"error"`
	Width int      `json:"width"`
	Unfit []string `json:"unfit"`
}

func (m *Monitor) geometryDetails(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]

	m.lock.RLock()
	g, ok := m.geometries[name]
	m.lock.RUnlock()

	if !ok {
		http.Error(w, "Geometry not found", http.StatusNotFound)
		return
	}

	width := 64
	if s := r.URL.Query().Get("width"); s != "" {
		var err error

		width, err = strconv.Atoi(s)
		if err != nil {
			http.Error(w, fmt.Sprintf("Error: %s", err), http.StatusBadRequest)
			return
		}
	}

	err := cachegeom.CheckWidth(g, width)

	var widthErr *cachegeom.WidthError
	switch {
	case errors.As(err, &widthErr):
		rsp := widthErrorRsp{Error: err.Error(), Width: width}
		for _, f := range widthErr.Fields {
			rsp.Unfit = append(rsp.Unfit, f.String())
		}

		writeJSON(w, http.StatusUnprocessableEntity, rsp)

		return
	case err != nil:
		http.Error(w, fmt.Sprintf("Error: %s", err), http.StatusBadRequest)
		return
	}

	rsp := geometryRsp{Name: name, Width: width}
	for _, f := range cachegeom.AllFields() {
		rsp.Fields = append(rsp.Fields, geometryField{
			Name:  f.String(),
			Value: g.Value(f),
		})
	}

	writeJSON(w, http.StatusOK, rsp)
}

func (m *Monitor) listAggregates(w http.ResponseWriter, _ *http.Request) {
	m.lock.RLock()
	names := sortedKeys(m.stores)
	m.lock.RUnlock()

	writeJSON(w, http.StatusOK, names)
}

func (m *Monitor) findStoreOr404(
	w http.ResponseWriter,
	name string,
) (guardedStore, bool) {
	m.lock.RLock()
	s, ok := m.stores[name]
	m.lock.RUnlock()

	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, err := w.Write([]byte("Aggregate not found"))
		dieOnErr(err)
	}

	return s, ok
}

// aggregateDetails serializes the layout of an aggregate. The optional field
// query parameter selects a nested value, as in "Attributes.0".
func (m *Monitor) aggregateDetails(w http.ResponseWriter, r *http.Request) {
	s, ok := m.findStoreOr404(w, mux.Vars(r)["name"])
	if !ok {
		return
	}

	layout := tiling.LayoutOf(s.store)

	serializer := goseth.NewSerializer()
	serializer.SetRoot(&layout)
	serializer.SetMaxDepth(2)

	if field := r.URL.Query().Get("field"); field != "" {
		err := serializer.SetEntryPoint(strings.Split(field, "."))
		if err != nil {
			http.Error(w, fmt.Sprintf("Error: %s", err), http.StatusBadRequest)
			return
		}
	}

	err := serializer.Serialize(w)
	dieOnErr(err)
}

type rowValue struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

func (m *Monitor) aggregateRow(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	s, ok := m.findStoreOr404(w, vars["name"])
	if !ok {
		return
	}

	row, err := strconv.Atoi(vars["row"])
	if err != nil || row >= s.store.RowCapacity() {
		http.Error(w, fmt.Sprintf("Row %s out of range", vars["row"]),
			http.StatusNotFound)
		return
	}

	kinds := s.store.Schema().Kinds()

	s.lock.Lock()
	values := tiling.Row(s.store, row)
	s.lock.Unlock()

	rsp := make([]rowValue, len(values))
	for i, v := range values {
		rsp[i] = rowValue{Name: kinds[i].Name, Value: v}
	}

	writeJSON(w, http.StatusOK, rsp)
}

func (m *Monitor) listProgressBars(w http.ResponseWriter, _ *http.Request) {
	m.progressBarsLock.Lock()
	bars := make([]*ProgressBar, len(m.progressBars))
	copy(bars, m.progressBars)
	m.progressBarsLock.Unlock()

	writeJSON(w, http.StatusOK, bars)
}

type resourceRsp struct {
	CPUPercent float64 `json:"cpu_percent"`
	MemorySize uint64  `json:"memory_size"`
}

// ResidentSetSize returns the resident memory of this process in bytes.
func ResidentSetSize() (uint64, error) {
	p, err := process.NewProcess(int32(os.Getpid()))
	if err != nil {
		return 0, err
	}

	mem, err := p.MemoryInfo()
	if err != nil {
		return 0, err
	}

	return mem.RSS, nil
}

func (m *Monitor) listResources(w http.ResponseWriter, _ *http.Request) {
	process, err := process.NewProcess(int32(os.Getpid()))
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

// collectProfile samples the CPU for the duration given in the query, one
// second by default.
func (m *Monitor) collectProfile(w http.ResponseWriter, r *http.Request) {
	duration := time.Second
	if s := r.URL.Query().Get("duration"); s != "" {
		var err error

		duration, err = time.ParseDuration(s)
		if err != nil {
			http.Error(w, fmt.Sprintf("Error: %s", err), http.StatusBadRequest)
			return
		}
	}

	buf := bytes.NewBuffer(nil)

	err := pprof.StartCPUProfile(buf)
	if err != nil {
		http.Error(w, fmt.Sprintf("Error: %s", err), http.StatusConflict)
		return
	}

	time.Sleep(duration)

	pprof.StopCPUProfile()

	prof, err := profile.ParseData(buf.Bytes())
	dieOnErr(err)

	writeJSON(w, http.StatusOK, prof)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	bytes, err := json.Marshal(v)
	dieOnErr(err)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_, err = w.Write(bytes)
	dieOnErr(err)
}

func dieOnErr(err error) {
	if err != nil {
		log.Panic(err)
	}
}
