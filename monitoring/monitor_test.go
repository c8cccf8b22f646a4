package monitoring

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/sarchlab/cachetile/mem/cachegeom"
	"github.com/sarchlab/cachetile/mem/tiling"
)

func get(m *Monitor, url string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, url, nil)
	rec := httptest.NewRecorder()

	m.Router().ServeHTTP(rec, req)

	return rec
}

var _ = Describe("Monitor", func() {
	var (
		m     *Monitor
		store *tiling.Tiled
		attrA tiling.Attribute[uint32]
		attrB tiling.Attribute[uint16]
	)

	BeforeEach(func() {
		g := cachegeom.MustDerive(cachegeom.X86)

		b := tiling.NewSchemaBuilder(g)
		attrA = tiling.Define[uint32](b, "a")
		attrB = tiling.Define[uint16](b, "b")
		schema, err := b.Build()
		Expect(err).NotTo(HaveOccurred())

		store = tiling.NewTiled(schema)
		attrA.Set(store, 1, 7)

		m = NewMonitor()
		m.RegisterGeometry("x86-64", cachegeom.MustDerive(cachegeom.X8664))
		m.RegisterGeometry("x86", g)
		m.RegisterStore("vertices", store, nil)
	})

	It("should fall back to a random port below 1000", func() {
		m.WithPortNumber(80)
		Expect(m.portNumber).To(Equal(0))

		m.WithPortNumber(8080)
		Expect(m.portNumber).To(Equal(8080))
	})

	It("should list geometries", func() {
		rec := get(m, "/api/list_geometries")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(`["x86","x86-64"]`))
	})

	It("should show a geometry", func() {
		rec := get(m, "/api/geometry/x86?width=32")

		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp geometryRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Width).To(Equal(32))
		Expect(rsp.Fields).To(HaveLen(14))
		Expect(rsp.Fields[10]).To(Equal(
			geometryField{Name: "TagMask", Value: 0xfffff000}))
	})

	It("should refuse widths that cannot hold the geometry", func() {
		rec := get(m, "/api/geometry/x86?width=16")

		Expect(rec.Code).To(Equal(http.StatusUnprocessableEntity))

		var rsp widthErrorRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.Width).To(Equal(16))
		Expect(rsp.Unfit).To(Equal([]string{"TagMask", "MaxTag"}))
	})

	It("should reject malformed widths", func() {
		Expect(get(m, "/api/geometry/x86?width=abc").Code).
			To(Equal(http.StatusBadRequest))
		Expect(get(m, "/api/geometry/x86?width=12").Code).
			To(Equal(http.StatusBadRequest))
	})

	It("should return 404 for unknown geometries", func() {
		Expect(get(m, "/api/geometry/arm").Code).To(Equal(http.StatusNotFound))
	})

	It("should list aggregates", func() {
		rec := get(m, "/api/list_aggregates")

		Expect(rec.Body.String()).To(MatchJSON(`["vertices"]`))
	})

	It("should serialize the layout of an aggregate", func() {
		rec := get(m, "/api/aggregate/vertices")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(ContainSubstring("tiled"))
	})

	It("should show a row of an aggregate", func() {
		rec := get(m, "/api/aggregate/vertices/row/1")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(MatchJSON(
			`[{"name":"a","value":7},{"name":"b","value":0}]`))
	})

	It("should read rows under the writers' lock", func() {
		var mu sync.Mutex
		m.RegisterStore("shared", store, &mu)
		attrA.Set(store, 1, 0)

		done := make(chan struct{})
		go func() {
			defer GinkgoRecover()
			defer close(done)

			for i := 0; i < 1000; i++ {
				mu.Lock()
				for row := 0; row < store.RowCapacity(); row++ {
					attrA.Set(store, row, uint32(i))
					attrB.Set(store, row, uint16(i))
				}
				mu.Unlock()
			}
		}()

		for i := 0; i < 50; i++ {
			rec := get(m, "/api/aggregate/shared/row/1")
			Expect(rec.Code).To(Equal(http.StatusOK))

			var values []rowValue
			Expect(json.Unmarshal(rec.Body.Bytes(), &values)).To(Succeed())
			Expect(values).To(HaveLen(2))
			Expect(values[0].Value).To(BeNumerically("==", values[1].Value))
		}

		<-done
	})

	It("should return 404 for rows out of range", func() {
		rec := get(m, "/api/aggregate/vertices/row/1000")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should return 404 for unknown aggregates", func() {
		rec := get(m, "/api/aggregate/nothing")

		Expect(rec.Code).To(Equal(http.StatusNotFound))
	})

	It("should track progress bars", func() {
		bar := m.CreateProgressBar("tiled", 10)
		bar.IncrementInProgress(4)
		bar.MoveInProgressToFinished(3)

		var bars []map[string]any
		rec := get(m, "/api/progress")
		Expect(json.Unmarshal(rec.Body.Bytes(), &bars)).To(Succeed())
		Expect(bars).To(HaveLen(1))
		Expect(bars[0]["name"]).To(Equal("tiled"))
		Expect(bars[0]["finished"]).To(BeNumerically("==", 3))
		Expect(bars[0]["in_progress"]).To(BeNumerically("==", 1))
		Expect(bars[0]["id"]).NotTo(BeEmpty())

		m.CompleteProgressBar(bar)

		rec = get(m, "/api/progress")
		Expect(rec.Body.String()).To(MatchJSON(`[]`))
	})

	It("should report resource usage", func() {
		rec := get(m, "/api/resource")

		Expect(rec.Code).To(Equal(http.StatusOK))

		var rsp resourceRsp
		Expect(json.Unmarshal(rec.Body.Bytes(), &rsp)).To(Succeed())
		Expect(rsp.MemorySize).To(BeNumerically(">", 0))
	})

	It("should collect a CPU profile", func() {
		rec := get(m, "/api/profile?duration=10ms")

		Expect(rec.Code).To(Equal(http.StatusOK))
	})

	It("should serve the dashboard", func() {
		rec := get(m, "/")

		Expect(rec.Code).To(Equal(http.StatusOK))
		Expect(rec.Body.String()).To(HavePrefix("<!DOCTYPE html>"))
	})

	It("should serve over HTTP", func() {
		url, err := m.StartServer()
		Expect(err).NotTo(HaveOccurred())

		rsp, err := http.Get(url + "/api/list_aggregates")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		body, err := io.ReadAll(rsp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(MatchJSON(`["vertices"]`))
	})
})

var _ = Describe("ResidentSetSize", func() {
	It("should be positive", func() {
		rss, err := ResidentSetSize()

		Expect(err).NotTo(HaveOccurred())
		Expect(rss).To(BeNumerically(">", 0))
	})
})
