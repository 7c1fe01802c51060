package monitoring

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/sarchlab/vmsim/mem/vm/mmu"
)

var _ = Describe("Monitor", func() {
	var (
		m      *Monitor
		engine *mmu.Engine
		server *httptest.Server
	)

	do := func(method, path, body string) (int, map[string]any) {
		req, err := http.NewRequest(method, server.URL+path,
			strings.NewReader(body))
		Expect(err).NotTo(HaveOccurred())

		rsp, err := http.DefaultClient.Do(req)
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		var data map[string]any
		Expect(json.NewDecoder(rsp.Body).Decode(&data)).To(Succeed())

		return rsp.StatusCode, data
	}

	BeforeEach(func() {
		var err error
		engine, err = mmu.MakeBuilder().
			WithAddressBits(4).
			WithTLBCapacity(4).
			WithPhysicalFrameCount(4).
			Build("MMU")
		Expect(err).NotTo(HaveOccurred())

		m = NewMonitor()
		m.RegisterEngine(engine)

		server = httptest.NewServer(m.Handler())
		DeferCleanup(server.Close)
	})

	It("should describe the session", func() {
		status, data := do(http.MethodGet, "/api/session", "")

		Expect(status).To(Equal(http.StatusOK))
		Expect(data["id"]).NotTo(BeEmpty())
		Expect(data["engine"]).To(Equal("MMU"))
	})

	It("should report the configuration", func() {
		status, data := do(http.MethodGet, "/api/config", "")

		Expect(status).To(Equal(http.StatusOK))
		Expect(data["address_bits"]).To(BeEquivalentTo(4))
		Expect(data["configured"]).To(BeTrue())
	})

	It("should translate and show the tables", func() {
		status, data := do(http.MethodPost, "/api/translate/8", "")
		Expect(status).To(Equal(http.StatusOK))
		Expect(data["final"]).To(HaveKeyWithValue("kind", "Completed"))

		status, data = do(http.MethodGet, "/api/tables", "")
		Expect(status).To(Equal(http.StatusOK))
		pageTable := data["page_table"].(map[string]any)
		Expect(pageTable["rows"]).To(ContainElement(
			[]any{"2", "1", "0"}))

		_, data = do(http.MethodGet, "/api/stats", "")
		Expect(data["misses"]).To(BeEquivalentTo(1))
		Expect(data["miss_rate"]).To(BeEquivalentTo(100))
	})

	It("should step and report the state", func() {
		status, data := do(http.MethodPost, "/api/step/8/1", "")
		Expect(status).To(Equal(http.StatusOK))
		Expect(data["kind"]).To(Equal("Miss"))

		_, data = do(http.MethodGet, "/api/state", "")
		Expect(data["state"]).To(Equal("AwaitingStep2"))
		Expect(data["next_step"]).To(BeEquivalentTo(2))
		Expect(data["current"]).To(Equal("8"))
	})

	It("should map engine errors to bad requests", func() {
		status, data := do(http.MethodPost, "/api/step/8/3", "")
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(data["error"]).To(ContainSubstring("invalid step sequence"))

		status, data = do(http.MethodPost, "/api/translate/14", "")
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(data["error"]).To(ContainSubstring("address out of range"))

		status, _ = do(http.MethodPost, "/api/step/8/x", "")
		Expect(status).To(Equal(http.StatusBadRequest))
	})

	It("should drive submitted addresses", func() {
		status, data := do(http.MethodPost, "/api/submit", `["8", "8"]`)
		Expect(status).To(Equal(http.StatusOK))
		Expect(data["pending"]).To(BeEquivalentTo(2))

		for i := 0; i < 4; i++ {
			status, _ = do(http.MethodPost, "/api/next", "")
			Expect(status).To(Equal(http.StatusOK))
		}

		_, data = do(http.MethodPost, "/api/next", "")
		Expect(data["kind"]).To(Equal("Hit"))
		Expect(m.progressBars).To(BeEmpty())

		status, data = do(http.MethodPost, "/api/next", "")
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(data["error"]).To(ContainSubstring("no pending address"))
	})

	It("should reconfigure", func() {
		status, _ := do(http.MethodPost, "/api/configure",
			`{"address_bits": 8, "tlb_capacity": 2, "physical_frame_count": 8}`)
		Expect(status).To(Equal(http.StatusOK))

		cfg, _ := engine.Config()
		Expect(cfg.AddressBits).To(Equal(8))

		status, data := do(http.MethodPost, "/api/configure",
			`{"address_bits": 8, "tlb_capacity": 0, "physical_frame_count": 8}`)
		Expect(status).To(Equal(http.StatusBadRequest))
		Expect(data["error"]).To(ContainSubstring("invalid configuration"))
	})

	It("should reset", func() {
		do(http.MethodPost, "/api/translate/8", "")

		status, _ := do(http.MethodPost, "/api/reset", "")

		Expect(status).To(Equal(http.StatusOK))
		Expect(engine.Stats()).To(Equal(mmu.Stats{}))
	})

	It("should abort the address in flight", func() {
		do(http.MethodPost, "/api/step/8/1", "")

		status, _ := do(http.MethodPost, "/api/abort", "")

		Expect(status).To(Equal(http.StatusOK))
		Expect(engine.State()).To(Equal(mmu.StateAwaitingStep1))
	})

	It("should not let manual steps cut into submitted addresses", func() {
		do(http.MethodPost, "/api/submit", `["8", "4"]`)
		status, data := do(http.MethodPost, "/api/next", "")
		Expect(status).To(Equal(http.StatusOK))
		Expect(data["address"]).To(Equal("8"))

		status, data = do(http.MethodPost, "/api/translate/4", "")
		Expect(status).To(Equal(http.StatusConflict))
		Expect(data["error"]).To(ContainSubstring("being translated: 8"))

		status, _ = do(http.MethodPost, "/api/step/4/1", "")
		Expect(status).To(Equal(http.StatusConflict))

		_, data = do(http.MethodPost, "/api/next", "")
		Expect(data["address"]).To(Equal("8"))
		Expect(data["step"]).To(BeEquivalentTo(2))

		do(http.MethodPost, "/api/abort", "")

		_, data = do(http.MethodPost, "/api/next", "")
		Expect(data["address"]).To(Equal("4"))
		Expect(data["step"]).To(BeEquivalentTo(1))

		status, _ = do(http.MethodPost, "/api/abort", "")
		Expect(status).To(Equal(http.StatusOK))
		status, _ = do(http.MethodPost, "/api/translate/4", "")
		Expect(status).To(Equal(http.StatusOK))
	})

	It("should report resource usage", func() {
		status, data := do(http.MethodGet, "/api/resource", "")

		Expect(status).To(Equal(http.StatusOK))
		Expect(data["memory_size"]).To(BeNumerically(">", 0))
	})

	It("should serialize the engine", func() {
		rsp, err := http.Get(server.URL + "/api/engine")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
	})

	It("should serve the web page", func() {
		rsp, err := http.Get(server.URL + "/")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
	})
})

var _ = Describe("Monitor without an engine", func() {
	It("should refuse engine routes", func() {
		server := httptest.NewServer(NewMonitor().Handler())
		DeferCleanup(server.Close)

		rsp, err := http.Get(server.URL + "/api/session")
		Expect(err).NotTo(HaveOccurred())
		defer rsp.Body.Close()

		var data map[string]any
		Expect(json.NewDecoder(rsp.Body).Decode(&data)).To(Succeed())
		Expect(rsp.StatusCode).To(Equal(http.StatusServiceUnavailable))
		Expect(data["error"]).To(Equal(ErrNoEngine.Error()))

		rsp, err = http.Post(server.URL+"/api/next", "application/json", nil)
		Expect(err).NotTo(HaveOccurred())
		rsp.Body.Close()
		Expect(rsp.StatusCode).To(Equal(http.StatusServiceUnavailable))

		rsp, err = http.Get(server.URL + "/api/progress")
		Expect(err).NotTo(HaveOccurred())
		rsp.Body.Close()
		Expect(rsp.StatusCode).To(Equal(http.StatusOK))
	})
})

var _ = Describe("ProgressBar", func() {
	It("should be removed once complete", func() {
		m := NewMonitor()
		bar := m.CreateProgressBar("addresses", 2)

		m.advanceProgress()
		Expect(bar.Finished).To(Equal(uint64(1)))
		Expect(m.progressBars).To(HaveLen(1))

		m.advanceProgress()
		Expect(bar.Done()).To(BeTrue())
		Expect(m.progressBars).To(BeEmpty())
	})
})

var _ = Describe("WithPortNumber", func() {
	It("should refuse privileged ports", func() {
		m := NewMonitor().WithPortNumber(80)

		Expect(m.portNumber).To(Equal(0))
	})
})
