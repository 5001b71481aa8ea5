package internal_test

import (
	"os"
	"path/filepath"
	"time"

	"github.com/frahmantamala/cost-tracker/internal"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

var _ = Describe("Config", func() {
	var cfg *internal.Config

	BeforeEach(func() {
		cfg = internal.DefaultConfig()
	})

	It("accepts the defaults", func() {
		Expect(cfg.Validate()).To(Succeed())
	})

	DescribeTable("rejects invalid settings",
		func(mutate func(c *internal.Config), message string) {
			mutate(cfg)
			Expect(cfg.Validate()).To(MatchError(ContainSubstring(message)))
		},
		Entry("port", func(c *internal.Config) { c.Server.Port = 70000 }, "invalid port"),
		Entry("timeouts", func(c *internal.Config) { c.Server.ReadTimeout = time.Second }, "read_timeout"),
		Entry("driver", func(c *internal.Config) { c.Store.Driver = "mysql" }, "unsupported driver"),
		Entry("sqlite name", func(c *internal.Config) { c.Store.Name = " " }, "name is required"),
		Entry("postgres dsn", func(c *internal.Config) { c.Store.Driver = internal.StoreDriverPostgres }, "dsn is required"),
		Entry("version", func(c *internal.Config) { c.Store.Version = 0 }, "version must be >= 1"),
		Entry("idle conns", func(c *internal.Config) { c.Store.MaxIdleConns = 5 }, "max_idle_conns"),
		Entry("year range", func(c *internal.Config) { c.Filter.MinYear, c.Filter.MaxYear = 2030, 2020 }, "min_year"),
		Entry("log level", func(c *internal.Config) { c.Observability.Logging.Level = "loud" }, "invalid level"),
		Entry("log format", func(c *internal.Config) { c.Observability.Logging.Format = "xml" }, "invalid format"),
	)

	It("reports every broken section at once", func() {
		cfg.Server.Port = -1
		cfg.Store.Version = 0

		err := cfg.Validate()
		Expect(err).To(MatchError(ContainSubstring("server config")))
		Expect(err).To(MatchError(ContainSubstring("store config")))
	})

	Describe("StoreConfig.Path", func() {
		It("joins dir and name", func() {
			Expect(cfg.Store.Path()).To(Equal(filepath.Join("data", "costsdb.db")))
		})

		It("keeps the in-memory name", func() {
			cfg.Store.Name = ":memory:"
			Expect(cfg.Store.Path()).To(Equal(":memory:"))
		})
	})

	Describe("FilterConfig.YearRange", func() {
		now := time.Date(2026, 3, 1, 0, 0, 0, 0, time.UTC)

		It("caps an unset max year at the current year", func() {
			from, to := cfg.Filter.YearRange(now)
			Expect(from).To(Equal(2015))
			Expect(to).To(Equal(2026))
		})

		It("uses explicit bounds", func() {
			cfg.Filter = internal.FilterConfig{MinYear: 2020, MaxYear: 2022}
			from, to := cfg.Filter.YearRange(now)
			Expect([]int{from, to}).To(Equal([]int{2020, 2022}))
		})

		It("collapses a min year past the max", func() {
			cfg.Filter = internal.FilterConfig{MinYear: 2030}
			from, to := cfg.Filter.YearRange(now)
			Expect([]int{from, to}).To(Equal([]int{2026, 2026}))
		})
	})

	Describe("LoadConfigFromEnv", func() {
		setEnv := func(key, value string) {
			Expect(os.Setenv(key, value)).To(Succeed())
			DeferCleanup(os.Unsetenv, key)
		}

		It("overrides defaults from plain variables", func() {
			setEnv("HTTP_PORT", "9999")
			setEnv("STORE_DRIVER", "postgres")
			setEnv("STORE_DSN", "postgres://costs@localhost/costs")
			setEnv("STORE_REQUEST_TIMEOUT", "2s")
			setEnv("LOG_FORMAT", "json")

			cfg := internal.LoadConfigFromEnv()
			Expect(cfg.Server.Port).To(Equal(9999))
			Expect(cfg.Store.Driver).To(Equal(internal.StoreDriverPostgres))
			Expect(cfg.Store.DSN).To(Equal("postgres://costs@localhost/costs"))
			Expect(cfg.Store.RequestTimeout).To(Equal(2 * time.Second))
			Expect(cfg.Observability.Logging.Format).To(Equal("json"))
			Expect(cfg.Validate()).To(Succeed())
		})

		It("ignores unparsable numbers", func() {
			setEnv("HTTP_PORT", "eighty")
			setEnv("STORE_VERSION", "x")

			cfg := internal.LoadConfigFromEnv()
			Expect(cfg.Server.Port).To(Equal(8080))
			Expect(cfg.Store.Version).To(Equal(int64(1)))
		})
	})
})
