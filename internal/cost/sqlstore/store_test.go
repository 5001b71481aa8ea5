package sqlstore_test

import (
	"context"
	"errors"
	"sync"

	"github.com/frahmantamala/cost-tracker/internal"
	"github.com/frahmantamala/cost-tracker/internal/cost"
	"github.com/frahmantamala/cost-tracker/internal/cost/sqlstore"
	"github.com/frahmantamala/cost-tracker/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

func storeConfig(dir string, version int64) internal.StoreConfig {
	cfg := internal.DefaultConfig().Store
	cfg.Dir = dir
	cfg.Version = version
	return cfg
}

var _ = Describe("SQL cost store", func() {
	var (
		ctx    context.Context
		dir    string
		opener *sqlstore.Opener
		store  cost.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		dir = GinkgoT().TempDir()
		opener = sqlstore.NewOpener(storeConfig(dir, 1), logger.Discard())

		var err error
		store, err = opener.Open(ctx)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
	})

	Describe("Open", func() {
		It("creates an empty store on first use", func() {
			costs, err := store.ListAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(costs).To(BeEmpty())
		})

		It("returns the same handle on repeated calls", func() {
			again, err := opener.Open(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(BeIdenticalTo(store))
		})

		It("shares one handle between concurrent first calls", func() {
			fresh := sqlstore.NewOpener(storeConfig(GinkgoT().TempDir(), 1), logger.Discard())

			const callers = 8
			handles := make([]cost.Store, callers)
			var wg sync.WaitGroup
			for i := 0; i < callers; i++ {
				wg.Add(1)
				go func(i int) {
					defer wg.Done()
					defer GinkgoRecover()
					s, err := fresh.Open(ctx)
					Expect(err).NotTo(HaveOccurred())
					handles[i] = s
				}(i)
			}
			wg.Wait()

			for _, h := range handles[1:] {
				Expect(h).To(BeIdenticalTo(handles[0]))
			}
			Expect(handles[0].Close()).To(Succeed())
		})

		It("finishes a shared open after the caller that started it gives up", func() {
			fresh := sqlstore.NewOpener(storeConfig(GinkgoT().TempDir(), 1), logger.Discard())
			cancelled, cancel := context.WithCancel(ctx)
			cancel()

			s, err := fresh.Open(cancelled)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.Ping(ctx)).To(Succeed())

			again, err := fresh.Open(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(BeIdenticalTo(s))
			Expect(s.Close()).To(Succeed())
		})

		It("keeps the records across a close and reopen", func() {
			_, err := store.Insert(ctx, cost.NewCost("2024-01-15", "Lunch", decimal.RequireFromString("12.50"), cost.CategoryFood, ""))
			Expect(err).NotTo(HaveOccurred())
			Expect(store.Close()).To(Succeed())

			reopened, err := sqlstore.NewOpener(storeConfig(dir, 1), logger.Discard()).Open(ctx)
			Expect(err).NotTo(HaveOccurred())
			store = reopened

			costs, err := store.ListAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(costs).To(HaveLen(1))
			Expect(costs[0].Item).To(Equal("Lunch"))
		})

		It("rejects a version lower than the stored one", func() {
			Expect(store.Close()).To(Succeed())

			_, err := sqlstore.NewOpener(storeConfig(dir, 0), logger.Discard()).Open(ctx)
			Expect(err).To(HaveOccurred())
			Expect(internal.IsType(err, internal.ErrorTypeStoreUnavailable)).To(BeTrue())
			Expect(errors.Is(err, internal.ErrVersionDowngrade)).To(BeTrue())

			store, err = opener.Open(ctx)
			Expect(err).NotTo(HaveOccurred())
		})

		It("fails for a version it has no schema for", func() {
			_, err := sqlstore.NewOpener(storeConfig(GinkgoT().TempDir(), 99), logger.Discard()).Open(ctx)
			Expect(internal.IsType(err, internal.ErrorTypeStoreUnavailable)).To(BeTrue())
		})
	})

	Describe("Insert and ListAll", func() {
		It("assigns increasing keys and round-trips every field", func() {
			first := cost.NewCost("2024-01-15", "Lunch", decimal.RequireFromString("12.50"), cost.CategoryFood, "with team")
			second := cost.NewCost("2024-02-20", "Pharmacy", decimal.RequireFromString("3"), cost.CategoryHealth, "")
			second.Starred = true

			id1, err := store.Insert(ctx, first)
			Expect(err).NotTo(HaveOccurred())
			id2, err := store.Insert(ctx, second)
			Expect(err).NotTo(HaveOccurred())
			Expect(id2).To(BeNumerically(">", id1))

			costs, err := store.ListAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(costs).To(HaveLen(2))

			Expect(costs[0].ID).To(Equal(id1))
			Expect(costs[0].Date).To(Equal("2024-01-15"))
			Expect(costs[0].Item).To(Equal("Lunch"))
			Expect(costs[0].Sum.Equal(decimal.RequireFromString("12.5"))).To(BeTrue())
			Expect(costs[0].Category).To(Equal(cost.CategoryFood))
			Expect(costs[0].Description).To(Equal("with team"))
			Expect(costs[0].Starred).To(BeFalse())

			Expect(costs[1].ID).To(Equal(id2))
			Expect(costs[1].Starred).To(BeTrue())
		})

		It("ignores any key on the draft", func() {
			draft := cost.NewCost("2024-01-15", "Lunch", decimal.NewFromInt(5), cost.CategoryFood, "")
			draft.ID = 4242

			id, err := store.Insert(ctx, draft)
			Expect(err).NotTo(HaveOccurred())
			Expect(id).NotTo(Equal(int64(4242)))
		})

		It("persists values without business checks", func() {
			odd := cost.NewCost("not a date", "Refund", decimal.NewFromInt(-20), cost.Category("GADGETS"), "")

			_, err := store.Insert(ctx, odd)
			Expect(err).NotTo(HaveOccurred())

			costs, err := store.ListAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(costs[0].Sum.String()).To(Equal("-20"))
			Expect(costs[0].Category).To(Equal(cost.Category("GADGETS")))
		})
	})

	Describe("Update", func() {
		It("replaces every field of the record", func() {
			id, err := store.Insert(ctx, cost.NewCost("2024-01-15", "Lunch", decimal.NewFromInt(10), cost.CategoryFood, "note"))
			Expect(err).NotTo(HaveOccurred())

			err = store.Update(ctx, cost.Cost{
				ID:       id,
				Date:     "2024-03-01",
				Item:     "Dinner",
				Sum:      decimal.RequireFromString("22.75"),
				Category: cost.CategoryOther,
			})
			Expect(err).NotTo(HaveOccurred())

			costs, err := store.ListAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(costs).To(HaveLen(1))
			Expect(costs[0].Item).To(Equal("Dinner"))
			Expect(costs[0].Description).To(BeEmpty())
			Expect(costs[0].Sum.String()).To(Equal("22.75"))
		})

		It("reports a missing key as a write error", func() {
			err := store.Update(ctx, cost.Cost{ID: 999, Date: "2024-01-01", Item: "x", Sum: decimal.Zero, Category: cost.CategoryOther})
			Expect(internal.IsType(err, internal.ErrorTypeWrite)).To(BeTrue())
			Expect(errors.Is(err, internal.ErrCostNotFound)).To(BeTrue())
		})
	})

	Describe("DeleteByKey", func() {
		It("removes only the keyed record", func() {
			id1, err := store.Insert(ctx, cost.NewCost("2024-01-15", "A", decimal.NewFromInt(1), cost.CategoryFood, ""))
			Expect(err).NotTo(HaveOccurred())
			id2, err := store.Insert(ctx, cost.NewCost("2024-01-16", "B", decimal.NewFromInt(2), cost.CategoryFood, ""))
			Expect(err).NotTo(HaveOccurred())

			Expect(store.DeleteByKey(ctx, id1)).To(Succeed())

			costs, err := store.ListAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(costs).To(HaveLen(1))
			Expect(costs[0].ID).To(Equal(id2))
		})

		It("reports a missing key as a write error", func() {
			err := store.DeleteByKey(ctx, 12345)
			Expect(internal.IsType(err, internal.ErrorTypeWrite)).To(BeTrue())
			Expect(errors.Is(err, internal.ErrCostNotFound)).To(BeTrue())
		})
	})

	Describe("DeleteAll", func() {
		It("empties the collection", func() {
			for i := 0; i < 3; i++ {
				_, err := store.Insert(ctx, cost.NewCost("2024-01-15", "A", decimal.NewFromInt(1), cost.CategoryFood, ""))
				Expect(err).NotTo(HaveOccurred())
			}

			n, err := store.(*sqlstore.Store).DeleteAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(n).To(Equal(int64(3)))

			costs, err := store.ListAll(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(costs).To(BeEmpty())
		})
	})

	It("answers Ping while open", func() {
		Expect(store.Ping(ctx)).To(Succeed())
	})
})
