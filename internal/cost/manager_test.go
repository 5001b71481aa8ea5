package cost_test

import (
	"context"
	"errors"
	"sync"

	"github.com/frahmantamala/cost-tracker/internal"
	"github.com/frahmantamala/cost-tracker/internal/core/events"
	"github.com/frahmantamala/cost-tracker/internal/cost"
	"github.com/frahmantamala/cost-tracker/pkg/logger"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/shopspring/decimal"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []*events.CostChangedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, e events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if ce, ok := e.(*events.CostChangedEvent); ok {
		p.events = append(p.events, ce)
	}
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, len(p.events))
	for i, e := range p.events {
		out[i] = e.EventType()
	}
	return out
}

func draft(date, item, sum string, category cost.Category) cost.Cost {
	return cost.NewCost(date, item, decimal.RequireFromString(sum), category, "")
}

var _ = Describe("Manager", func() {
	var (
		ctx       context.Context
		store     *fakeStore
		opener    *fakeOpener
		publisher *recordingPublisher
		manager   *cost.Manager
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = newFakeStore(
			draft("2024-01-15", "Lunch", "10", cost.CategoryFood),
			draft("2024-02-20", "Doctor", "50.25", cost.CategoryHealth),
			draft("2023-01-10", "Books", "30", cost.CategoryEducation),
		)
		opener = &fakeOpener{store: store}
		publisher = &recordingPublisher{}
		manager = cost.NewManager(opener, publisher, logger.Discard())
	})

	Describe("Open", func() {
		It("starts uninitialized with an empty view", func() {
			Expect(manager.State()).To(Equal(cost.StateUninitialized))
			Expect(manager.CurrentView()).To(BeEmpty())
			Expect(manager.CurrentTotal().IsZero()).To(BeTrue())
		})

		It("loads the full set and becomes ready", func() {
			Expect(manager.Open(ctx)).To(Succeed())
			Expect(manager.State()).To(Equal(cost.StateReady))
			Expect(manager.CurrentView()).To(HaveLen(3))
			Expect(manager.CurrentTotal().String()).To(Equal("90.25"))
			Expect(publisher.types()).To(ConsistOf(events.EventTypeCostViewChanged))
		})

		It("is a no-op once ready", func() {
			Expect(manager.Open(ctx)).To(Succeed())
			Expect(manager.Open(ctx)).To(Succeed())
			Expect(opener.calls).To(Equal(1))
		})

		It("stays uninitialized when the store cannot be opened and can retry", func() {
			opener.err = errBoom

			err := manager.Open(ctx)
			Expect(internal.IsType(err, internal.ErrorTypeStoreUnavailable)).To(BeTrue())
			Expect(errors.Is(err, errBoom)).To(BeTrue())
			Expect(manager.State()).To(Equal(cost.StateUninitialized))

			opener.err = nil
			Expect(manager.Open(ctx)).To(Succeed())
			Expect(manager.State()).To(Equal(cost.StateReady))
		})

		It("stays uninitialized when the initial list fails", func() {
			store.listErr = errBoom

			err := manager.Open(ctx)
			Expect(internal.IsType(err, internal.ErrorTypeRead)).To(BeTrue())
			Expect(manager.State()).To(Equal(cost.StateUninitialized))
			Expect(manager.CurrentView()).To(BeEmpty())
		})

		It("keeps store order when no sort is set", func() {
			Expect(manager.Open(ctx)).To(Succeed())
			view := manager.CurrentView()
			Expect(view[0].Item).To(Equal("Lunch"))
			Expect(view[2].Item).To(Equal("Books"))
		})
	})

	Context("before Open", func() {
		It("rejects mutations without touching the store", func() {
			_, err := manager.AddNewItem(ctx, draft("2024-01-01", "x", "1", cost.CategoryFood))
			Expect(err).To(MatchError(internal.ErrStoreNotOpen))
			Expect(manager.DeleteItem(ctx, cost.Cost{ID: 1})).To(MatchError(internal.ErrStoreNotOpen))
			_, err = manager.UpdateItem(ctx, cost.Cost{ID: 1})
			Expect(err).To(MatchError(internal.ErrStoreNotOpen))
			Expect(manager.Reload(ctx)).To(MatchError(internal.ErrStoreNotOpen))
			Expect(manager.Ping(ctx)).To(MatchError(internal.ErrStoreNotOpen))
			Expect(store.inserts).To(BeZero())
		})

		It("accepts a filter and applies it once loaded", func() {
			manager.SetFilter(cost.ForYear(2024))
			Expect(manager.Open(ctx)).To(Succeed())
			Expect(manager.CurrentView()).To(HaveLen(2))
			Expect(manager.CurrentTotal().String()).To(Equal("60.25"))
		})
	})

	Context("when ready", func() {
		BeforeEach(func() {
			Expect(manager.Open(ctx)).To(Succeed())
		})

		Describe("AddNewItem", func() {
			It("grows the view and total by the new item", func() {
				before := manager.CurrentTotal()

				created, err := manager.AddNewItem(ctx, draft("2024-03-01", "Taxi", "7.5", cost.CategoryTravel))
				Expect(err).NotTo(HaveOccurred())
				Expect(created.ID).To(Equal(int64(4)))

				view := manager.CurrentView()
				Expect(view).To(HaveLen(4))
				Expect(view[3].ID).To(Equal(created.ID))
				Expect(manager.CurrentTotal().Equal(before.Add(decimal.RequireFromString("7.5")))).To(BeTrue())
				Expect(publisher.types()).To(ContainElement(events.EventTypeCostAdded))
			})

			It("keeps the record out of the view when it does not match the filter", func() {
				manager.SetFilter(cost.ForYear(2023))

				_, err := manager.AddNewItem(ctx, draft("2024-03-01", "Taxi", "7.5", cost.CategoryTravel))
				Expect(err).NotTo(HaveOccurred())
				Expect(manager.CurrentView()).To(HaveLen(1))

				manager.SetFilter(cost.Filter{})
				Expect(manager.CurrentView()).To(HaveLen(4))
			})

			It("leaves view and total unchanged when the store write fails", func() {
				store.insertErr = errBoom
				viewBefore := manager.CurrentView()
				totalBefore := manager.CurrentTotal()

				_, err := manager.AddNewItem(ctx, draft("2024-03-01", "Taxi", "7.5", cost.CategoryTravel))
				Expect(internal.IsType(err, internal.ErrorTypeWrite)).To(BeTrue())
				Expect(manager.CurrentView()).To(Equal(viewBefore))
				Expect(manager.CurrentTotal().Equal(totalBefore)).To(BeTrue())
				Expect(publisher.types()).NotTo(ContainElement(events.EventTypeCostAdded))
			})
		})

		Describe("DeleteItem", func() {
			It("shrinks the view and total by the removed item", func() {
				target := manager.CurrentView()[1]

				Expect(manager.DeleteItem(ctx, target)).To(Succeed())

				Expect(manager.CurrentView()).To(HaveLen(2))
				Expect(manager.CurrentView()).NotTo(ContainElement(target))
				Expect(manager.CurrentTotal().String()).To(Equal("40"))
				Expect(publisher.types()).To(ContainElement(events.EventTypeCostDeleted))
			})

			It("removes by key, not by field values", func() {
				twin := manager.CurrentView()[0]
				twin.Item = "something else"

				Expect(manager.DeleteItem(ctx, twin)).To(Succeed())
				_, found := manager.Get(twin.ID)
				Expect(found).To(BeFalse())
			})

			It("leaves the view unchanged when the store rejects the delete", func() {
				store.deleteErr = errBoom
				target := manager.CurrentView()[0]

				err := manager.DeleteItem(ctx, target)
				Expect(internal.IsType(err, internal.ErrorTypeWrite)).To(BeTrue())
				Expect(manager.CurrentView()).To(ContainElement(target))
				Expect(manager.CurrentTotal().String()).To(Equal("90.25"))
			})

			It("reports a missing key as a write error", func() {
				err := manager.DeleteItem(ctx, cost.Cost{ID: 404})
				Expect(internal.IsType(err, internal.ErrorTypeWrite)).To(BeTrue())
				Expect(errors.Is(err, internal.ErrCostNotFound)).To(BeTrue())
				Expect(manager.CurrentView()).To(HaveLen(3))
			})
		})

		Describe("UpdateItem", func() {
			It("replaces the record and re-derives the total", func() {
				target := manager.CurrentView()[0]
				target.Sum = decimal.NewFromInt(100)
				target.Item = "Big lunch"

				updated, err := manager.UpdateItem(ctx, target)
				Expect(err).NotTo(HaveOccurred())
				Expect(updated.Item).To(Equal("Big lunch"))

				got, ok := manager.Get(target.ID)
				Expect(ok).To(BeTrue())
				Expect(got.Item).To(Equal("Big lunch"))
				Expect(manager.CurrentTotal().String()).To(Equal("180.25"))
			})

			It("drops the record from the view when its new date leaves the filter", func() {
				manager.SetFilter(cost.ForYear(2024))
				target := manager.CurrentView()[0]
				target.Date = "2022-06-01"

				_, err := manager.UpdateItem(ctx, target)
				Expect(err).NotTo(HaveOccurred())
				Expect(manager.CurrentView()).To(HaveLen(1))
			})

			It("keeps the old record when the store fails", func() {
				store.updateErr = errBoom
				original := manager.CurrentView()[0]
				changed := original
				changed.Item = "changed"

				_, err := manager.UpdateItem(ctx, changed)
				Expect(internal.IsType(err, internal.ErrorTypeWrite)).To(BeTrue())
				got, _ := manager.Get(original.ID)
				Expect(got.Item).To(Equal(original.Item))
			})
		})

		Describe("ToggleStar", func() {
			It("flips the flag in memory and in the store", func() {
				id := manager.CurrentView()[0].ID

				starred, err := manager.ToggleStar(ctx, id)
				Expect(err).NotTo(HaveOccurred())
				Expect(starred.Starred).To(BeTrue())

				rows, err := store.ListAll(ctx)
				Expect(err).NotTo(HaveOccurred())
				Expect(rows[0].Starred).To(BeTrue())

				unstarred, err := manager.ToggleStar(ctx, id)
				Expect(err).NotTo(HaveOccurred())
				Expect(unstarred.Starred).To(BeFalse())
			})

			It("returns not found for an unknown key", func() {
				_, err := manager.ToggleStar(ctx, 404)
				Expect(internal.IsType(err, internal.ErrorTypeNotFound)).To(BeTrue())
			})
		})

		Describe("SetFilter", func() {
			DescribeTable("derives the view from the full set",
				func(f cost.Filter, wantItems []string, wantTotal string) {
					manager.SetFilter(f)

					items := []string{}
					for _, c := range manager.CurrentView() {
						items = append(items, c.Item)
					}
					Expect(items).To(Equal(wantItems))
					Expect(manager.CurrentTotal().String()).To(Equal(wantTotal))
				},
				Entry("no constraint", cost.Filter{}, []string{"Lunch", "Doctor", "Books"}, "90.25"),
				Entry("year 2024", cost.ForYear(2024), []string{"Lunch", "Doctor"}, "60.25"),
				Entry("January of any year", cost.ForMonth(1), []string{"Lunch", "Books"}, "40"),
				Entry("January 2024", cost.YearMonth(2024, 1), []string{"Lunch"}, "10"),
				Entry("nothing", cost.YearMonth(2030, 1), []string{}, "0"),
			)

			It("is idempotent", func() {
				manager.SetFilter(cost.ForMonth(1))
				first := manager.Snapshot()
				manager.SetFilter(cost.ForMonth(1))
				second := manager.Snapshot()

				Expect(second.Costs).To(Equal(first.Costs))
				Expect(second.Total.Equal(first.Total)).To(BeTrue())
			})

			It("never shrinks the full set", func() {
				manager.SetFilter(cost.YearMonth(2030, 1))
				manager.SetFilter(cost.Filter{})
				Expect(manager.CurrentView()).To(HaveLen(3))
			})

			It("does not keep a reference to the caller's values", func() {
				year := 2024
				manager.SetFilter(cost.Filter{Year: &year})
				year = 2023
				Expect(*manager.Filter().Year).To(Equal(2024))
			})
		})

		Describe("sorting", func() {
			It("orders by amount and toggles direction", func() {
				Expect(manager.ToggleSort()).To(Equal(cost.SortAsc))
				Expect(manager.CurrentView()[0].Item).To(Equal("Lunch"))

				Expect(manager.ToggleSort()).To(Equal(cost.SortDesc))
				Expect(manager.CurrentView()[0].Item).To(Equal("Doctor"))

				manager.SetSort(cost.SortNone)
				Expect(manager.CurrentView()[1].Item).To(Equal("Doctor"))
				Expect(manager.Sort()).To(Equal(cost.SortNone))
			})

			It("applies every concurrent toggle exactly once", func() {
				const toggles = 100
				results := make(chan cost.SortOrder, toggles)

				var wg sync.WaitGroup
				for i := 0; i < toggles; i++ {
					wg.Add(1)
					go func() {
						defer wg.Done()
						results <- manager.ToggleSort()
					}()
				}
				wg.Wait()
				close(results)

				counts := map[cost.SortOrder]int{}
				for order := range results {
					counts[order]++
				}
				Expect(counts).To(Equal(map[cost.SortOrder]int{cost.SortAsc: toggles / 2, cost.SortDesc: toggles / 2}))
				Expect(manager.Sort()).To(Equal(cost.SortDesc))
			})

			It("keeps the order after an insert", func() {
				manager.SetSort(cost.SortDesc)
				_, err := manager.AddNewItem(ctx, draft("2024-03-01", "Rent", "900", cost.CategoryHousing))
				Expect(err).NotTo(HaveOccurred())
				Expect(manager.CurrentView()[0].Item).To(Equal("Rent"))
			})
		})

		Describe("Reload", func() {
			It("picks up records written by someone else", func() {
				_, err := store.Insert(ctx, draft("2024-05-05", "Gym", "20", cost.CategoryOther))
				Expect(err).NotTo(HaveOccurred())

				Expect(manager.Reload(ctx)).To(Succeed())
				Expect(manager.CurrentView()).To(HaveLen(4))
			})

			It("keeps the current view when the list fails", func() {
				store.listErr = errBoom
				Expect(internal.IsType(manager.Reload(ctx), internal.ErrorTypeRead)).To(BeTrue())
				Expect(manager.CurrentView()).To(HaveLen(3))
			})
		})

		It("returns copies of the view", func() {
			view := manager.CurrentView()
			view[0].Item = "tampered"
			Expect(manager.CurrentView()[0].Item).To(Equal("Lunch"))
		})

		It("serialises concurrent adds without losing any", func() {
			var wg sync.WaitGroup
			for i := 0; i < 20; i++ {
				wg.Add(1)
				go func() {
					defer wg.Done()
					defer GinkgoRecover()
					_, err := manager.AddNewItem(ctx, draft("2024-04-01", "Coffee", "1", cost.CategoryFood))
					Expect(err).NotTo(HaveOccurred())
				}()
			}
			wg.Wait()

			Expect(manager.CurrentView()).To(HaveLen(23))
			Expect(manager.CurrentTotal().String()).To(Equal("110.25"))
		})

		It("pings the store it holds", func() {
			Expect(manager.Ping(ctx)).To(Succeed())
		})

		It("closes the store and returns to uninitialized", func() {
			Expect(manager.Close()).To(Succeed())
			Expect(store.closed).To(BeTrue())
			Expect(manager.State()).To(Equal(cost.StateUninitialized))
			Expect(manager.CurrentView()).To(BeEmpty())
		})
	})

	It("works without a publisher", func() {
		m := cost.NewManager(opener, nil, logger.Discard())
		Expect(m.Open(ctx)).To(Succeed())
		_, err := m.AddNewItem(ctx, draft("2024-03-01", "Taxi", "1", cost.CategoryTravel))
		Expect(err).NotTo(HaveOccurred())
	})

	It("keeps mutating after the event bus is closed", func() {
		bus := events.NewEventBus(logger.Discard())
		bus.Close()

		m := cost.NewManager(opener, bus, logger.Discard())
		Expect(m.Open(ctx)).To(Succeed())
		added, err := m.AddNewItem(ctx, draft("2024-03-01", "Taxi", "1", cost.CategoryTravel))
		Expect(err).NotTo(HaveOccurred())
		Expect(m.CurrentView()).To(ContainElement(added))
	})

	It("publishes through the event bus", func() {
		bus := events.NewEventBus(logger.Discard())
		var (
			mu   sync.Mutex
			seen []string
		)
		bus.SubscribeAll(events.CostEventTypes, func(_ context.Context, e events.Event) error {
			mu.Lock()
			defer mu.Unlock()
			seen = append(seen, e.EventType())
			return nil
		})

		m := cost.NewManager(opener, bus, logger.Discard())
		Expect(m.Open(ctx)).To(Succeed())
		_, err := m.AddNewItem(ctx, draft("2024-03-01", "Taxi", "1", cost.CategoryTravel))
		Expect(err).NotTo(HaveOccurred())
		bus.Close()

		mu.Lock()
		defer mu.Unlock()
		Expect(seen).To(ConsistOf(events.EventTypeCostViewChanged, events.EventTypeCostAdded))
	})
})
