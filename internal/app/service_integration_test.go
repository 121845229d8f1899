package service_test

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/okian/scoreboard/internal/adapters/repository"
	service "github.com/okian/scoreboard/internal/app"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/timeframe"
	. "github.com/smartystreets/goconvey/convey"
)

// forEachDriver runs body against a service on each storage driver.
func forEachDriver(t *testing.T, body func(svc *service.Service)) {
	for _, driver := range []string{repository.DriverMemory, repository.DriverSQLite} {
		driver := driver
		Convey("Using the "+driver+" driver", func() {
			path := filepath.Join(t.TempDir(), "scores.db")
			svc := startedService(service.WithStorage(driver, path))
			defer svc.Stop()
			body(svc)
		})
	}
}

func bestFor(entries []model.RankedEntry, name string) []model.RankedEntry {
	var out []model.RankedEntry
	for _, e := range entries {
		if e.Name == name {
			out = append(out, e)
		}
	}
	return out
}

func TestIntegration_SubmitAndRank(t *testing.T) {
	Convey("Given a started scoreboard", t, func() {
		forEachDriver(t, func(svc *service.Service) {
			ctx := context.Background()
			ts := time.Date(2024, time.August, 17, 16, 2, 23, 144000000, time.UTC)

			Convey("When alifeee submits a 124.22 run", func() {
				id, err := svc.Submit(ctx, input("alifeee", 124.22, ts))
				So(err, ShouldBeNil)
				So(id, ShouldBeGreaterThan, 0)

				Convey("Then the unique all-time ranking includes it", func() {
					out, err := svc.Top(ctx, timeframe.Beginning, 10, true)
					So(err, ShouldBeNil)
					mine := bestFor(out, "alifeee")
					So(len(mine), ShouldEqual, 1)
					So(mine[0].MaxHeight, ShouldEqual, 124.22)
					So(mine[0].TimeBuildingS, ShouldEqual, 102.4)
					So(mine[0].Timestamp.Equal(ts), ShouldBeTrue)
					So(mine[0].Spurious, ShouldBeFalse)
				})
			})

			Convey("When alifeee submits runs of 100 and 124.22", func() {
				_, err := svc.Submit(ctx, input("alifeee", 100, ts))
				So(err, ShouldBeNil)
				best, err := svc.Submit(ctx, input("alifeee", 124.22, ts.Add(time.Minute)))
				So(err, ShouldBeNil)
				_, err = svc.Submit(ctx, input("jman", 110, ts.Add(2*time.Minute)))
				So(err, ShouldBeNil)

				Convey("Then the unique ranking returns only the best run per name", func() {
					out, err := svc.Top(ctx, timeframe.Beginning, 10, true)
					So(err, ShouldBeNil)
					So(len(out), ShouldEqual, 2)
					So(out[0].ID, ShouldEqual, best)
					So(out[0].MaxHeight, ShouldEqual, 124.22)
					So(out[1].Name, ShouldEqual, "jman")
				})

				Convey("Then the raw ranking returns every run", func() {
					out, err := svc.Top(ctx, timeframe.Beginning, 10, false)
					So(err, ShouldBeNil)
					So(len(bestFor(out, "alifeee")), ShouldEqual, 2)
				})

				Convey("And the best run is marked spurious", func() {
					r, err := svc.ToggleSpurious(ctx, best)
					So(err, ShouldBeNil)
					So(r.Spurious, ShouldBeTrue)

					Convey("Then the unique ranking falls back to the next clean run", func() {
						out, err := svc.Top(ctx, timeframe.Beginning, 10, true)
						So(err, ShouldBeNil)
						mine := bestFor(out, "alifeee")
						So(len(mine), ShouldEqual, 1)
						So(mine[0].MaxHeight, ShouldEqual, 100.0)
						for _, e := range out {
							So(e.Spurious, ShouldBeFalse)
						}
					})

					Convey("Then the raw ranking still shows the spurious run first", func() {
						out, err := svc.Top(ctx, timeframe.Beginning, 10, false)
						So(err, ShouldBeNil)
						So(out[0].ID, ShouldEqual, best)
						So(out[0].Spurious, ShouldBeTrue)
					})
				})
			})

			Convey("When the only alifeee run is spurious", func() {
				id, err := svc.Submit(ctx, input("alifeee", 124.22, ts))
				So(err, ShouldBeNil)
				_, err = svc.ToggleSpurious(ctx, id)
				So(err, ShouldBeNil)

				Convey("Then the unique ranking no longer returns alifeee", func() {
					out, err := svc.Top(ctx, timeframe.Beginning, 10, true)
					So(err, ShouldBeNil)
					So(bestFor(out, "alifeee"), ShouldBeEmpty)
				})

				Convey("Then the raw ranking still does", func() {
					out, err := svc.Top(ctx, timeframe.Beginning, 10, false)
					So(err, ShouldBeNil)
					So(len(bestFor(out, "alifeee")), ShouldEqual, 1)
				})
			})
		})
	})
}

func TestIntegration_ConcurrentSubmissions(t *testing.T) {
	Convey("Given a started scoreboard", t, func() {
		forEachDriver(t, func(svc *service.Service) {
			ctx := context.Background()
			const writers, perWriter = 4, 10
			base := time.Date(2024, time.August, 17, 0, 0, 0, 0, time.UTC)

			Convey("When several goroutines submit at once", func() {
				var wg sync.WaitGroup
				ids := make(chan int64, writers*perWriter)
				for w := 0; w < writers; w++ {
					wg.Add(1)
					go func(w int) {
						defer wg.Done()
						for i := 0; i < perWriter; i++ {
							id, err := svc.Submit(ctx, input("p", float64(w*perWriter+i), base.Add(time.Duration(i)*time.Second)))
							if err == nil {
								ids <- id
							}
						}
					}(w)
				}
				wg.Wait()
				close(ids)

				Convey("Then every submission gets a distinct id", func() {
					seen := map[int64]bool{}
					for id := range ids {
						seen[id] = true
					}
					So(len(seen), ShouldEqual, writers*perWriter)

					rows, err := svc.Dump(ctx)
					So(err, ShouldBeNil)
					So(len(rows), ShouldEqual, writers*perWriter)
				})
			})
		})
	})
}
