package service_test

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/scoreboard/internal/adapters/repository"
	service "github.com/okian/scoreboard/internal/app"
	"github.com/okian/scoreboard/internal/domain/model"
	"github.com/okian/scoreboard/internal/domain/query"
	"github.com/okian/scoreboard/internal/errs"
	"github.com/okian/scoreboard/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func init() {
	// Initialize logging for tests
	err := logger.Init()
	if err != nil {
		panic(err)
	}
}

// fixedNow is a Wednesday.
var fixedNow = time.Date(2024, time.August, 21, 15, 30, 0, 0, time.UTC)

func input(name string, height float64, ts time.Time) model.ScoreInput {
	return model.ScoreInput{
		Timestamp:      ts,
		Name:           name,
		MaxHeight:      height,
		TimeTotalS:     120,
		TimeBuildingS:  102.4,
		TimeScalingS:   17.6,
		BlocksPlaced:   63,
		Jumps:          78,
		DistanceFallen: 29.4,
	}
}

func startedService(opts ...service.Option) *service.Service {
	opts = append([]service.Option{service.WithClock(func() time.Time { return fixedNow })}, opts...)
	svc := service.New(opts...)
	So(svc.Start(context.Background()), ShouldBeNil)
	return svc
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it should have sensible defaults", func() {
			So(svc, ShouldNotBeNil)
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["driver"], ShouldEqual, "memory")
			So(stats["maxTopLimit"], ShouldEqual, 100)
		})
	})

	Convey("Given a new service with custom options", t, func() {
		svc := service.New(
			service.WithStorage("MEMORY", ""),
			service.WithMaxTopLimit(25),
		)

		Convey("Then the options should be applied", func() {
			stats := svc.GetStats()
			So(stats["driver"], ShouldEqual, "memory")
			So(stats["maxTopLimit"], ShouldEqual, 25)
		})
	})
}

// wrappedStore hides the concrete store type from the service.
type wrappedStore struct {
	repository.Store
}

func TestService_InjectedStoreDriver(t *testing.T) {
	Convey("Given a service on an injected SQLite store", t, func() {
		store, err := repository.OpenSQLite(context.Background(), filepath.Join(t.TempDir(), "scores.db"))
		So(err, ShouldBeNil)
		defer store.Close()

		svc := service.New(service.WithStore(store), service.WithStorage("memory", ""))
		So(svc.Start(context.Background()), ShouldBeNil)
		defer svc.Stop()

		Convey("Then stats should name the sqlite driver", func() {
			So(svc.GetStats()["driver"], ShouldEqual, "sqlite")
		})
	})

	Convey("Given a service on a store of an unknown type", t, func() {
		inner := repository.NewMemoryStore()
		defer inner.Close()
		svc := service.New(service.WithStore(wrappedStore{Store: inner}))

		Convey("Then stats should report a custom driver", func() {
			So(svc.GetStats()["driver"], ShouldEqual, "custom")
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a new service", t, func() {
		svc := service.New()
		defer svc.Stop()

		Convey("When an operation runs before Start", func() {
			_, err := svc.Dump(context.Background())

			Convey("Then it should report storage unavailable", func() {
				So(errors.Is(err, errs.ErrStorageUnavailable), ShouldBeTrue)
			})
		})

		Convey("When starting the service", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			err := svc.Start(ctx)

			Convey("Then it should start successfully", func() {
				So(err, ShouldBeNil)
				So(svc.Ping(ctx), ShouldBeNil)
			})

			Convey("And it should be marked as started", func() {
				stats := svc.GetStats()
				So(stats["started"], ShouldEqual, true)
				So(stats["totalRecords"], ShouldEqual, int64(0))
			})

			Convey("And starting twice should be a no-op", func() {
				So(svc.Start(ctx), ShouldBeNil)
			})

			Convey("And stopping should mark it stopped", func() {
				svc.Stop()
				So(svc.GetStats()["started"], ShouldEqual, false)
				So(errors.Is(svc.Ping(ctx), errs.ErrStorageUnavailable), ShouldBeTrue)
			})
		})
	})

	Convey("Given a service with an unknown storage driver", t, func() {
		svc := service.New(service.WithStorage("postgres", ""))

		Convey("Then Start should fail with an invalid argument", func() {
			err := svc.Start(context.Background())
			So(errors.Is(err, errs.ErrInvalidArgument), ShouldBeTrue)
		})
	})
}

func TestService_TopScores(t *testing.T) {
	Convey("Given a service holding runs across the week", t, func() {
		svc := startedService()
		defer svc.Stop()
		ctx := context.Background()

		// Monday, Wednesday morning and last Sunday.
		monday := time.Date(2024, time.August, 19, 10, 0, 0, 0, time.UTC)
		today := time.Date(2024, time.August, 21, 9, 0, 0, 0, time.UTC)
		lastWeek := time.Date(2024, time.August, 18, 23, 0, 0, 0, time.UTC)

		_, err := svc.Submit(ctx, input("weekly-player", 150, monday))
		So(err, ShouldBeNil)
		_, err = svc.Submit(ctx, input("daily-player", 90, today))
		So(err, ShouldBeNil)
		_, err = svc.Submit(ctx, input("old-player", 300, lastWeek))
		So(err, ShouldBeNil)

		names := func(entries []model.RankedEntry) []string {
			out := make([]string, 0, len(entries))
			for _, e := range entries {
				out = append(out, e.Name)
			}
			return out
		}

		Convey("Then daily only sees today's runs", func() {
			out, err := svc.TopScores(ctx, "daily", 10, true)
			So(err, ShouldBeNil)
			So(names(out), ShouldResemble, []string{"daily-player"})
		})

		Convey("Then weekly sees runs since Monday midnight", func() {
			out, err := svc.TopScores(ctx, "weekly", 10, true)
			So(err, ShouldBeNil)
			So(names(out), ShouldResemble, []string{"weekly-player", "daily-player"})
		})

		Convey("Then alltime sees everything ranked by height", func() {
			out, err := svc.TopScores(ctx, "alltime", 10, false)
			So(err, ShouldBeNil)
			So(names(out), ShouldResemble, []string{"old-player", "weekly-player", "daily-player"})
			for i, e := range out {
				So(e.Rank, ShouldEqual, i+1)
			}
		})

		Convey("Then the result never exceeds the limit", func() {
			out, err := svc.TopScores(ctx, "alltime", 2, false)
			So(err, ShouldBeNil)
			So(len(out), ShouldEqual, 2)
		})

		Convey("Then an unknown or empty timeframe fails", func() {
			_, err := svc.TopScores(ctx, "monthly", 10, true)
			So(errors.Is(err, errs.ErrInvalidTimeframe), ShouldBeTrue)
			_, err = svc.TopScores(ctx, "", 10, true)
			So(errors.Is(err, errs.ErrInvalidTimeframe), ShouldBeTrue)
		})

		Convey("Then non-positive limits fail", func() {
			for _, limit := range []int{0, -1} {
				_, err := svc.TopScores(ctx, "alltime", limit, true)
				So(errors.Is(err, errs.ErrInvalidLimit), ShouldBeTrue)
			}
		})
	})

	Convey("Given a service with a small limit cap", t, func() {
		svc := startedService(service.WithMaxTopLimit(5))
		defer svc.Stop()

		Convey("Then a limit above the cap fails", func() {
			_, err := svc.Top(context.Background(), time.Time{}, 6, false)
			So(errors.Is(err, errs.ErrInvalidLimit), ShouldBeTrue)
			_, err = svc.Recent(context.Background(), 6)
			So(errors.Is(err, errs.ErrInvalidLimit), ShouldBeTrue)
		})
	})
}

func TestService_Recent(t *testing.T) {
	Convey("Given three runs submitted out of order", t, func() {
		svc := startedService()
		defer svc.Stop()
		ctx := context.Background()

		base := time.Date(2024, time.August, 17, 12, 0, 0, 0, time.UTC)
		for i, offset := range []int{2, 0, 1} {
			_, err := svc.Submit(ctx, input("p", float64(100+i), base.Add(time.Duration(offset)*time.Hour)))
			So(err, ShouldBeNil)
		}

		Convey("Then Recent returns the newest first", func() {
			out, err := svc.Recent(ctx, 2)
			So(err, ShouldBeNil)
			So(len(out), ShouldEqual, 2)
			So(out[0].Timestamp.Equal(base.Add(2*time.Hour)), ShouldBeTrue)
			So(out[1].Timestamp.Equal(base.Add(time.Hour)), ShouldBeTrue)
			So(out[0].Rank, ShouldEqual, 1)
		})
	})
}

func TestService_Admin(t *testing.T) {
	Convey("Given a service with two records", t, func() {
		svc := startedService()
		defer svc.Stop()
		ctx := context.Background()

		ts := time.Date(2024, time.August, 17, 16, 2, 23, 0, time.UTC)
		id1, err := svc.Submit(ctx, input("alifeee", 124.22, ts))
		So(err, ShouldBeNil)
		id2, err := svc.Submit(ctx, input("jman", 50.5, ts.Add(time.Minute)))
		So(err, ShouldBeNil)

		Convey("Then a fresh record is never spurious", func() {
			r, err := svc.Get(ctx, id1)
			So(err, ShouldBeNil)
			So(r.Spurious, ShouldBeFalse)
		})

		Convey("Then Search matches any column case-insensitively", func() {
			out, err := svc.Search(ctx, "ALIF")
			So(err, ShouldBeNil)
			So(len(out), ShouldEqual, 1)
			So(out[0].ID, ShouldEqual, id1)

			out, err = svc.Search(ctx, "50.5")
			So(err, ShouldBeNil)
			So(len(out), ShouldEqual, 1)
			So(out[0].ID, ShouldEqual, id2)

			out, err = svc.Search(ctx, "nobody")
			So(err, ShouldBeNil)
			So(out, ShouldBeEmpty)
		})

		Convey("Then an empty search needle is a missing field", func() {
			_, err := svc.Search(ctx, "")
			So(errors.Is(err, errs.ErrMissingField), ShouldBeTrue)
			So(errs.Detail(err), ShouldEqual, "query")
		})

		Convey("Then Filter combines height, dates and the selector", func() {
			q, err := query.NewFilterQuery(100, 200, "2024-08-01T00:00:00Z", "2024-08-18T00:00:00Z", -1)
			So(err, ShouldBeNil)
			out, err := svc.Filter(ctx, q)
			So(err, ShouldBeNil)
			So(len(out), ShouldEqual, 1)
			So(out[0].Name, ShouldEqual, "alifeee")

			q.Spurious = query.SpuriousYes
			out, err = svc.Filter(ctx, q)
			So(err, ShouldBeNil)
			So(out, ShouldBeEmpty)

			q.Spurious = query.SpuriousSelector(2)
			_, err = svc.Filter(ctx, q)
			So(errors.Is(err, errs.ErrInvalidSpuriousSelector), ShouldBeTrue)
		})

		Convey("Then toggling twice restores the flag", func() {
			r, err := svc.ToggleSpurious(ctx, id2)
			So(err, ShouldBeNil)
			So(r.Spurious, ShouldBeTrue)
			r, err = svc.ToggleSpurious(ctx, id2)
			So(err, ShouldBeNil)
			So(r.Spurious, ShouldBeFalse)
		})

		Convey("Then toggling a missing id is not found", func() {
			_, err := svc.ToggleSpurious(ctx, 999)
			So(errors.Is(err, errs.ErrRecordNotFound), ShouldBeTrue)
		})

		Convey("Then deleting a missing id leaves the store unchanged", func() {
			missing := int64(999)
			_, err := svc.Delete(ctx, service.DeleteRequest{ID: &missing})
			So(errors.Is(err, errs.ErrRecordNotFound), ShouldBeTrue)
			rows, err := svc.Dump(ctx)
			So(err, ShouldBeNil)
			So(len(rows), ShouldEqual, 2)
		})

		Convey("Then deleting by id returns the prior contents", func() {
			out, err := svc.Delete(ctx, service.DeleteRequest{ID: &id1})
			So(err, ShouldBeNil)
			So(out.All, ShouldBeNil)
			So(out.Record.ID, ShouldEqual, id1)
			So(out.Record.Name, ShouldEqual, "alifeee")

			_, err = svc.Get(ctx, id1)
			So(errors.Is(err, errs.ErrRecordNotFound), ShouldBeTrue)
		})

		Convey("Then delete with both id and all conflicts", func() {
			_, err := svc.Delete(ctx, service.DeleteRequest{ID: &id1, All: true, Force: true})
			So(errors.Is(err, errs.ErrConflictingArguments), ShouldBeTrue)
			rows, _ := svc.Dump(ctx)
			So(len(rows), ShouldEqual, 2)
		})

		Convey("Then delete with neither is a missing id", func() {
			_, err := svc.Delete(ctx, service.DeleteRequest{})
			So(errors.Is(err, errs.ErrMissingField), ShouldBeTrue)
			So(errs.Detail(err), ShouldEqual, "id")
		})

		Convey("Then delete all without confirmation removes nothing", func() {
			out, err := svc.Delete(ctx, service.DeleteRequest{All: true})
			So(err, ShouldBeNil)
			So(out.All.Deleted, ShouldBeFalse)
			So(out.All.Count, ShouldEqual, 2)
			rows, _ := svc.Dump(ctx)
			So(len(rows), ShouldEqual, 2)
		})

		Convey("Then delete all with confirmation empties the store", func() {
			out, err := svc.Delete(ctx, service.DeleteRequest{All: true, Force: true})
			So(err, ShouldBeNil)
			So(out.All.Deleted, ShouldBeTrue)
			So(out.All.Count, ShouldEqual, 2)
			rows, _ := svc.Dump(ctx)
			So(rows, ShouldBeEmpty)
			So(svc.GetStats()["totalRecords"], ShouldEqual, int64(0))
		})
	})
}
