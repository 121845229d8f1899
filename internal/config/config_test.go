package config_test

import (
	"errors"
	"testing"

	"github.com/okian/scoreboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":5000")
			convey.So(cfg.StorageDriver, convey.ShouldEqual, config.DriverSQLite)
			convey.So(cfg.SQLiteFilename, convey.ShouldEqual, "scores.db")
			convey.So(cfg.MaxTopLimit, convey.ShouldEqual, 100)
			convey.So(cfg.DefaultTimeframe, convey.ShouldEqual, "alltime")
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given configs with one invalid field each", t, func() {
		cases := map[string]func(c *config.Config){
			"empty addr":         func(c *config.Config) { c.Addr = " " },
			"unknown driver":     func(c *config.Config) { c.StorageDriver = "postgres" },
			"empty sqlite path":  func(c *config.Config) { c.SQLiteFilename = "" },
			"zero max top limit": func(c *config.Config) { c.MaxTopLimit = 0 },
			"bad timeframe":      func(c *config.Config) { c.DefaultTimeframe = "monthly" },
			"bad log format":     func(c *config.Config) { c.LogFormat = "xml" },
			"rate without burst": func(c *config.Config) { c.SubmitRatePerSec = 1; c.SubmitBurst = 0 },
		}

		convey.Convey("Then each should fail with ErrInvalidConfig", func() {
			for _, mutate := range cases {
				cfg := config.New()
				mutate(cfg)
				err := cfg.Validate()
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			}
		})

		convey.Convey("Then the memory driver should not need a filename", func() {
			cfg := config.New()
			cfg.StorageDriver = config.DriverMemory
			cfg.SQLiteFilename = ""
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}
