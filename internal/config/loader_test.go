package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/okian/scoreboard/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		defer clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New())
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("SCOREBOARD_ADDR", ":8080")
			_ = os.Setenv("SCOREBOARD_STORAGE_DRIVER", "memory")
			_ = os.Setenv("SCOREBOARD_MAX_TOP_LIMIT", "25")
			_ = os.Setenv("SCOREBOARD_SUBMIT_RATE_PER_SEC", "0.5")
			_ = os.Setenv("SCOREBOARD_DEFAULT_TIMEFRAME", "weekly")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.StorageDriver, convey.ShouldEqual, "memory")
				convey.So(cfg.MaxTopLimit, convey.ShouldEqual, 25)
				convey.So(cfg.SubmitRatePerSec, convey.ShouldEqual, 0.5)
				convey.So(cfg.DefaultTimeframe, convey.ShouldEqual, "weekly")
				convey.So(cfg.SQLiteFilename, convey.ShouldEqual, "scores.db")
			})
		})

		convey.Convey("When only the legacy SQLITE_FILENAME is set", func() {
			_ = os.Setenv("SQLITE_FILENAME", "legacy.db")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should be used as the database location", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.SQLiteFilename, convey.ShouldEqual, "legacy.db")
			})

			convey.Convey("And the prefixed variable should win over it", func() {
				_ = os.Setenv("SCOREBOARD_SQLITE_FILENAME", "prefixed.db")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.SQLiteFilename, convey.ShouldEqual, "prefixed.db")
			})
		})

		convey.Convey("When loading config with both file and environment variables", func() {
			yamlContent := `
addr: ":9090"
max_top_limit: 50
sqlite_filename: "/var/lib/scoreboard/scores.db"
cors_allow_origin: "https://example.org"
`
			tmpFile := createTempConfigFile(t, yamlContent)
			_ = os.Setenv("SCOREBOARD_CONFIG", tmpFile)
			_ = os.Setenv("SCOREBOARD_ADDR", ":8080")

			cfg, err := config.Load(ctx)

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.MaxTopLimit, convey.ShouldEqual, 50)
				convey.So(cfg.SQLiteFilename, convey.ShouldEqual, "/var/lib/scoreboard/scores.db")
				convey.So(cfg.CORSAllowOrigin, convey.ShouldEqual, "https://example.org")
			})
		})

		convey.Convey("When a file is passed explicitly", func() {
			tmpFile := createTempConfigFile(t, "max_top_limit: 7\n")

			cfg, err := config.Load(ctx, config.WithFile(tmpFile))

			convey.Convey("Then it should be loaded without SCOREBOARD_CONFIG", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.MaxTopLimit, convey.ShouldEqual, 7)
			})
		})

		convey.Convey("When the config file does not exist", func() {
			_, err := config.Load(ctx, config.WithFile(filepath.Join(t.TempDir(), "missing.yaml")))

			convey.Convey("Then it should fail with ErrLoadConfig", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
			})
		})

		convey.Convey("When a dotenv file provides values", func() {
			dotenv := filepath.Join(t.TempDir(), ".env")
			err := os.WriteFile(dotenv, []byte("SQLITE_FILENAME=from-dotenv.db\nSCOREBOARD_ADDR=:7000\n"), 0o600)
			convey.So(err, convey.ShouldBeNil)
			_ = os.Setenv("SCOREBOARD_ADDR", ":6000")

			cfg, err := config.Load(ctx, config.WithDotenv(dotenv))

			convey.Convey("Then it should fill unset variables only", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.SQLiteFilename, convey.ShouldEqual, "from-dotenv.db")
				convey.So(cfg.Addr, convey.ShouldEqual, ":6000")
			})
		})

		convey.Convey("When an env value is invalid", func() {
			_ = os.Setenv("SCOREBOARD_DEFAULT_TIMEFRAME", "monthly")

			_, err := config.Load(ctx)

			convey.Convey("Then validation should reject it", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}

func createTempConfigFile(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearConfigEnvVars() {
	for _, k := range []string{
		"SCOREBOARD_CONFIG",
		"SCOREBOARD_ADDR",
		"SCOREBOARD_STORAGE_DRIVER",
		"SCOREBOARD_SQLITE_FILENAME",
		"SCOREBOARD_MAX_TOP_LIMIT",
		"SCOREBOARD_SUBMIT_RATE_PER_SEC",
		"SCOREBOARD_DEFAULT_TIMEFRAME",
		"SQLITE_FILENAME",
	} {
		_ = os.Unsetenv(k)
	}
}
