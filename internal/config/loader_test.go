package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"f1-platform/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func clearConfigEnvVars() {
	for _, key := range []string{
		"F1_CONFIG",
		"F1_SERVER__PORT",
		"F1_DATABASE__MAX_OPEN_CONNS",
		"F1_INGESTION__WORKERS",
		"F1_INGESTION__SEASON_FROM",
		"F1_LOGGING__LEVEL",
		"DB_NAME", "DB_USER", "DB_PASSWORD", "DB_HOST",
	} {
		_ = os.Unsetenv(key)
	}
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given the config loader", t, func() {
		convey.Convey("When loading with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then development defaults apply", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Server.Port, convey.ShouldEqual, 8080)
				convey.So(cfg.Database.Name, convey.ShouldEqual, "f1_stats")
				convey.So(cfg.Database.User, convey.ShouldEqual, "postgres")
				convey.So(cfg.Database.Host, convey.ShouldEqual, "localhost")
				convey.So(cfg.Ingestion.Workers, convey.ShouldEqual, 5)
				convey.So(cfg.Ingestion.SeasonFrom, convey.ShouldEqual, 2000)
				convey.So(cfg.Analysis.TrendWindow, convey.ShouldEqual, 10)
			})
		})

		convey.Convey("When prefixed environment variables are set", func() {
			clearConfigEnvVars()
			_ = os.Setenv("F1_SERVER__PORT", "9090")
			_ = os.Setenv("F1_INGESTION__WORKERS", "8")
			_ = os.Setenv("F1_LOGGING__LEVEL", "debug")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then they override the defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Server.Port, convey.ShouldEqual, 9090)
				convey.So(cfg.Ingestion.Workers, convey.ShouldEqual, 8)
				convey.So(cfg.Logging.Level, convey.ShouldEqual, "debug")
			})
		})

		convey.Convey("When the legacy database variables are set", func() {
			clearConfigEnvVars()
			_ = os.Setenv("DB_NAME", "f1_archive")
			_ = os.Setenv("DB_HOST", "db.internal")
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then they win over all other sources", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Database.Name, convey.ShouldEqual, "f1_archive")
				convey.So(cfg.Database.Host, convey.ShouldEqual, "db.internal")
			})
		})

		convey.Convey("When a YAML file is provided", func() {
			clearConfigEnvVars()
			path := filepath.Join(t.TempDir(), "f1.yaml")
			yamlContent := "server:\n  port: 9191\ningestion:\n  season_from: 2010\n"
			convey.So(os.WriteFile(path, []byte(yamlContent), 0o600), convey.ShouldBeNil)

			_ = os.Setenv("F1_CONFIG", path)
			defer clearConfigEnvVars()

			cfg, err := config.Load()

			convey.Convey("Then file values layer over defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Server.Port, convey.ShouldEqual, 9191)
				convey.So(cfg.Ingestion.SeasonFrom, convey.ShouldEqual, 2010)
				convey.So(cfg.Database.Name, convey.ShouldEqual, "f1_stats")
			})
		})

		convey.Convey("When configuration is invalid", func() {
			clearConfigEnvVars()
			_ = os.Setenv("F1_INGESTION__WORKERS", "0")
			defer clearConfigEnvVars()

			_, err := config.Load()

			convey.Convey("Then Load refuses it", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}
