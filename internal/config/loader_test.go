package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
)

func TestLoadDefaults(t *testing.T) {
	Convey("Given no overrides", t, func() {
		cfg, err := Load()
		So(err, ShouldBeNil)
		So(cfg.HTTPPort, ShouldEqual, "8080")
		So(cfg.AccessTTL, ShouldEqual, 15*time.Minute)
		So(cfg.IsDev(), ShouldBeTrue)
	})
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MARKET_HTTP_PORT", "9090")
	t.Setenv("MARKET_RATE_RPS", "7")
	t.Setenv("MARKET_ACCESS_TTL", "1m")
	t.Setenv("MARKET_CORS_ORIGINS", "https://a.example,https://b.example")

	Convey("Given env overrides", t, func() {
		cfg, err := Load()
		So(err, ShouldBeNil)
		So(cfg.HTTPPort, ShouldEqual, "9090")
		So(cfg.RateRPS, ShouldEqual, 7)
		So(cfg.AccessTTL, ShouldEqual, time.Minute)
		So(cfg.CORSOrigins, ShouldResemble, []string{"https://a.example", "https://b.example"})
	})
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "market.yaml")
	if err := os.WriteFile(path, []byte("http_port: \"7000\"\nworkers: 2\n"), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv("MARKET_CONFIG", path)
	t.Setenv("MARKET_WORKERS", "8")

	Convey("Given a yaml file and a conflicting env var", t, func() {
		cfg, err := Load()
		So(err, ShouldBeNil)
		So(cfg.HTTPPort, ShouldEqual, "7000")
		So(cfg.Workers, ShouldEqual, 8)
	})
}

func TestLoadRejects(t *testing.T) {
	Convey("Given invalid settings", t, func() {
		Convey("prod with the default secrets fails", func() {
			c := *New()
			c.Env = "prod"
			So(c.Validate(), ShouldNotBeNil)
		})
		Convey("a non numeric port fails", func() {
			c := *New()
			c.HTTPPort = "http"
			So(c.Validate(), ShouldNotBeNil)
		})
		Convey("a negative upload cap fails", func() {
			c := *New()
			c.UploadMaxBytes = -1
			So(c.Validate(), ShouldNotBeNil)
			c.UploadMaxBytes = 0
			So(c.Validate(), ShouldBeNil)
		})
		Convey("an empty database url fails", func() {
			c := *New()
			c.DatabaseURL = ""
			So(c.Validate(), ShouldNotBeNil)
		})
	})
}
