package db

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestMigrations(t *testing.T) {
	Convey("Given the embedded migrations", t, func() {
		names, err := Migrations()
		So(err, ShouldBeNil)
		So(names, ShouldNotBeEmpty)
		So(names[0], ShouldEqual, "0001_init.up.sql")

		Convey("the schema covers the exchange lifecycle tables", func() {
			b, err := migrationsFS.ReadFile("migrations/" + names[0])
			So(err, ShouldBeNil)
			for _, table := range []string{"exchange_orders", "exchange_proposals", "exchange_deals", "exchange_reviews", "balance_transactions"} {
				So(strings.Contains(string(b), "CREATE TABLE IF NOT EXISTS "+table), ShouldBeTrue)
			}
		})
	})
}
