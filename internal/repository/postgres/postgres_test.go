package postgres

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/baharkarakas/market-backend/internal/repository"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/puddle/v2"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMapErr(t *testing.T) {
	Convey("Given driver errors", t, func() {
		Convey("no rows becomes ErrNotFound", func() {
			So(errors.Is(mapErr(pgx.ErrNoRows), repository.ErrNotFound), ShouldBeTrue)
			So(errors.Is(mapErr(fmt.Errorf("scan: %w", pgx.ErrNoRows)), repository.ErrNotFound), ShouldBeTrue)
		})
		Convey("a unique violation becomes ErrConflict", func() {
			err := mapErr(&pgconn.PgError{Code: "23505", ConstraintName: "users_email_key"})
			So(errors.Is(err, repository.ErrConflict), ShouldBeTrue)
		})
		Convey("other postgres errors pass through", func() {
			pgErr := &pgconn.PgError{Code: "23503"}
			So(mapErr(pgErr), ShouldEqual, pgErr)
		})
		Convey("timeouts become ErrUnavailable", func() {
			So(errors.Is(mapErr(context.DeadlineExceeded), repository.ErrUnavailable), ShouldBeTrue)
		})
		Convey("a closed pool becomes ErrUnavailable", func() {
			So(errors.Is(mapErr(puddle.ErrClosedPool), repository.ErrUnavailable), ShouldBeTrue)
		})
		Convey("nil stays nil", func() {
			So(mapErr(nil), ShouldBeNil)
		})
	})
}

func TestExpectOne(t *testing.T) {
	Convey("Given command tags", t, func() {
		So(errors.Is(expectOne(pgconn.NewCommandTag("UPDATE 0"), nil), repository.ErrNotFound), ShouldBeTrue)
		So(expectOne(pgconn.NewCommandTag("UPDATE 1"), nil), ShouldBeNil)
	})
}

// boundTx stands in for a transaction the caller already holds.
type boundTx struct{ querier }

var _ repository.Support = (*supportRepo)(nil)

func TestWithTxJoinsOuterTransaction(t *testing.T) {
	Convey("Given a repository bound to an open transaction", t, func() {
		outer := &boundTx{}
		support := &supportRepo{db: outer}

		Convey("writes reuse that transaction instead of opening one", func() {
			var got querier
			err := withTx(context.Background(), support.pool, support.db, func(q querier) error {
				got = q
				return nil
			})
			So(err, ShouldBeNil)
			So(got, ShouldEqual, outer)
		})

		Convey("errors from the body come back unchanged", func() {
			boom := errors.New("boom")
			err := withTx(context.Background(), support.pool, support.db, func(querier) error { return boom })
			So(err, ShouldEqual, boom)
		})
	})
}
