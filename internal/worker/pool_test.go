package worker

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestPool(t *testing.T) {
	Convey("Given a pool with two workers", t, func() {
		p := NewPool(2)

		Convey("every submitted task runs before Stop returns", func() {
			var n atomic.Int32
			for i := 0; i < 50; i++ {
				So(p.Submit("count", func(context.Context) error { n.Add(1); return nil }), ShouldBeTrue)
			}
			p.Stop()
			So(n.Load(), ShouldEqual, 50)
		})

		Convey("failing and panicking tasks do not kill the workers", func() {
			var n atomic.Int32
			p.Submit("fail", func(context.Context) error { return errors.New("boom") })
			p.Submit("panic", func(context.Context) error { panic("boom") })
			p.Submit("ok", func(context.Context) error { n.Add(1); return nil })
			p.Stop()
			So(n.Load(), ShouldEqual, 1)
		})

		Convey("a stopped pool rejects work", func() {
			p.Stop()
			So(p.Submit("late", func(context.Context) error { return nil }), ShouldBeFalse)
			p.Stop()
		})
	})
}
