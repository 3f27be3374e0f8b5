package logger

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestNewWithWriter(t *testing.T) {
	Convey("Given a prod logger", t, func() {
		var buf bytes.Buffer
		NewWithWriter("prod", &buf).Info("deal created", "deal_id", 7)

		var line map[string]any
		So(json.Unmarshal(buf.Bytes(), &line), ShouldBeNil)
		So(line["msg"], ShouldEqual, "deal created")
		So(line["service"], ShouldEqual, "market-backend")

		Convey("debug records are dropped", func() {
			buf.Reset()
			NewWithWriter("prod", &buf).Debug("noise")
			So(buf.Len(), ShouldEqual, 0)
		})
	})

	Convey("Given a dev logger", t, func() {
		var buf bytes.Buffer
		NewWithWriter("dev", &buf).Debug("order viewed", "order_id", 3)
		So(strings.Contains(buf.String(), "order_id=3"), ShouldBeTrue)
	})
}
