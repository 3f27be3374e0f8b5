package models

import (
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestDeliveryStock(t *testing.T) {
	Convey("Given an auto-delivery item", t, func() {
		item := MarketItem{DeliveryType: DeliveryAuto, AutoDeliveryContent: "key-1\n\n  key-2  \n"}

		Convey("each non-empty line becomes one stock row", func() {
			stock := item.DeliveryStock()
			So(stock, ShouldHaveLength, 2)
			So(stock[0].Content, ShouldEqual, "key-1")
			So(stock[1].Content, ShouldEqual, "key-2")
		})

		Convey("a lone file becomes one stock row", func() {
			url := "/uploads/1/book.pdf"
			item.AutoDeliveryContent = ""
			item.AttachedFileURL = &url
			stock := item.DeliveryStock()
			So(stock, ShouldHaveLength, 1)
			So(*stock[0].FileURL, ShouldEqual, url)
		})
	})

	Convey("Given a repeatable item", t, func() {
		item := MarketItem{DeliveryType: DeliveryRepeatable, AutoDeliveryContent: "a\nb"}
		stock := item.DeliveryStock()
		So(stock, ShouldHaveLength, 1)
		So(stock[0].Content, ShouldEqual, "a\nb")
	})

	Convey("Given a manual item", t, func() {
		item := MarketItem{DeliveryType: DeliveryManual, AutoDeliveryContent: "ignored"}
		So(item.DeliveryStock(), ShouldBeEmpty)
	})
}
