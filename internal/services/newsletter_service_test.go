package services_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"

	"github.com/baharkarakas/market-backend/internal/models"
	"github.com/baharkarakas/market-backend/internal/services"
	"github.com/baharkarakas/market-backend/internal/testutil"
)

func TestNewsletter(t *testing.T) {
	Convey("Given the newsletter", t, func() {
		s := testutil.NewStore()
		svc := services.NewNewsletterService(s.Repos().Newsletter, nil)
		ctx := context.Background()

		sub, err := svc.Subscribe(ctx, models.Subscription{Email: " Reader@Example.com"})
		So(err, ShouldBeNil)
		So(sub.Email, ShouldEqual, "reader@example.com")
		So(sub.Source, ShouldEqual, "footer")
		So(sub.IsActive, ShouldBeTrue)

		Convey("a second subscription is a conflict", func() {
			_, err := svc.Subscribe(ctx, models.Subscription{Email: "reader@example.com"})
			So(errors.Is(err, services.ErrConflict), ShouldBeTrue)
			So(message(err), ShouldEqual, "Email already subscribed")
		})

		Convey("malformed emails are rejected", func() {
			_, err := svc.Subscribe(ctx, models.Subscription{Email: "nope"})
			So(errors.Is(err, services.ErrBadRequest), ShouldBeTrue)
		})

		Convey("subscribers are paged with a total", func() {
			for _, e := range []string{"a@x.io", "b@x.io", "c@x.io"} {
				_, err := svc.Subscribe(ctx, models.Subscription{Email: e})
				So(err, ShouldBeNil)
			}
			page, err := svc.Subscribers(ctx, true, 2, 0)
			So(err, ShouldBeNil)
			So(page.Total, ShouldEqual, 4)
			So(len(page.Subscribers), ShouldEqual, 2)
			So(page.Subscribers[0].Email, ShouldEqual, "c@x.io")

			page, err = svc.Subscribers(ctx, true, 0, -5)
			So(err, ShouldBeNil)
			So(page.Limit, ShouldEqual, 100)
			So(page.Offset, ShouldEqual, 0)
		})

		Convey("error reports never fail", func() {
			So(func() { svc.ReportError(services.ErrorReport{Message: "boom"}, 0) }, ShouldNotPanic)
		})
	})
}

func TestFileUpload(t *testing.T) {
	Convey("Given a file service capped at 16 bytes", t, func() {
		s := testutil.NewStore()
		svc := services.NewFileService(s.Repos().Files, 16)
		ctx := context.Background()

		Convey("uploads get a sanitized per-user URL", func() {
			f, err := svc.Upload(ctx, 7, "../My Photo!.PNG", "", []byte("png-bytes"))
			So(err, ShouldBeNil)
			So(f.URL, ShouldStartWith, services.UploadPrefix+"7/My_Photo__")
			So(strings.HasSuffix(f.URL, ".png"), ShouldBeTrue)
			So(f.FileType, ShouldEqual, "image/png")
			So(f.FileSize, ShouldEqual, 9)

			got, err := svc.Open(ctx, f.URL)
			So(err, ShouldBeNil)
			So(string(got.Data), ShouldEqual, "png-bytes")
		})

		Convey("anonymous, empty and oversized uploads are rejected", func() {
			_, err := svc.Upload(ctx, 0, "a.txt", "", []byte("x"))
			So(errors.Is(err, services.ErrUnauthorized), ShouldBeTrue)
			_, err = svc.Upload(ctx, 7, "a.txt", "", nil)
			So(errors.Is(err, services.ErrBadRequest), ShouldBeTrue)
			_, err = svc.Upload(ctx, 7, "a.txt", "", []byte(strings.Repeat("x", 17)))
			So(errors.Is(err, services.ErrTooLarge), ShouldBeTrue)
		})

		Convey("unknown files are not found", func() {
			_, err := svc.Open(ctx, "/uploads/1/missing.bin")
			So(errors.Is(err, services.ErrNotFound), ShouldBeTrue)
		})

		Convey("unknown extensions are served as octet-stream", func() {
			f, err := svc.Upload(ctx, 7, "blob.zzz", "", []byte("x"))
			So(err, ShouldBeNil)
			got, err := svc.Open(ctx, f.URL)
			So(err, ShouldBeNil)
			So(got.FileType, ShouldEqual, "application/octet-stream")
		})
	})
}
