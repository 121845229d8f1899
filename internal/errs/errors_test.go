package errs_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/okian/scoreboard/internal/errs"
	"github.com/smartystreets/goconvey/convey"
)

func TestKindedErrors(t *testing.T) {
	convey.Convey("Given kinded errors", t, func() {
		convey.Convey("When creating a missing field error", func() {
			err := errs.MissingField("service.submit", "name")

			convey.Convey("Then it should match the kind and expose the field", func() {
				convey.So(errors.Is(err, errs.ErrMissingField), convey.ShouldBeTrue)
				convey.So(errs.Detail(err), convey.ShouldEqual, "name")
				convey.So(err.Error(), convey.ShouldEqual, "service.submit: missing field: name")
				convey.So(errs.Code(err), convey.ShouldEqual, "missing_field")
			})
		})

		convey.Convey("When wrapping a plain error", func() {
			cause := errors.New("disk I/O error")
			err := errs.Wrap("repository.insert", cause)

			convey.Convey("Then it should be storage unavailable and keep the cause", func() {
				convey.So(errors.Is(err, errs.ErrStorageUnavailable), convey.ShouldBeTrue)
				convey.So(errors.Is(err, cause), convey.ShouldBeTrue)
				convey.So(errs.KindOf(err), convey.ShouldEqual, errs.ErrStorageUnavailable)
			})
		})

		convey.Convey("When wrapping a kinded error", func() {
			inner := errs.Newf("repository.get", errs.ErrRecordNotFound, "id %d", 7)
			err := errs.Wrap("service.toggle", fmt.Errorf("lookup: %w", inner))

			convey.Convey("Then the kind and detail should be preserved", func() {
				convey.So(errors.Is(err, errs.ErrRecordNotFound), convey.ShouldBeTrue)
				convey.So(errs.Detail(err), convey.ShouldEqual, "id 7")
				convey.So(err.Error(), convey.ShouldStartWith, "service.toggle: ")
			})
		})

		convey.Convey("When wrapping nil", func() {
			convey.Convey("Then nil should be returned", func() {
				convey.So(errs.Wrap("op", nil), convey.ShouldBeNil)
				convey.So(errs.WrapKind("op", errs.ErrInvalidDate, nil), convey.ShouldBeNil)
			})
		})

		convey.Convey("When the error carries no kind", func() {
			err := errors.New("boom")

			convey.Convey("Then the code should be internal_error", func() {
				convey.So(errs.KindOf(err), convey.ShouldBeNil)
				convey.So(errs.Code(err), convey.ShouldEqual, "internal_error")
				convey.So(errs.Detail(err), convey.ShouldEqual, "")
			})
		})
	})
}
