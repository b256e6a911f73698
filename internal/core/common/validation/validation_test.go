package validation_test

import (
	"errors"
	"strings"

	"github.com/frahmantamala/safety-hazards/internal"
	"github.com/frahmantamala/safety-hazards/internal/core/common/validation"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

func fieldErrors(err error) []internal.ValidationError {
	var appErr *internal.AppError
	ExpectWithOffset(1, errors.As(err, &appErr)).To(BeTrue())
	details, ok := appErr.Details.(internal.ValidationErrors)
	ExpectWithOffset(1, ok).To(BeTrue())
	return details.Errors
}

var _ = Describe("ValidationBuilder", func() {
	It("passes when every rule holds", func() {
		v := validation.NewValidator()
		v.Field("title", "Loose cable").Required(internal.ErrCodeInvalidTitle).MaxLength(200, internal.ErrCodeInvalidTitle)
		v.Field("due_date", "2026-03-10").Date("2006-01-02", internal.ErrCodeValidationFailed)
		Expect(v.Validate()).To(Succeed())
	})

	It("reports every failing field with its own code", func() {
		v := validation.NewValidator()
		v.Field("title", "").Required(internal.ErrCodeInvalidTitle)
		v.Field("comment", "ab").MinLength(3, internal.ErrCodeInvalidComment)
		v.Field("due_date", "10/03/2026").Date("2006-01-02", internal.ErrCodeValidationFailed)

		errs := fieldErrors(v.Validate())
		Expect(errs).To(HaveLen(3))
		Expect(errs[0]).To(Equal(internal.ValidationError{Field: "title", Message: "title is required", Code: "INVALID_TITLE"}))
		Expect(errs[1].Code).To(Equal("INVALID_COMMENT"))
		Expect(errs[2].Field).To(Equal("due_date"))
	})

	It("stops at the first failing rule of a field", func() {
		v := validation.NewValidator()
		v.Field("title", "").Required(internal.ErrCodeInvalidTitle).MinLength(1, internal.ErrCodeValidationFailed)
		Expect(fieldErrors(v.Validate())).To(HaveLen(1))
	})

	It("counts characters rather than bytes", func() {
		v := validation.NewValidator()
		v.Field("title", strings.Repeat("ש", 200)).MaxLength(200, internal.ErrCodeInvalidTitle)
		Expect(v.Validate()).To(Succeed())
	})

	It("runs custom checks", func() {
		v := validation.NewValidator()
		v.Field("severity", "Extreme").Custom(internal.ErrCodeInvalidSeverity, func(s string) string {
			if s != "Low" {
				return "severity must be Low"
			}
			return ""
		})
		Expect(fieldErrors(v.Validate())[0].Code).To(Equal("INVALID_SEVERITY"))
	})
})
