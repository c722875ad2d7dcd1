package automation_test

import (
	"encoding/json"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"wrenchio.app/dispatch/internal/automation"
	"wrenchio.app/dispatch/internal/model"
)

var _ = Describe("ParseActionSpec", func() {
	It("parses a complete send-email config", func() {
		raw := json.RawMessage(`{"subject":"Your quote was approved","template_id":"tmpl-1"}`)
		spec, err := automation.ParseActionSpec(model.ActionTypeSendEmail, raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(spec.Kind).To(Equal(model.ActionTypeSendEmail))
		Expect(spec.Email).NotTo(BeNil())
		Expect(spec.Email.Subject).To(Equal("Your quote was approved"))
		Expect(spec.Email.RecipientField).To(Equal("email"))
	})

	It("rejects a send-email config without subject", func() {
		_, err := automation.ParseActionSpec(model.ActionTypeSendEmail, json.RawMessage(`{}`))
		Expect(err).To(MatchError(ContainSubstring("subject")))
	})

	It("honors an explicit recipient field", func() {
		raw := json.RawMessage(`{"subject":"s","recipient_field":"ownerEmail"}`)
		spec, err := automation.ParseActionSpec(model.ActionTypeSendEmail, raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(spec.Email.RecipientField).To(Equal("ownerEmail"))
	})

	It("defaults the sms recipient field to phone", func() {
		spec, err := automation.ParseActionSpec(model.ActionTypeSendSMS, json.RawMessage(`{"message":"ready"}`))
		Expect(err).NotTo(HaveOccurred())
		Expect(spec.SMS.RecipientField).To(Equal("phone"))
	})

	It("rejects an sms config without message", func() {
		_, err := automation.ParseActionSpec(model.ActionTypeSendSMS, json.RawMessage(`{}`))
		Expect(err).To(MatchError(ContainSubstring("message")))
	})

	It("rejects a notification config without message", func() {
		_, err := automation.ParseActionSpec(model.ActionTypeCreateNotification, nil)
		Expect(err).To(MatchError(ContainSubstring("message")))
	})

	It("rejects a job config without job_type", func() {
		_, err := automation.ParseActionSpec(model.ActionTypeCreateJob, json.RawMessage(`{}`))
		Expect(err).To(MatchError(ContainSubstring("job_type")))
	})

	It("requires entity, entity_field, and status for update-status", func() {
		_, err := automation.ParseActionSpec(model.ActionTypeUpdateStatus, json.RawMessage(`{"entity":"service-order","status":"closed"}`))
		Expect(err).To(HaveOccurred())

		raw := json.RawMessage(`{"entity":"service-order","entity_field":"orderId","status":"closed"}`)
		spec, err := automation.ParseActionSpec(model.ActionTypeUpdateStatus, raw)
		Expect(err).NotTo(HaveOccurred())
		Expect(spec.Status.EntityField).To(Equal("orderId"))
	})

	It("requires a handler name for custom actions", func() {
		_, err := automation.ParseActionSpec(model.ActionTypeCustom, json.RawMessage(`{}`))
		Expect(err).To(MatchError(ContainSubstring("handler")))
	})

	It("rejects unknown action kinds", func() {
		_, err := automation.ParseActionSpec(model.ActionType("teleport"), json.RawMessage(`{}`))
		Expect(err).To(MatchError(ContainSubstring("unknown action type")))
	})

	It("rejects malformed JSON", func() {
		_, err := automation.ParseActionSpec(model.ActionTypeSendEmail, json.RawMessage(`{"subject":`))
		Expect(err).To(HaveOccurred())
	})
})
