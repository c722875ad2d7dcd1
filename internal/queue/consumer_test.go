package queue_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/redis/go-redis/v9"

	"wrenchio.app/dispatch/internal/queue"
)

var _ = Describe("ParseMessage", func() {
	validValues := func() map[string]any {
		return map[string]any{
			"task_type":       "automation",
			"event_type":      "quote-approved",
			"tenant_id":       "tenant-1",
			"idempotency_key": "evt-1",
			"payload":         `{"quoteId":"q-1"}`,
			"occurred_at":     "2026-08-30T12:00:00.000000001Z",
			"attempt":         "2",
			"trace_id":        "abc123",
		}
	}

	It("parses a complete message", func() {
		msg, err := queue.ParseMessage(redis.XMessage{ID: "1-0", Values: validValues()})
		Expect(err).NotTo(HaveOccurred())

		Expect(msg.ID).To(Equal("1-0"))
		Expect(msg.TaskType).To(Equal(queue.TaskTypeAutomation))
		Expect(msg.EventType).To(Equal("quote-approved"))
		Expect(msg.TenantID).To(Equal("tenant-1"))
		Expect(msg.IdempotencyKey).To(Equal("evt-1"))
		Expect(string(msg.Payload)).To(MatchJSON(`{"quoteId":"q-1"}`))
		Expect(msg.OccurredAt).To(Equal(time.Date(2026, 8, 30, 12, 0, 0, 1, time.UTC)))
		Expect(msg.Attempt).To(Equal(2))
		Expect(msg.TraceID).To(Equal("abc123"))
	})

	It("defaults the attempt to 1 when absent", func() {
		values := validValues()
		delete(values, "attempt")

		msg, err := queue.ParseMessage(redis.XMessage{ID: "1-0", Values: values})
		Expect(err).NotTo(HaveOccurred())
		Expect(msg.Attempt).To(Equal(1))
	})

	It("accepts a missing trace_id", func() {
		values := validValues()
		delete(values, "trace_id")

		msg, err := queue.ParseMessage(redis.XMessage{ID: "1-0", Values: values})
		Expect(err).NotTo(HaveOccurred())
		Expect(msg.TraceID).To(BeEmpty())
	})

	It("rejects an unknown task_type", func() {
		values := validValues()
		values["task_type"] = "teleport"

		_, err := queue.ParseMessage(redis.XMessage{ID: "1-0", Values: values})
		Expect(err).To(MatchError(ContainSubstring("unknown task_type")))
	})

	It("rejects a message missing a required field", func() {
		for _, field := range []string{"task_type", "event_type", "tenant_id", "idempotency_key", "payload", "occurred_at"} {
			values := validValues()
			delete(values, field)

			_, err := queue.ParseMessage(redis.XMessage{ID: "1-0", Values: values})
			Expect(err).To(HaveOccurred(), "expected error for missing %s", field)
		}
	})

	It("rejects a malformed occurred_at", func() {
		values := validValues()
		values["occurred_at"] = "yesterday"

		_, err := queue.ParseMessage(redis.XMessage{ID: "1-0", Values: values})
		Expect(err).To(MatchError(ContainSubstring("occurred_at")))
	})

	It("rejects a non-numeric attempt", func() {
		values := validValues()
		values["attempt"] = "many"

		_, err := queue.ParseMessage(redis.XMessage{ID: "1-0", Values: values})
		Expect(err).To(HaveOccurred())
	})
})
