package service_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"wrenchio.app/dispatch/internal/model"
	"wrenchio.app/dispatch/internal/service"
)

var _ = Describe("SubscriptionService", func() {
	var (
		subs *mockSubscriptionStore
		svc  service.SubscriptionService
		ctx  context.Context
	)

	BeforeEach(func() {
		subs = &mockSubscriptionStore{}
		svc = service.NewSubscriptionService(subs)
		ctx = context.Background()
	})

	validParams := func() service.SubscriptionParams {
		return service.SubscriptionParams{
			TenantID: "tenant-1",
			URL:      "https://hooks.example.com/workshop",
			Events:   []string{"quote-approved", "invoice-issued"},
			IsActive: true,
		}
	}

	Describe("Create", func() {
		It("persists a valid subscription", func() {
			sub, err := svc.Create(ctx, validParams())
			Expect(err).NotTo(HaveOccurred())
			Expect(sub.ID).NotTo(BeZero())
			Expect(subs.created).To(HaveLen(1))
		})

		It("generates a secret when the caller supplies none", func() {
			a, err := svc.Create(ctx, validParams())
			Expect(err).NotTo(HaveOccurred())
			Expect(a.Secret).NotTo(BeEmpty())

			b, err := svc.Create(ctx, validParams())
			Expect(err).NotTo(HaveOccurred())
			Expect(b.Secret).NotTo(Equal(a.Secret))
		})

		It("keeps a caller-supplied secret", func() {
			params := validParams()
			params.Secret = "caller-secret"

			sub, err := svc.Create(ctx, params)
			Expect(err).NotTo(HaveOccurred())
			Expect(sub.Secret).To(Equal("caller-secret"))
		})

		It("rejects an empty event set", func() {
			params := validParams()
			params.Events = nil

			_, err := svc.Create(ctx, params)
			Expect(err).To(MatchError(service.ErrValidation))
			Expect(err.Error()).To(ContainSubstring("non-empty"))
			Expect(subs.created).To(BeEmpty())
		})

		It("rejects unknown event types", func() {
			params := validParams()
			params.Events = []string{"quote-approved", "comet-sighted"}

			_, err := svc.Create(ctx, params)
			Expect(err).To(MatchError(service.ErrValidation))
		})

		It("rejects non-http(s) and malformed URLs", func() {
			for _, url := range []string{"", "ftp://host/x", "not a url", "https://"} {
				params := validParams()
				params.URL = url

				_, err := svc.Create(ctx, params)
				Expect(err).To(MatchError(service.ErrValidation), "expected rejection of %q", url)
			}
		})

		It("requires a tenant", func() {
			params := validParams()
			params.TenantID = ""

			_, err := svc.Create(ctx, params)
			Expect(err).To(MatchError(service.ErrValidation))
		})
	})

	Describe("Update", func() {
		It("replaces url, events, and active flag but never the secret", func() {
			existing := &model.Subscription{
				ID:       5,
				TenantID: "tenant-1",
				URL:      "https://old.example.com",
				Secret:   "original-secret",
				Events:   []string{"quote-approved"},
				IsActive: true,
			}
			subs.getByIDFn = func(context.Context, int64) (*model.Subscription, error) {
				return existing, nil
			}

			sub, err := svc.Update(ctx, 5, service.SubscriptionUpdateParams{
				URL:      "https://new.example.com",
				Events:   []string{"stock-low"},
				IsActive: false,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(sub.URL).To(Equal("https://new.example.com"))
			Expect(sub.Events).To(Equal([]string{"stock-low"}))
			Expect(sub.IsActive).To(BeFalse())
			Expect(sub.Secret).To(Equal("original-secret"))
		})

		It("rejects an update that would empty the event set", func() {
			_, err := svc.Update(ctx, 5, service.SubscriptionUpdateParams{
				URL:    "https://new.example.com",
				Events: nil,
			})
			Expect(err).To(MatchError(service.ErrValidation))
		})
	})
})
