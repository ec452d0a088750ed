package settings_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fileybot/filey/pkg/namespace"
	"github.com/fileybot/filey/pkg/settings"
	"github.com/fileybot/filey/pkg/storage/inmemory"
)

var _ = Describe("Store", func() {
	var (
		ctx   context.Context
		store *inmemory.Driver
		user  *namespace.User
		prefs *settings.Store
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()

		var err error
		user, err = store.CreateUser(ctx, "chat-1")
		Expect(err).NotTo(HaveOccurred())

		prefs, err = settings.Open(ctx, store, "chat-1")
		Expect(err).NotTo(HaveOccurred())
	})

	It("fails to open for an unknown chat", func() {
		_, err := settings.Open(ctx, store, "nobody")
		Expect(err).To(HaveOccurred())
	})

	Describe("Get", func() {
		It("returns the defaults for a fresh user", func() {
			got, err := prefs.Get(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(got).To(Equal(settings.Defaults()))
			Expect(got.ShowListOptions).To(BeTrue())
		})

		It("overlays the persisted blob on the defaults", func() {
			_, err := store.UpdateUserSettings(ctx, user.ID, map[string]any{"showListOptions": false})
			Expect(err).NotTo(HaveOccurred())

			got, err := prefs.Get(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ShowListOptions).To(BeFalse())
		})

		It("memoizes after the first read", func() {
			first, err := prefs.Get(ctx)
			Expect(err).NotTo(HaveOccurred())

			// A write behind the memo's back is not observed until invalidation.
			_, err = store.UpdateUserSettings(ctx, user.ID, map[string]any{"showListOptions": false})
			Expect(err).NotTo(HaveOccurred())

			again, err := prefs.Get(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(Equal(first))
		})
	})

	Describe("Set", func() {
		It("persists the changed key and invalidates the memo", func() {
			Expect(prefs.Set(ctx, settings.KeyShowListOptions, false)).To(Succeed())

			got, err := prefs.Get(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ShowListOptions).To(BeFalse())

			persisted, err := store.GetUser(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(persisted.Settings).To(HaveKeyWithValue("showListOptions", false))
		})

		It("re-reads storage after a write rather than trusting the written value", func() {
			Expect(prefs.Set(ctx, settings.KeyShowListOptions, false)).To(Succeed())

			// Simulate an out-of-band change landing after the write.
			_, err := store.UpdateUserSettings(ctx, user.ID, map[string]any{"showListOptions": true})
			Expect(err).NotTo(HaveOccurred())

			got, err := prefs.Get(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ShowListOptions).To(BeTrue())
		})
	})
})
