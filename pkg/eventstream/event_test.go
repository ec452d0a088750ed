package eventstream_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fileybot/filey/pkg/eventstream"
	"github.com/fileybot/filey/pkg/eventstream/nop"
	"github.com/fileybot/filey/pkg/namespace"
)

var _ = Describe("NewEntryEvent", func() {
	It("stamps version, id, and time", func() {
		ev := eventstream.NewEntryEvent(eventstream.EventTypeEntryCreated,
			"chat-1", "user-1", namespace.KindFile, "notes", "/docs/")

		Expect(ev.SchemaVersion).To(Equal(eventstream.SchemaVersionV1))
		Expect(ev.EventType).To(Equal("filey.entry.created"))
		Expect(ev.EventID).NotTo(BeEmpty())
		Expect(ev.EmittedAt).NotTo(BeZero())
		Expect(ev.Kind).To(Equal("file"))
		Expect(ev.Path).To(Equal("/docs/"))
	})
})

var _ = Describe("nop.Publisher", func() {
	It("rejects a nil event", func() {
		p := nop.NewPublisher()
		Expect(p.PublishEntry(context.Background(), nil)).To(MatchError(eventstream.ErrNilEntryEvent))
	})

	It("accepts a valid event and closes cleanly", func() {
		p := nop.NewPublisher()
		ev := eventstream.NewEntryEvent(eventstream.EventTypeEntryRemoved,
			"chat-1", "user-1", namespace.KindDirectory, "docs", "/")
		Expect(p.PublishEntry(context.Background(), ev)).To(Succeed())
		Expect(p.Close()).To(Succeed())
	})
})
