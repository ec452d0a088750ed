package session_test

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fileybot/filey/pkg/namespace"
	"github.com/fileybot/filey/pkg/session"
	"github.com/fileybot/filey/pkg/storage/inmemory"
	"github.com/fileybot/filey/pkg/vfs"
)

var _ = Describe("Action", func() {
	var (
		ctx   context.Context
		store *inmemory.Driver
		fs    *vfs.Filesystem
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()

		var err error
		fs, err = vfs.Open(ctx, store, "chat-1")
		Expect(err).NotTo(HaveOccurred())
	})

	It("round-trips a directory action", func() {
		Expect(fs.Mkdir(ctx, "docs")).To(Succeed())
		dir, err := fs.Dir(ctx, mustEntry(ctx, fs, "docs").ID())
		Expect(err).NotTo(HaveOccurred())

		encoded := session.Action{Tag: session.ActionChangeDir, Target: namespace.DirEntry(dir)}.Encode()
		Expect(encoded).To(Equal("c#d#" + dir.ID))

		parsed, err := session.ParseAction(ctx, encoded, fs)
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed.Tag).To(Equal(session.ActionChangeDir))
		Expect(parsed.Target.Kind).To(Equal(namespace.KindDirectory))
		Expect(parsed.Target.ID()).To(Equal(dir.ID))
	})

	It("round-trips a file action with an extra field", func() {
		Expect(fs.Touch(ctx, "notes", "msg-1", nil)).To(Succeed())
		entry := mustEntry(ctx, fs, "notes")

		encoded := session.Action{Tag: session.ActionNextPage, Target: entry, Extra: "3"}.Encode()
		Expect(encoded).To(Equal("np#f#" + entry.ID() + "#3"))

		parsed, err := session.ParseAction(ctx, encoded, fs)
		Expect(err).NotTo(HaveOccurred())
		Expect(parsed.Extra).To(Equal("3"))
		Expect(parsed.Target.Kind).To(Equal(namespace.KindFile))
	})

	It("rejects payloads with too few fields", func() {
		_, err := session.ParseAction(ctx, "c#d", fs)
		Expect(err).To(MatchError(session.ErrMalformedAction))

		_, err = session.ParseAction(ctx, "garbage", fs)
		Expect(err).To(MatchError(session.ErrMalformedAction))
	})

	It("rejects an unknown kind character", func() {
		_, err := session.ParseAction(ctx, "c#x#some-id", fs)
		Expect(err).To(MatchError(session.ErrMalformedAction))
	})

	It("reports a stale directory id as not found", func() {
		_, err := session.ParseAction(ctx, "c#d#gone", fs)
		Expect(err).To(BeAssignableToTypeOf(vfs.DirectoryNotFoundError{}))
	})

	It("refuses to resolve another user's entry", func() {
		other, err := vfs.Open(ctx, store, "chat-2")
		Expect(err).NotTo(HaveOccurred())
		Expect(other.Touch(ctx, "secret", "msg-9", nil)).To(Succeed())
		foreign := mustEntry(ctx, other, "secret")

		_, err = session.ParseAction(ctx, "m#f#"+foreign.ID(), fs)
		Expect(err).To(BeAssignableToTypeOf(vfs.NotFoundError{}))
	})
})
