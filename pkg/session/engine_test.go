package session_test

import (
	"context"
	"fmt"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fileybot/filey/pkg/eventstream/nop"
	"github.com/fileybot/filey/pkg/logger"
	"github.com/fileybot/filey/pkg/namespace"
	"github.com/fileybot/filey/pkg/session"
	"github.com/fileybot/filey/pkg/storage/inmemory"
	"github.com/fileybot/filey/pkg/vfs"
)

// mustEntry finds the named entry in fs's current directory.
func mustEntry(ctx context.Context, fs *vfs.Filesystem, name string) namespace.Entry {
	GinkgoHelper()

	entries, err := fs.Ls(ctx)
	Expect(err).NotTo(HaveOccurred())
	for _, entry := range entries {
		if entry.Name() == name {
			return entry
		}
	}

	Fail("no entry named " + name)
	return namespace.Entry{}
}

var _ = Describe("Engine", func() {
	const chatID = "chat-1"

	var (
		ctx    context.Context
		store  *inmemory.Driver
		engine *session.Engine
		fs     *vfs.Filesystem
	)

	BeforeEach(func() {
		ctx = context.Background()
		store = inmemory.NewDriver()
		engine = session.NewEngine(session.Config{}, store, nop.NewPublisher(), logger.Nop())
		DeferCleanup(engine.Close)
	})

	// openFS gives the test its own view of the chat's tree, sharing the
	// engine's store.
	openFS := func() {
		var err error
		fs, err = vfs.Open(ctx, store, chatID)
		Expect(err).NotTo(HaveOccurred())
	}

	handle := func(ev session.Event) []session.Render {
		GinkgoHelper()

		ev.ChatID = chatID
		renders, err := engine.Handle(ctx, ev)
		Expect(err).NotTo(HaveOccurred())
		Expect(renders).NotTo(BeEmpty())

		return renders
	}

	command := func(name, args string) []session.Render {
		return handle(session.Event{Kind: session.EventCommand, Command: name, Args: args})
	}

	message := func(text, messageID string) []session.Render {
		return handle(session.Event{Kind: session.EventMessage, Text: text, MessageID: messageID})
	}

	callback := func(data string) []session.Render {
		return handle(session.Event{Kind: session.EventCallback, CallbackData: data})
	}

	listing := func(renders []session.Render) session.Render {
		GinkgoHelper()

		last := renders[len(renders)-1]
		Expect(last.Keyboard).NotTo(BeEmpty())

		return last
	}

	Describe("start", func() {
		It("greets the chat", func() {
			renders := handle(session.Event{Kind: session.EventStart})
			Expect(renders).To(HaveLen(1))
			Expect(renders[0].Text).To(ContainSubstring("Welcome to Filey"))
		})
	})

	Describe("ls", func() {
		It("renders the empty root with only the parent row", func() {
			list := listing(command("ls", ""))
			Expect(list.Text).To(Equal("Path: `/`"))
			Expect(list.Markdown).To(BeTrue())
			Expect(list.Keyboard).To(HaveLen(1))
			Expect(list.Keyboard[0][0].Label).To(Equal("⤴ Parent directory"))
		})
	})

	Describe("mkdir", func() {
		It("creates a directory and lists it with edit and delete buttons", func() {
			list := listing(command("mkdir", "docs"))
			Expect(list.Keyboard).To(HaveLen(2))

			row := list.Keyboard[1]
			Expect(row).To(HaveLen(3))
			Expect(row[0].Label).To(ContainSubstring("docs"))
			Expect(row[0].Data).To(HavePrefix("c#d#"))
			Expect(row[1].Label).To(Equal("✏"))
			Expect(row[1].Data).To(HavePrefix("ren#d#"))
			Expect(row[2].Label).To(Equal("❌"))
			Expect(row[2].Data).To(HavePrefix("r#d#"))
		})

		It("reports a name collision", func() {
			command("mkdir", "docs")
			renders := command("mkdir", "docs")
			Expect(renders[0].Text).To(Equal("There is already a directory with the same name: docs"))
		})

		It("asks for a name when none is given", func() {
			renders := command("mkdir", "")
			Expect(renders[0].Text).To(ContainSubstring("Usage"))
		})
	})

	Describe("messages", func() {
		It("stores a text message as a file named after its text", func() {
			list := listing(message("groceries", "msg-1"))

			openFS()
			entry := mustEntry(ctx, fs, "groceries")
			Expect(entry.Kind).To(Equal(namespace.KindFile))
			Expect(entry.File.PayloadRef).To(Equal("msg-1"))
			Expect(list.Keyboard[1][0].Data).To(Equal("m#f#" + entry.ID()))
		})

		It("prefers the attachment filename over the text", func() {
			handle(session.Event{
				Kind:       session.EventMessage,
				Text:       "look at this",
				MessageID:  "msg-2",
				Attachment: &session.Attachment{FileName: "report.pdf", MimeType: "application/pdf"},
			})

			openFS()
			mustEntry(ctx, fs, "report.pdf")
		})

		It("falls back to the message id when nothing else names it", func() {
			message("", "msg-3")

			openFS()
			mustEntry(ctx, fs, "msg-3")
		})

		It("reports a collision with an existing file", func() {
			message("groceries", "msg-1")
			renders := message("groceries", "msg-2")
			Expect(renders[0].Text).To(Equal("There is already a file with the same name: groceries"))
		})
	})

	Describe("toggle_list_options", func() {
		It("hides and restores the per-row buttons", func() {
			command("mkdir", "docs")

			renders := command("toggle_list_options", "")
			Expect(renders[0].Text).To(Equal("List options are now hidden."))
			Expect(listing(renders).Keyboard[1]).To(HaveLen(1))

			renders = command("toggle_list_options", "")
			Expect(renders[0].Text).To(Equal("List options are now shown."))
			Expect(listing(renders).Keyboard[1]).To(HaveLen(3))
		})
	})

	Describe("navigation callbacks", func() {
		It("descends into a directory and climbs back out", func() {
			command("mkdir", "docs")
			openFS()
			docs := mustEntry(ctx, fs, "docs")

			list := listing(callback("c#d#" + docs.ID()))
			Expect(list.Text).To(Equal("Path: `/docs/`"))

			parentData := list.Keyboard[0][0].Data
			list = listing(callback(parentData))
			Expect(list.Text).To(Equal("Path: `/`"))
		})

		It("escapes markdown metacharacters in the path", func() {
			command("mkdir", "q`3\\4")
			openFS()
			dir := mustEntry(ctx, fs, "q`3\\4")

			list := listing(callback("c#d#" + dir.ID()))
			Expect(list.Text).To(Equal("Path: `/q\\`3\\\\4/`"))
		})

		It("rejects a stale directory id politely", func() {
			renders := callback("c#d#long-gone")
			Expect(renders[0].Text).To(ContainSubstring("no such directory"))
		})

		It("rejects garbage payloads politely", func() {
			renders := callback("not-an-action")
			Expect(renders[0].Text).To(Equal("That button is no longer valid."))
		})
	})

	Describe("open callback", func() {
		It("forwards the stored message", func() {
			message("groceries", "msg-1")
			openFS()
			entry := mustEntry(ctx, fs, "groceries")

			renders := callback("m#f#" + entry.ID())
			Expect(renders).To(HaveLen(1))
			Expect(renders[0].ForwardRef).To(Equal("msg-1"))
		})

		It("rejects an open tag forged onto a directory id", func() {
			command("mkdir", "docs")
			openFS()
			docs := mustEntry(ctx, fs, "docs")

			renders := callback("m#d#" + docs.ID())
			Expect(renders).To(HaveLen(1))
			Expect(renders[0].Text).To(Equal("That button is no longer valid."))
			Expect(renders[0].ForwardRef).To(BeEmpty())
		})
	})

	Describe("delete flow", func() {
		var entry namespace.Entry

		BeforeEach(func() {
			message("groceries", "msg-1")
			openFS()
			entry = mustEntry(ctx, fs, "groceries")
		})

		It("asks for confirmation first", func() {
			renders := callback("r#f#" + entry.ID())
			Expect(renders).To(HaveLen(1))
			Expect(renders[0].Text).To(Equal(`Confirm delete "groceries"?`))

			row := renders[0].Keyboard[0]
			Expect(row[0].Label).To(Equal("✔️ Yes"))
			Expect(row[0].Data).To(Equal("yd#f#" + entry.ID()))
			Expect(row[1].Label).To(Equal("❌ No"))
			Expect(row[1].Data).To(Equal("nd#f#" + entry.ID()))
		})

		It("deletes on yes", func() {
			renders := callback("yd#f#" + entry.ID())
			Expect(renders[0].Text).To(Equal(`"groceries" deleted!`))
			Expect(listing(renders).Keyboard).To(HaveLen(1))

			file, err := fs.File(ctx, entry.ID())
			Expect(err).NotTo(HaveOccurred())
			Expect(file).To(BeNil())
		})

		It("keeps the entry on no", func() {
			renders := callback("nd#f#" + entry.ID())
			Expect(renders[0].Text).To(Equal("OK!"))
			Expect(listing(renders).Keyboard).To(HaveLen(2))
		})

		It("removes a directory subtree on yes", func() {
			command("mkdir", "docs")
			openFS()
			docs := mustEntry(ctx, fs, "docs")
			callback("c#d#" + docs.ID())
			command("mkdir", "inner")
			callback("c#d#" + fs.Current().ID)

			renders := callback("yd#d#" + docs.ID())
			Expect(renders[0].Text).To(Equal(`"docs" deleted!`))

			dir, err := fs.Dir(ctx, docs.ID())
			Expect(err).NotTo(HaveOccurred())
			Expect(dir).To(BeNil())
		})
	})

	Describe("rename flow", func() {
		var entry namespace.Entry

		BeforeEach(func() {
			message("groceries", "msg-1")
			openFS()
			entry = mustEntry(ctx, fs, "groceries")
		})

		It("prompts, consumes the next message as the name, and goes idle", func() {
			renders := callback("ren#f#" + entry.ID())
			Expect(renders).To(HaveLen(1))
			Expect(renders[0].Text).To(Equal("Write the new name and send the message."))

			listing(message("shopping list", "msg-2"))
			openFS()
			renamed := mustEntry(ctx, fs, "shopping list")
			Expect(renamed.ID()).To(Equal(entry.ID()))

			// The next message is stored as a file, not treated as a name.
			message("back to normal", "msg-3")
			openFS()
			mustEntry(ctx, fs, "back to normal")
		})

		It("goes idle even when the new name collides", func() {
			message("other", "msg-2")

			callback("ren#f#" + entry.ID())
			renders := message("other", "msg-3")
			Expect(renders[0].Text).To(Equal("There is already a file with the same name: other"))

			message("fresh file", "msg-4")
			openFS()
			mustEntry(ctx, fs, "fresh file")
		})

		It("cancels an empty name", func() {
			callback("ren#f#" + entry.ID())
			renders := message("", "msg-2")
			Expect(renders[0].Text).To(ContainSubstring("cancelled"))

			openFS()
			mustEntry(ctx, fs, "groceries")
		})

		It("aborts on /cancel", func() {
			callback("ren#f#" + entry.ID())
			renders := command("cancel", "")
			Expect(renders[0].Text).To(Equal("Rename cancelled."))

			message("new file", "msg-2")
			openFS()
			mustEntry(ctx, fs, "new file")
			mustEntry(ctx, fs, "groceries")
		})

		It("has nothing to cancel when idle", func() {
			renders := command("cancel", "")
			Expect(renders[0].Text).To(Equal("Nothing to cancel."))
		})
	})

	Describe("pagination", func() {
		BeforeEach(func() {
			for i := 0; i < 23; i++ {
				message(fmt.Sprintf("file-%02d", i), fmt.Sprintf("msg-%02d", i))
			}
		})

		entryRows := func(list session.Render) int {
			rows := 0
			for _, row := range list.Keyboard[1:] {
				if strings.HasPrefix(row[0].Data, "m#f#") || strings.HasPrefix(row[0].Data, "c#d#") {
					rows++
				}
			}
			return rows
		}

		It("windows 23 entries into three pages", func() {
			list := listing(command("ls", ""))
			Expect(entryRows(list)).To(Equal(10))

			nav := list.Keyboard[len(list.Keyboard)-1]
			Expect(nav).To(HaveLen(1))
			Expect(nav[0].Label).To(Equal("➡ Next"))
			Expect(nav[0].Data).To(HaveSuffix("#1"))
			Expect(nav[0].Data).To(HavePrefix("np#d#"))

			list = listing(callback(nav[0].Data))
			Expect(entryRows(list)).To(Equal(10))
			nav = list.Keyboard[len(list.Keyboard)-1]
			Expect(nav).To(HaveLen(2))
			Expect(nav[0].Label).To(Equal("⬅ Previous"))
			Expect(nav[0].Data).To(HavePrefix("pp#d#"))
			Expect(nav[0].Data).To(HaveSuffix("#0"))
			Expect(nav[1].Label).To(Equal("➡ Next"))
			Expect(nav[1].Data).To(HaveSuffix("#2"))

			list = listing(callback(nav[1].Data))
			Expect(entryRows(list)).To(Equal(3))
			nav = list.Keyboard[len(list.Keyboard)-1]
			Expect(nav).To(HaveLen(1))
			Expect(nav[0].Label).To(Equal("⬅ Previous"))
		})

		It("shows the first page when a stale page is out of range", func() {
			openFS()
			root := fs.Current()
			list := listing(callback("np#d#" + root.ID + "#9"))
			Expect(entryRows(list)).To(BeZero())
			Expect(list.Keyboard[len(list.Keyboard)-1][0].Label).To(Equal("⬅ Previous"))
		})
	})
})

var _ = Describe("Registry", func() {
	It("evicts idle sessions and rebuilds them on the next event", func() {
		store := inmemory.NewDriver()
		registry := session.NewRegistry(store, 10*time.Millisecond)
		defer registry.Close()

		registry.Lookup("chat-1")
		Expect(registry.Len()).To(Equal(1))

		Eventually(registry.Len, "5s", "50ms").Should(BeZero())

		registry.Lookup("chat-1")
		Expect(registry.Len()).To(Equal(1))
	})

	It("keeps busy sessions alive", func() {
		store := inmemory.NewDriver()
		registry := session.NewRegistry(store, time.Hour)
		defer registry.Close()

		registry.Lookup("chat-1")
		registry.Lookup("chat-2")
		Expect(registry.Len()).To(Equal(2))
	})
})
