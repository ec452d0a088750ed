package sqlstore_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fileybot/filey/pkg/namespace"
	"github.com/fileybot/filey/pkg/storage"
	"github.com/fileybot/filey/pkg/storage/sqlite"
)

var _ = Describe("SQLStore", func() {
	var (
		ctx    context.Context
		tmpDir string
		store  *sqlite.Driver
		user   *namespace.User
		root   *namespace.Directory
	)

	BeforeEach(func() {
		ctx = context.Background()

		var err error
		tmpDir, err = os.MkdirTemp("", "filey-sqlstore-test-*")
		Expect(err).NotTo(HaveOccurred())

		store, err = sqlite.NewDriver(ctx, filepath.Join(tmpDir, "test.db"))
		Expect(err).NotTo(HaveOccurred())

		user, err = store.CreateUser(ctx, "chat-100")
		Expect(err).NotTo(HaveOccurred())

		root, err = store.CreateDirectory(ctx, user.ID, nil, "")
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(store.Close()).To(Succeed())
		os.RemoveAll(tmpDir)
	})

	Describe("users", func() {
		It("finds a created user by chat id", func() {
			found, err := store.FindUserByChatID(ctx, "chat-100")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.ID).To(Equal(user.ID))
			Expect(found.Settings).To(BeEmpty())
		})

		It("returns NotFoundError for an unknown chat id", func() {
			_, err := store.FindUserByChatID(ctx, "chat-999")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})

		It("round-trips the settings blob", func() {
			updated, err := store.UpdateUserSettings(ctx, user.ID, map[string]any{
				"show_list_options": true,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Settings).To(HaveKeyWithValue("show_list_options", true))

			fetched, err := store.GetUser(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(fetched.Settings).To(HaveKeyWithValue("show_list_options", true))
		})

		It("rejects updating settings for a missing user", func() {
			_, err := store.UpdateUserSettings(ctx, "missing", map[string]any{})
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("directories", func() {
		It("finds the root by its empty name and nil parent", func() {
			found, err := store.FindRootDirectory(ctx, user.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(found.ID).To(Equal(root.ID))
			Expect(found.Root()).To(BeTrue())
		})

		It("lists children in creation order", func() {
			for _, name := range []string{"alpha", "beta", "gamma"} {
				_, err := store.CreateDirectory(ctx, user.ID, &root.ID, name)
				Expect(err).NotTo(HaveOccurred())
			}

			dirs, err := store.ListDirectories(ctx, user.ID, root.ID)
			Expect(err).NotTo(HaveOccurred())

			names := make([]string, 0, len(dirs))
			for _, d := range dirs {
				names = append(names, d.Name)
			}
			Expect(names).To(Equal([]string{"alpha", "beta", "gamma"}))
		})

		It("finds a child directory by name", func() {
			created, err := store.CreateDirectory(ctx, user.ID, &root.ID, "docs")
			Expect(err).NotTo(HaveOccurred())

			found, err := store.FindDirectoryByName(ctx, user.ID, root.ID, "docs")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.ID).To(Equal(created.ID))
		})

		It("renames a directory in place", func() {
			created, err := store.CreateDirectory(ctx, user.ID, &root.ID, "docs")
			Expect(err).NotTo(HaveOccurred())

			renamed, err := store.RenameDirectory(ctx, user.ID, created.ID, "papers")
			Expect(err).NotTo(HaveOccurred())
			Expect(renamed.Name).To(Equal("papers"))
			Expect(renamed.ID).To(Equal(created.ID))
		})

		It("scopes lookups to the owning user", func() {
			other, err := store.CreateUser(ctx, "chat-200")
			Expect(err).NotTo(HaveOccurred())

			_, err = store.GetDirectory(ctx, other.ID, root.ID)
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("files", func() {
		var docs *namespace.Directory

		BeforeEach(func() {
			var err error
			docs, err = store.CreateDirectory(ctx, user.ID, &root.ID, "docs")
			Expect(err).NotTo(HaveOccurred())
		})

		It("creates and fetches a file with its metadata", func() {
			created, err := store.CreateFile(ctx, &namespace.File{
				Name:        "report.pdf",
				UserID:      user.ID,
				DirectoryID: docs.ID,
				PayloadRef:  "msg-42",
				Metadata:    map[string]any{"mime_type": "application/pdf"},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(created.ID).NotTo(BeEmpty())

			fetched, err := store.GetFile(ctx, user.ID, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(fetched.Name).To(Equal("report.pdf"))
			Expect(fetched.PayloadRef).To(Equal("msg-42"))
			Expect(fetched.Metadata).To(HaveKeyWithValue("mime_type", "application/pdf"))
		})

		It("rejects creating a nil file", func() {
			_, err := store.CreateFile(ctx, nil)
			Expect(err).To(HaveOccurred())
		})

		It("finds a file by name within its directory", func() {
			created, err := store.CreateFile(ctx, &namespace.File{
				Name:        "notes.txt",
				UserID:      user.ID,
				DirectoryID: docs.ID,
				PayloadRef:  "msg-7",
			})
			Expect(err).NotTo(HaveOccurred())

			found, err := store.FindFileByName(ctx, user.ID, docs.ID, "notes.txt")
			Expect(err).NotTo(HaveOccurred())
			Expect(found.ID).To(Equal(created.ID))
		})

		It("lists files in creation order", func() {
			for _, name := range []string{"a.txt", "b.txt", "c.txt"} {
				_, err := store.CreateFile(ctx, &namespace.File{
					Name:        name,
					UserID:      user.ID,
					DirectoryID: docs.ID,
					PayloadRef:  "msg",
				})
				Expect(err).NotTo(HaveOccurred())
			}

			files, err := store.ListFiles(ctx, user.ID, docs.ID)
			Expect(err).NotTo(HaveOccurred())

			names := make([]string, 0, len(files))
			for _, f := range files {
				names = append(names, f.Name)
			}
			Expect(names).To(Equal([]string{"a.txt", "b.txt", "c.txt"}))
		})

		It("renames and deletes a file", func() {
			created, err := store.CreateFile(ctx, &namespace.File{
				Name:        "old.txt",
				UserID:      user.ID,
				DirectoryID: docs.ID,
				PayloadRef:  "msg-1",
			})
			Expect(err).NotTo(HaveOccurred())

			renamed, err := store.RenameFile(ctx, user.ID, created.ID, "new.txt")
			Expect(err).NotTo(HaveOccurred())
			Expect(renamed.Name).To(Equal("new.txt"))

			Expect(store.DeleteFile(ctx, user.ID, created.ID)).To(Succeed())

			_, err = store.GetFile(ctx, user.ID, created.ID)
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})

		It("reports NotFoundError when deleting a missing file", func() {
			err := store.DeleteFile(ctx, user.ID, "missing")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})
	})

	Describe("DeleteDirectoryTree", func() {
		It("removes the directory with every descendant directory and file", func() {
			docs, err := store.CreateDirectory(ctx, user.ID, &root.ID, "docs")
			Expect(err).NotTo(HaveOccurred())

			nested, err := store.CreateDirectory(ctx, user.ID, &docs.ID, "nested")
			Expect(err).NotTo(HaveOccurred())

			file, err := store.CreateFile(ctx, &namespace.File{
				Name:        "deep.txt",
				UserID:      user.ID,
				DirectoryID: nested.ID,
				PayloadRef:  "msg-9",
			})
			Expect(err).NotTo(HaveOccurred())

			Expect(store.DeleteDirectoryTree(ctx, user.ID, docs.ID)).To(Succeed())

			_, err = store.GetDirectory(ctx, user.ID, docs.ID)
			Expect(storage.IsNotFound(err)).To(BeTrue())
			_, err = store.GetDirectory(ctx, user.ID, nested.ID)
			Expect(storage.IsNotFound(err)).To(BeTrue())
			_, err = store.GetFile(ctx, user.ID, file.ID)
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})

		It("leaves sibling trees untouched", func() {
			docs, err := store.CreateDirectory(ctx, user.ID, &root.ID, "docs")
			Expect(err).NotTo(HaveOccurred())
			music, err := store.CreateDirectory(ctx, user.ID, &root.ID, "music")
			Expect(err).NotTo(HaveOccurred())

			Expect(store.DeleteDirectoryTree(ctx, user.ID, docs.ID)).To(Succeed())

			kept, err := store.GetDirectory(ctx, user.ID, music.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(kept.Name).To(Equal("music"))
		})

		It("reports NotFoundError for a missing directory", func() {
			err := store.DeleteDirectoryTree(ctx, user.ID, "missing")
			Expect(storage.IsNotFound(err)).To(BeTrue())
		})
	})
})
