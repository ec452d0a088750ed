package api

import (
	"io"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/fileybot/filey/pkg/logger"
)

var _ = Describe("Server", func() {
	var server *Server

	BeforeEach(func() {
		server = NewServer(Config{
			ListenAddr:  ":0",
			WebhookPath: "/webhook/test-token",
		}, nil, logger.Nop())
	})

	It("answers the health check", func() {
		resp, err := server.app.Test(httptest.NewRequest("GET", "/ping", nil))
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(200))
		body, err := io.ReadAll(resp.Body)
		Expect(err).NotTo(HaveOccurred())
		Expect(string(body)).To(ContainSubstring("pong"))
	})

	It("rejects a malformed webhook body", func() {
		req := httptest.NewRequest("POST", "/webhook/test-token", strings.NewReader("{not json"))
		req.Header.Set("Content-Type", "application/json")

		resp, err := server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(400))
	})

	It("does not serve the webhook on other paths", func() {
		req := httptest.NewRequest("POST", "/webhook/wrong-token", strings.NewReader("{}"))
		resp, err := server.app.Test(req)
		Expect(err).NotTo(HaveOccurred())
		defer resp.Body.Close()

		Expect(resp.StatusCode).To(Equal(404))
	})
})
