// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Alcove Contributors

//go:build integration

package gateway_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"strings"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/alcove-web/alcove/internal/auth"
	authpg "github.com/alcove-web/alcove/internal/auth/postgres"
	"github.com/alcove-web/alcove/internal/store"
	"github.com/alcove-web/alcove/internal/web"
)

var (
	container *tcpostgres.PostgresContainer
	st        *store.Store
	site      *httptest.Server
)

var _ = BeforeSuite(func() {
	ctx := context.Background()

	var err error
	container, err = tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("alcove_test"),
		tcpostgres.WithUsername("alcove"),
		tcpostgres.WithPassword("alcove"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	Expect(err).NotTo(HaveOccurred())

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	Expect(err).NotTo(HaveOccurred())

	migrator, err := store.NewMigrator(connStr)
	Expect(err).NotTo(HaveOccurred())
	Expect(migrator.Up()).To(Succeed())
	Expect(migrator.Close()).To(Succeed())

	st, err = store.Open(ctx, connStr)
	Expect(err).NotTo(HaveOccurred())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	users := authpg.NewUserRepository(st.Pool())
	service, err := auth.NewServiceWithLogger(users, auth.NewBcryptHasher(auth.MinBcryptCost), logger)
	Expect(err).NotTo(HaveOccurred())
	codec, err := auth.NewIdentityCodec(users)
	Expect(err).NotTo(HaveOccurred())

	server, err := web.New(web.Options{
		SessionSecret: "integration-secret",
		Debug:         true,
		Service:       service,
		Codec:         codec,
		Throttle:      auth.NewThrottle(auth.ThrottleConfig{}),
		Logger:        logger,
	})
	Expect(err).NotTo(HaveOccurred())

	site = httptest.NewServer(server.Handler())
})

var _ = AfterSuite(func() {
	if site != nil {
		site.Close()
	}
	if st != nil {
		st.Close()
	}
	if container != nil {
		_ = container.Terminate(context.Background())
	}
})

// newBrowser returns a redirect-following client with its own cookie jar.
func newBrowser() *http.Client {
	jar, err := cookiejar.New(nil)
	Expect(err).NotTo(HaveOccurred())
	return &http.Client{Jar: jar}
}

// noRedirect stops the client at the first redirect so it can be inspected.
func noRedirect(client *http.Client) *http.Client {
	clone := *client
	clone.CheckRedirect = func(*http.Request, []*http.Request) error {
		return http.ErrUseLastResponse
	}
	return &clone
}

func submit(client *http.Client, path, email, password string) *http.Response {
	form := url.Values{"email": {email}, "password": {password}}
	resp, err := client.PostForm(site.URL+path, form)
	Expect(err).NotTo(HaveOccurred())
	return resp
}

func readBody(resp *http.Response) string {
	defer func() { _ = resp.Body.Close() }()
	body, err := io.ReadAll(resp.Body)
	Expect(err).NotTo(HaveOccurred())
	return string(body)
}

var _ = Describe("Public site", func() {
	It("serves the landing and content pages", func() {
		client := newBrowser()
		for _, path := range []string{"/", "/login", "/register", "/music", "/arts", "/drumkit", "/paint"} {
			resp, err := client.Get(site.URL + path)
			Expect(err).NotTo(HaveOccurred())
			Expect(resp.StatusCode).To(Equal(http.StatusOK), path)
			_ = resp.Body.Close()
		}
	})

	It("redirects the science page to the external game", func() {
		client := noRedirect(newBrowser())
		resp, err := client.Get(site.URL + "/science")
		Expect(err).NotTo(HaveOccurred())
		defer func() { _ = resp.Body.Close() }()
		Expect(resp.StatusCode).To(Equal(http.StatusFound))
		Expect(resp.Header.Get("Location")).To(Equal("https://fold.it/play"))
	})
})

var _ = Describe("Account journey", func() {
	It("walks a full register, logout, login cycle", func() {
		client := newBrowser()
		email := "journey@example.com"

		By("the protected area is closed to the anonymous visitor")
		resp, err := client.Get(site.URL + "/secrets")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Request.URL.Path).To(Equal("/login"), "redirected to login")
		_ = resp.Body.Close()

		By("registering opens the protected area")
		resp = submit(client, "/register", email, "hunter2")
		Expect(resp.Request.URL.Path).To(Equal("/secrets"))
		Expect(readBody(resp)).To(ContainSubstring(email))

		By("the session persists across requests")
		resp, err = client.Get(site.URL + "/secrets")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		_ = resp.Body.Close()

		By("logging out closes the protected area")
		resp, err = client.Get(site.URL + "/logout")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Request.URL.Path).To(Equal("/"))
		_ = resp.Body.Close()

		resp, err = client.Get(site.URL + "/secrets")
		Expect(err).NotTo(HaveOccurred())
		Expect(resp.Request.URL.Path).To(Equal("/login"))
		_ = resp.Body.Close()

		By("the wrong password bounces back to the login page")
		resp = submit(client, "/login", email, "wrong")
		Expect(resp.Request.URL.Path).To(Equal("/login"))
		_ = resp.Body.Close()

		By("the right password opens the protected area again")
		resp = submit(client, "/login", email, "hunter2")
		Expect(resp.Request.URL.Path).To(Equal("/secrets"))
		_ = resp.Body.Close()
	})

	It("rejects a second registration for the same email", func() {
		first := newBrowser()
		resp := submit(first, "/register", "taken@example.com", "hunter2")
		Expect(resp.Request.URL.Path).To(Equal("/secrets"))
		_ = resp.Body.Close()

		second := newBrowser()
		resp = submit(second, "/register", "taken@example.com", "other-password")
		Expect(resp.Request.URL.Path).To(Equal("/login"), "duplicate bounces to login")
		_ = resp.Body.Close()

		// The original credentials still work; the duplicate attempt
		// changed nothing.
		resp = submit(second, "/login", "taken@example.com", "hunter2")
		Expect(resp.Request.URL.Path).To(Equal("/secrets"))
		_ = resp.Body.Close()
	})

	It("treats differently cased emails as distinct accounts", func() {
		client := newBrowser()
		resp := submit(client, "/register", "casing@example.com", "hunter2")
		Expect(resp.Request.URL.Path).To(Equal("/secrets"))
		_ = resp.Body.Close()

		other := newBrowser()
		resp = submit(other, "/register", "Casing@example.com", "different")
		Expect(resp.Request.URL.Path).To(Equal("/secrets"))
		_ = resp.Body.Close()
	})
})
