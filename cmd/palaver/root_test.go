package main

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	chatcmder "github.com/papercomputeco/palaver/cmd/palaver/chat"
)

var _ = Describe("Root Command", func() {
	var (
		tmpDir     string
		configPath string
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "palaver-root-test-*")
		Expect(err).NotTo(HaveOccurred())

		configPath = filepath.Join(tmpDir, "config.toml")
		Expect(os.WriteFile(configPath, []byte("token_env = \"PALAVER_ROOT_TEST_TOKEN\"\n"), 0o600)).To(Succeed())
		os.Unsetenv("PALAVER_ROOT_TEST_TOKEN")
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	execute := func(args ...string) (string, error) {
		cmd := newRootCmd()
		var out bytes.Buffer
		cmd.SetOut(&out)
		cmd.SetErr(io.Discard)
		cmd.SetArgs(args)
		err := cmd.ExecuteContext(context.Background())
		return out.String(), err
	}

	It("registers every subcommand", func() {
		names := []string{}
		for _, c := range newRootCmd().Commands() {
			names = append(names, c.Name())
		}
		Expect(names).To(ContainElements("chat", "ask", "serve", "version"))
	})

	It("prints the version", func() {
		out, err := execute("version")
		Expect(err).NotTo(HaveOccurred())
		Expect(out).To(HavePrefix("palaver dev"))
	})

	It("refuses to chat without a terminal", func() {
		_, err := execute("--config", configPath, "chat")
		Expect(err).To(MatchError(chatcmder.ErrNotTerminal))
	})

	It("refuses to serve without a token", func() {
		_, err := execute("--config", configPath, "serve")
		Expect(err).To(MatchError(ContainSubstring("PALAVER_ROOT_TEST_TOKEN")))
	})

	It("reports a missing config file", func() {
		_, err := execute("--config", filepath.Join(tmpDir, "missing.toml"), "ask", "hi")
		Expect(err).To(MatchError(ContainSubstring("missing.toml")))
	})

	It("reports an invalid config", func() {
		Expect(os.WriteFile(configPath, []byte("temperature = 5.0\n"), 0o600)).To(Succeed())
		_, err := execute("--config", configPath, "ask", "hi")
		Expect(err).To(MatchError(ContainSubstring("temperature")))
	})

	It("requires a prompt for ask", func() {
		_, err := execute("ask")
		Expect(err).To(HaveOccurred())
	})
})
