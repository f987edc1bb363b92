package config_test

import (
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/palaver/pkg/config"
)

var _ = Describe("Config", func() {
	var tmpDir string

	BeforeEach(func() {
		tmpDir = GinkgoT().TempDir()
	})

	writeFile := func(body string) string {
		path := filepath.Join(tmpDir, "config.toml")
		Expect(os.WriteFile(path, []byte(body), 0o600)).To(Succeed())
		return path
	}

	env := func(vars map[string]string) func(string) string {
		return func(k string) string { return vars[k] }
	}

	Describe("Default", func() {
		It("uses the hosted endpoint defaults", func() {
			cfg := config.Default()

			Expect(cfg.Endpoint).To(Equal(config.DefaultEndpoint))
			Expect(cfg.Model).To(Equal("gpt-4o"))
			Expect(cfg.SystemPrompt).To(Equal("You are a helpful assistant."))
			Expect(cfg.MaxTokens).To(Equal(1000))
			Expect(cfg.Stream).To(BeTrue())
			Expect(*cfg.TopP).To(Equal(1.0))
			Expect(cfg.Validate()).To(Succeed())
		})
	})

	Describe("Load", func() {
		It("decodes a TOML file over the defaults", func() {
			path := writeFile(`
endpoint = "http://localhost:9000/v1"
model = "meta-llama-3-70b-instruct"
temperature = 0.0
stream = false
timeout = "90s"
`)
			cfg, err := config.Load(path)
			Expect(err).NotTo(HaveOccurred())

			Expect(cfg.Endpoint).To(Equal("http://localhost:9000/v1"))
			Expect(cfg.Model).To(Equal("meta-llama-3-70b-instruct"))
			Expect(cfg.Temperature).To(Equal(0.0))
			Expect(cfg.Stream).To(BeFalse())
			Expect(cfg.Timeout.Duration).To(Equal(90 * time.Second))
			Expect(cfg.MaxTokens).To(Equal(config.DefaultMaxTokens))
		})

		It("fails for a missing explicit file", func() {
			_, err := config.Load(filepath.Join(tmpDir, "nope.toml"))
			Expect(err).To(HaveOccurred())
		})

		It("rejects unknown keys", func() {
			path := writeFile(`modle = "typo"`)
			_, err := config.Load(path)
			Expect(err).To(MatchError(ContainSubstring("modle")))
		})

		It("rejects bad durations", func() {
			path := writeFile(`timeout = "soon"`)
			_, err := config.Load(path)
			Expect(err).To(HaveOccurred())
		})
	})

	Describe("ApplyEnv", func() {
		It("reads the token from the configured variable", func() {
			cfg := config.Default()
			cfg.TokenEnv = "MY_TOKEN"
			cfg.ApplyEnv(env(map[string]string{"MY_TOKEN": "secret", "GITHUB_TOKEN": "other"}))

			Expect(cfg.Token).To(Equal("secret"))
		})

		It("overrides endpoint and model", func() {
			cfg := config.Default()
			cfg.ApplyEnv(env(map[string]string{
				config.EnvEndpoint: "https://example.test",
				config.EnvModel:    "phi-3",
			}))

			Expect(cfg.Endpoint).To(Equal("https://example.test"))
			Expect(cfg.Model).To(Equal("phi-3"))
		})

		It("leaves values alone when variables are unset", func() {
			cfg := config.Default()
			cfg.ApplyEnv(env(nil))

			Expect(cfg.Endpoint).To(Equal(config.DefaultEndpoint))
		})
	})

	Describe("Validate", func() {
		It("reports every problem", func() {
			cfg := config.Default()
			cfg.Endpoint = "ftp://nowhere"
			cfg.Model = " "
			cfg.Temperature = 3

			err := cfg.Validate()
			Expect(err).To(HaveOccurred())
			Expect(err.Error()).To(ContainSubstring("endpoint"))
			Expect(err.Error()).To(ContainSubstring("model"))
			Expect(err.Error()).To(ContainSubstring("temperature"))
		})

		It("requires a token only on demand", func() {
			cfg := config.Default()
			cfg.Token = ""

			Expect(cfg.Validate()).To(Succeed())
			Expect(cfg.RequireToken()).To(MatchError(ContainSubstring("GITHUB_TOKEN")))
		})
	})
})
