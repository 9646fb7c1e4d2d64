package cli_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"

	"github.com/cmsdeploy/uploader/internal/account"
	"github.com/cmsdeploy/uploader/internal/cli"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
)

const accountConfig = `
defaultPortal: prod
portals:
  - name: prod
    portalId: 12345
    authType: personalaccesskey
    auth:
      tokenInfo:
        accessToken: token-prod
  - name: sandbox
    portalId: 67890
    env: qa
`

type recordingServer struct {
	lock  sync.Mutex
	paths []string
	auth  []string
}

func (s *recordingServer) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.lock.Lock()
	s.paths = append(s.paths, r.URL.EscapedPath())
	s.auth = append(s.auth, r.Header.Get("Authorization"))
	s.lock.Unlock()
	w.WriteHeader(http.StatusOK)
}

func writeFile(root, rel, content string) string {
	p := filepath.Join(root, filepath.FromSlash(rel))
	Expect(os.MkdirAll(filepath.Dir(p), 0755)).To(Succeed())
	Expect(os.WriteFile(p, []byte(content), 0644)).To(Succeed())
	return p
}

var _ = Describe("cli", func() {
	var (
		workdir    string
		configPath string
		out        *bytes.Buffer
	)

	BeforeEach(func() {
		workdir = GinkgoT().TempDir()
		configPath = writeFile(workdir, "hubspot.config.yml", accountConfig)
		out = &bytes.Buffer{}
	})

	Context("upload", func() {
		var (
			recorder *recordingServer
			server   *httptest.Server
			src      string
		)

		BeforeEach(func() {
			recorder = &recordingServer{}
			server = httptest.NewServer(recorder)
			src = filepath.Join(workdir, "dist")
			writeFile(src, "css/main.css", "body{}")
			writeFile(src, "assets/logo.png", "png")
			writeFile(src, "js/app.ts", "")
		})

		AfterEach(func() {
			server.Close()
		})

		run := func(args ...string) error {
			cmd := cli.NewCmdUpload()
			cmd.SetOut(out)
			cmd.SetErr(out)
			cmd.SetArgs(append([]string{
				"--src", src,
				"--config", configPath,
				"--api-base-url", server.URL,
				"--log-format", "pretty",
			}, args...))
			return cmd.Execute()
		}

		It("uploads the directory to the default account", func() {
			err := run("--dest", "my-theme", "--assets-src", "assets", "--assets-dest", "files", "--exclude", ".ts")
			Expect(err).To(BeNil())

			Expect(recorder.paths).To(ConsistOf(
				"/content/filemapper/v1/upload/my-theme%2Fcss%2Fmain.css",
				"/files/v3/files",
			))
			Expect(recorder.auth).To(HaveEach("Bearer token-prod"))
			Expect(out.String()).To(ContainSubstring("Successfully uploaded my-theme/css/main.css to account 12345."))
			Expect(out.String()).To(ContainSubstring("Successfully uploaded files/assets/logo.png to file manager for account 12345."))
			Expect(out.String()).To(ContainSubstring("Uploaded 2 file(s), skipped 0, failed 0."))
		})

		It("writes the metrics file", func() {
			metricsFile := filepath.Join(workdir, "uploader.prom")
			Expect(run("--dest", "my-theme", "--metrics-file", metricsFile)).To(Succeed())

			content, err := os.ReadFile(metricsFile)
			Expect(err).To(BeNil())
			Expect(string(content)).To(ContainSubstring("uploader_uploads_total"))
		})

		It("fails on an unknown account", func() {
			err := run("--dest", "my-theme", "--account", "nope")
			Expect(err).To(MatchError("Account nope not found in " + configPath + "."))
			Expect(recorder.paths).To(BeEmpty())
		})

		It("names the per-user config file it fell back to", func() {
			home := GinkgoT().TempDir()
			GinkgoT().Setenv("HOME", home)
			global := writeFile(home, ".hubspot/"+account.DefaultConfigFile, accountConfig)

			err := run("--dest", "my-theme", "--account", "nope", "--config", account.DefaultConfigFile)
			Expect(err).To(MatchError("Account nope not found in " + global + "."))
		})

		It("requires a destination", func() {
			Expect(run()).ToNot(Succeed())
			Expect(recorder.paths).To(BeEmpty())
		})

		It("rejects an unknown layout", func() {
			err := run("--dest", "my-theme", "--layout", "nested")
			Expect(err).To(MatchError(ContainSubstring("layout must be one of")))
		})

		It("requires an asset destination with an asset source", func() {
			err := run("--dest", "my-theme", "--assets-src", "assets")
			Expect(err).To(MatchError(ContainSubstring("--assets-dest")))
		})
	})

	Context("fields", func() {
		It("converts definitions without uploading", func() {
			src := filepath.Join(workdir, "theme")
			writeFile(src, "modules/a.module/fields.js", `module.exports = () => [[{name: "a"}]];`)

			cmd := cli.NewCmdFields()
			cmd.SetOut(out)
			cmd.SetArgs([]string{"--src", src, "--log-format", "pretty"})
			Expect(cmd.Execute()).To(Succeed())

			content, err := os.ReadFile(filepath.Join(src, "modules/a.module/fields.json"))
			Expect(err).To(BeNil())
			Expect(content).To(MatchJSON(`[{"name": "a"}]`))
		})

		It("fails when a definition cannot be converted", func() {
			src := filepath.Join(workdir, "theme")
			writeFile(src, "fields.js", `module.exports = 42;`)

			cmd := cli.NewCmdFields()
			cmd.SetOut(out)
			cmd.SetErr(out)
			cmd.SetArgs([]string{"--src", src, "--log-format", "pretty"})
			Expect(cmd.Execute()).To(MatchError("1 of 1 definition file(s) failed to convert"))
		})
	})

	Context("accounts", func() {
		It("lists accounts as json", func() {
			cmd := cli.NewCmdAccounts()
			cmd.SetOut(out)
			cmd.SetArgs([]string{"--config", configPath, "-o", "json"})
			Expect(cmd.Execute()).To(Succeed())

			var accounts []map[string]any
			Expect(json.Unmarshal(out.Bytes(), &accounts)).To(Succeed())
			Expect(accounts).To(HaveLen(2))
			Expect(accounts[0]).To(HaveKeyWithValue("name", "prod"))
			Expect(accounts[0]).To(HaveKeyWithValue("accountId", BeNumerically("==", 12345)))
			Expect(accounts[0]).To(HaveKeyWithValue("default", true))
			Expect(accounts[1]).To(HaveKeyWithValue("default", false))
		})

		It("lists accounts as a table", func() {
			cmd := cli.NewCmdAccounts()
			cmd.SetOut(out)
			cmd.SetArgs([]string{"--config", configPath})
			Expect(cmd.Execute()).To(Succeed())
			Expect(out.String()).To(ContainSubstring("NAME"))
			Expect(out.String()).To(ContainSubstring("sandbox"))
			Expect(out.String()).To(ContainSubstring("67890"))
		})

		It("rejects an unknown output format", func() {
			cmd := cli.NewCmdAccounts()
			cmd.SetOut(out)
			cmd.SetErr(out)
			cmd.SetArgs([]string{"--config", configPath, "-o", "xml"})
			Expect(cmd.Execute()).To(MatchError(ContainSubstring("output format must be one of")))
		})
	})

	It("prints the version", func() {
		cmd := cli.NewCmdVersion()
		cmd.SetOut(out)
		cmd.SetArgs([]string{})
		Expect(cmd.Execute()).To(Succeed())
		Expect(out.String()).To(HavePrefix("Uploader Version: "))
	})
})
