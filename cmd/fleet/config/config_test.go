package configcmder_test

import (
	"bytes"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	configcmder "github.com/papercomputeco/fleet/cmd/fleet/config"
)

var _ = Describe("NewConfigCmd", func() {
	It("creates a command with the correct use string", func() {
		cmd := configcmder.NewConfigCmd()
		Expect(cmd.Use).To(Equal("config"))
	})

	It("has set, get, unset and list subcommands", func() {
		cmd := configcmder.NewConfigCmd()
		cmds := cmd.Commands()
		subcommands := make([]string, 0, len(cmds))
		for _, sub := range cmds {
			subcommands = append(subcommands, sub.Name())
		}
		Expect(subcommands).To(ContainElements("set", "get", "unset", "list"))
	})
})

var _ = Describe("Config command execution", func() {
	var (
		tmpDir  string
		origDir string
		out     *bytes.Buffer
	)

	run := func(args ...string) error {
		cmd := configcmder.NewConfigCmd()
		cmd.SetOut(out)
		cmd.SetErr(out)
		cmd.SetArgs(args)
		return cmd.Execute()
	}

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "fleet-config-test-*")
		Expect(err).NotTo(HaveOccurred())

		origDir, err = os.Getwd()
		Expect(err).NotTo(HaveOccurred())

		// Create a local .fleet dir so the manager picks it up
		err = os.MkdirAll(filepath.Join(tmpDir, ".fleet"), 0o755)
		Expect(err).NotTo(HaveOccurred())

		err = os.Chdir(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		out = &bytes.Buffer{}
	})

	AfterEach(func() {
		err := os.Chdir(origDir)
		Expect(err).NotTo(HaveOccurred())
		os.RemoveAll(tmpDir)
	})

	Describe("set subcommand", func() {
		It("sets a config value successfully", func() {
			Expect(run("set", "client.target", "http://fleet.internal:8000")).To(Succeed())

			// Verify the config file was created
			_, err := os.Stat(filepath.Join(tmpDir, ".fleet", "config.toml"))
			Expect(err).NotTo(HaveOccurred())
		})

		It("rejects unknown keys", func() {
			err := run("set", "invalid_key", "value")
			Expect(err).To(MatchError(ContainSubstring("unknown config key")))
		})

		It("requires exactly two arguments", func() {
			Expect(run("set", "client.target")).NotTo(Succeed())
		})

		It("rejects zero arguments", func() {
			Expect(run("set")).NotTo(Succeed())
		})

		It("rejects invalid int values", func() {
			Expect(run("set", "stream.chunk_size", "not-a-number")).NotTo(Succeed())
		})

		It("rejects negative int values", func() {
			Expect(run("set", "transcripts.workers", "-1")).NotTo(Succeed())
		})
	})

	Describe("get subcommand", func() {
		It("gets a previously set value", func() {
			Expect(run("set", "client.model", "fleet-large")).To(Succeed())

			out.Reset()
			Expect(run("get", "client.model")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("fleet-large"))
		})

		It("reports defaults for unset keys", func() {
			Expect(run("get", "replay.listen")).To(Succeed())
			Expect(out.String()).To(ContainSubstring(":8000"))
		})

		It("rejects unknown keys", func() {
			Expect(run("get", "invalid_key")).NotTo(Succeed())
		})

		It("requires exactly one argument", func() {
			Expect(run("get")).NotTo(Succeed())
		})
	})

	Describe("unset subcommand", func() {
		It("restores the default", func() {
			Expect(run("set", "replay.listen", ":9999")).To(Succeed())
			Expect(run("unset", "replay.listen")).To(Succeed())

			out.Reset()
			Expect(run("get", "replay.listen")).To(Succeed())
			Expect(out.String()).To(ContainSubstring(":8000"))
			Expect(out.String()).NotTo(ContainSubstring(":9999"))
		})

		It("rejects unknown keys", func() {
			Expect(run("unset", "invalid_key")).To(MatchError(ContainSubstring("Valid keys")))
		})
	})

	Describe("list subcommand", func() {
		It("lists every key", func() {
			Expect(run("set", "eventstream.brokers", "a:9092,b:9092")).To(Succeed())

			out.Reset()
			Expect(run("list")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("client.target"))
			Expect(out.String()).To(ContainSubstring("replay.listen"))
			Expect(out.String()).To(ContainSubstring(`"a:9092,b:9092"`))
			Expect(out.String()).To(ContainSubstring("Config file:"))
		})

		It("reports defaults before anything was saved", func() {
			Expect(run("list")).To(Succeed())
			Expect(out.String()).To(ContainSubstring("No config file found"))
			Expect(out.String()).To(ContainSubstring("<not set>"))
		})

		It("rejects any arguments", func() {
			Expect(run("list", "extra")).NotTo(Succeed())
		})
	})
})
