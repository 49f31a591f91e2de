package dotdir_test

import (
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/papercomputeco/fleet/pkg/dotdir"
)

// setenv sets key for the current spec only.
func setenv(key, value string) {
	orig, had := os.LookupEnv(key)
	Expect(os.Setenv(key, value)).To(Succeed())
	DeferCleanup(func() {
		if had {
			os.Setenv(key, orig)
		} else {
			os.Unsetenv(key)
		}
	})
}

// chdir changes into dir for the current spec only.
func chdir(dir string) {
	orig, err := os.Getwd()
	Expect(err).NotTo(HaveOccurred())
	Expect(os.Chdir(dir)).To(Succeed())
	DeferCleanup(func() { os.Chdir(orig) })
}

var _ = Describe("Manager", func() {
	var (
		tmpDir string
		home   string
		work   string
		m      *dotdir.Manager
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "dotdir-test-*")
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(func() { os.RemoveAll(tmpDir) })

		// Paths must match filepath.Abs results (macOS /var -> /private/var).
		tmpDir, err = filepath.EvalSymlinks(tmpDir)
		Expect(err).NotTo(HaveOccurred())

		home = filepath.Join(tmpDir, "home")
		work = filepath.Join(tmpDir, "work")
		Expect(os.MkdirAll(home, 0o755)).To(Succeed())
		Expect(os.MkdirAll(work, 0o755)).To(Succeed())

		setenv("HOME", home)
		setenv(dotdir.EnvHome, "")
		chdir(work)

		m = dotdir.NewManager()
	})

	Describe("Resolve", func() {
		It("defaults to ~/.fleet without creating it", func() {
			dir, err := m.Resolve("")
			Expect(err).NotTo(HaveOccurred())
			Expect(dir).To(Equal(filepath.Join(home, ".fleet")))
			Expect(dir).NotTo(BeADirectory())
		})

		It("prefers an existing ./.fleet over home", func() {
			Expect(os.Mkdir(filepath.Join(work, ".fleet"), 0o755)).To(Succeed())

			dir, err := m.Resolve("")
			Expect(err).NotTo(HaveOccurred())
			Expect(dir).To(Equal(filepath.Join(work, ".fleet")))
		})

		It("ignores a ./.fleet file", func() {
			Expect(os.WriteFile(filepath.Join(work, ".fleet"), nil, 0o644)).To(Succeed())

			dir, err := m.Resolve("")
			Expect(err).NotTo(HaveOccurred())
			Expect(dir).To(Equal(filepath.Join(home, ".fleet")))
		})

		It("prefers FLEET_HOME over ./.fleet", func() {
			Expect(os.Mkdir(filepath.Join(work, ".fleet"), 0o755)).To(Succeed())
			setenv(dotdir.EnvHome, filepath.Join(tmpDir, "env"))

			dir, err := m.Resolve("")
			Expect(err).NotTo(HaveOccurred())
			Expect(dir).To(Equal(filepath.Join(tmpDir, "env")))
		})

		It("prefers the override over everything", func() {
			setenv(dotdir.EnvHome, filepath.Join(tmpDir, "env"))

			dir, err := m.Resolve("override")
			Expect(err).NotTo(HaveOccurred())
			Expect(dir).To(Equal(filepath.Join(work, "override")))
		})
	})

	Describe("Target", func() {
		It("creates the resolved directory", func() {
			dir, err := m.Target("")
			Expect(err).NotTo(HaveOccurred())
			Expect(dir).To(Equal(filepath.Join(home, ".fleet")))
			Expect(dir).To(BeADirectory())
		})

		It("accepts an existing override", func() {
			dir, err := m.Target(tmpDir)
			Expect(err).NotTo(HaveOccurred())
			Expect(dir).To(Equal(tmpDir))
		})

		It("fails when the directory cannot be created", func() {
			blocker := filepath.Join(tmpDir, "blocker")
			Expect(os.WriteFile(blocker, nil, 0o644)).To(Succeed())

			_, err := m.Target(filepath.Join(blocker, "sub"))
			Expect(err).To(MatchError(ContainSubstring("creating fleet directory")))
		})
	})

	Describe("File", func() {
		It("joins the name onto the created directory", func() {
			path, err := m.File(filepath.Join(tmpDir, "cfg"), "chat.json")
			Expect(err).NotTo(HaveOccurred())
			Expect(path).To(Equal(filepath.Join(tmpDir, "cfg", "chat.json")))
			Expect(filepath.Dir(path)).To(BeADirectory())
		})
	})
})
