package cmd_test

import (
	"encoding/json"
	"os"
	"os/exec"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/onsi/gomega/gbytes"
	"github.com/onsi/gomega/gexec"
)

var _ = Describe("spec-unit CLI", func() {
	var tempDir string

	run := func(args ...string) *gexec.Session {
		cmd := exec.Command(specUnitPath, args...)
		cmd.Dir = tempDir
		cmd.Env = append(os.Environ(), "HOME="+tempDir)
		session, err := gexec.Start(cmd, GinkgoWriter, GinkgoWriter)
		Expect(err).NotTo(HaveOccurred())
		Eventually(session, 30*time.Second).Should(gexec.Exit())
		return session
	}

	write := func(name, content string) string {
		path := filepath.Join(tempDir, name)
		Expect(os.MkdirAll(filepath.Dir(path), 0o755)).To(Succeed())
		Expect(os.WriteFile(path, []byte(content), 0o644)).To(Succeed())
		return path
	}

	BeforeEach(func() {
		tempDir = GinkgoT().TempDir()
	})

	Describe("basic commands", func() {
		It("displays help", func() {
			session := run("--help")
			Expect(session.ExitCode()).To(Equal(0))
			Expect(session.Out).To(gbytes.Say("spec-unit"))
			Expect(session.Out).To(gbytes.Say("check"))
		})

		It("displays the version", func() {
			session := run("version")
			Expect(session.ExitCode()).To(Equal(0))
			Expect(session.Out).To(gbytes.Say("spec-unit version"))
		})

		It("displays the version as json", func() {
			session := run("version", "--json")
			Expect(session.ExitCode()).To(Equal(0))
			Expect(string(session.Out.Contents())).To(And(
				ContainSubstring(`"program"`),
				ContainSubstring("spec-unit"),
			))
			Expect(string(session.Out.Contents())).NotTo(ContainSubstring("spec-unit version"))
		})

		It("lists the built-in rules", func() {
			session := run("rules")
			Expect(session.ExitCode()).To(Equal(0))
			Expect(string(session.Out.Contents())).To(And(
				ContainSubstring("no-should"),
				ContainSubstring("one-expectation"),
				ContainSubstring("no-iterator-examples"),
			))
		})

		It("lists the built-in rules as json", func() {
			session := run("rules", "--json")
			Expect(session.ExitCode()).To(Equal(0))
			Expect(string(session.Out.Contents())).To(And(
				ContainSubstring(`"no-should"`),
				ContainSubstring(`"severity"`),
				Not(ContainSubstring("DESCRIPTION")),
			))
		})
	})

	Describe("init", func() {
		It("creates spec-unit.yaml and refuses to overwrite it", func() {
			Expect(run("init").ExitCode()).To(Equal(0))
			Expect(filepath.Join(tempDir, "spec-unit.yaml")).To(BeAnExistingFile())

			session := run("init")
			Expect(session.ExitCode()).To(Equal(1))
			Expect(session.Err).To(gbytes.Say("already exists"))

			Expect(run("init", "--force").ExitCode()).To(Equal(0))
		})
	})

	Describe("check", func() {
		It("exits 0 for a clean suite", func() {
			write("spec/user_spec.rb", `describe User do
  context 'when active' do
    it 'is valid' do
      expect(user).to be_valid
    end
  end
end
`)
			session := run("check")
			Expect(session.ExitCode()).To(Equal(0))
			Expect(session.Err).To(gbytes.Say("No spec style violations found"))
		})

		It("exits 1 and reports violations", func() {
			write("spec/user_spec.rb", `describe User do
  it 'should be valid' do
    expect(user).to be_valid
  end
end
`)
			session := run("check")
			Expect(session.ExitCode()).To(Equal(1))
			Expect(session.Out).To(gbytes.Say(`user_spec.rb:2: \[no-should\]`))
			Expect(string(session.Out.Contents())).To(HavePrefix("spec/user_spec.rb:2: "))
		})

		It("reports failing rule evaluations without failing the run", func() {
			write("spec-unit.yaml", `custom:
  - id: divide
    targets: [example]
    expr: 'node.text.size() / 0 > 1'
    message: never
`)
			write("spec/user_spec.rb", "describe User do\n  it 'is valid' do\n    expect(user).to be_valid\n  end\nend\n")

			session := run("check")
			Expect(session.ExitCode()).To(Equal(0))
			Expect(session.Out).To(gbytes.Say(`spec/user_spec.rb:2: \[rule-error\] rule divide failed: `))
			Expect(session.Err).To(gbytes.Say(`1 rule evaluation\(s\) failed and were skipped`))
		})

		It("keeps the default excludes when --exclude is given", func() {
			write("spec/user_spec.rb", "describe User do\n  it 'is valid' do\n    expect(user).to be_valid\n  end\nend\n")
			write("vendor/gem/bad_spec.rb", "describe Gem do\n  it 'should work' do\n  end\nend\n")
			write("spec/fixtures/bad_spec.rb", "describe Fixture do\n  it 'should work' do\n  end\nend\n")

			session := run("check", "--exclude", "spec/fixtures/**")
			Expect(session.ExitCode()).To(Equal(0))
			Expect(string(session.Out.Contents())).NotTo(ContainSubstring("bad_spec.rb"))
		})

		It("reports unparseable files and keeps going", func() {
			write("spec/broken_spec.rb", "describe Broken do\n  it 'never ends' do\nend\n")
			write("spec/fine_spec.rb", "describe Fine do\nend\n")

			session := run("check")
			Expect(session.ExitCode()).To(Equal(1))
			Expect(session.Out).To(gbytes.Say(`broken_spec.rb:1: \[parse-error\]`))
		})

		It("exits 2 for an invalid configuration before reading any file", func() {
			write("spec-unit.yaml", "rules:\n  no-shuold:\n    enabled: true\n")
			write("spec/user_spec.rb", "describe User do\n  it 'should work'\nend\n")

			session := run("check")
			Expect(session.ExitCode()).To(Equal(2))
			Expect(string(session.Err.Contents())).To(ContainSubstring("no-shuold"))
			Expect(string(session.Out.Contents())).NotTo(ContainSubstring("[no-should]"))
		})

		It("honours disabled rules", func() {
			write("spec-unit.yaml", "rules:\n  no-should:\n    enabled: false\n")
			write("spec/user_spec.rb", "describe User do\n  it 'should work' do\n    expect(1).to eq(1)\n  end\nend\n")

			Expect(run("check").ExitCode()).To(Equal(0))
		})

		It("writes json reports", func() {
			write("spec/user_spec.rb", "describe User do\n  it 'should work' do\n  end\nend\n")

			session := run("check", "--json")
			Expect(session.ExitCode()).To(Equal(1))

			var report map[string]any
			Expect(json.Unmarshal(session.Out.Contents(), &report)).To(Succeed())
			Expect(report).To(HaveKey("violations"))
			Expect(report["violations"]).To(HaveLen(1))
		})
	})

	Describe("tree", func() {
		It("prints the description tree", func() {
			path := write("spec/user_spec.rb", "describe User do\n  context 'when active' do\n    it 'is valid'\n  end\nend\n")

			session := run("tree", path, "--tree-format", "ruby")
			Expect(session.ExitCode()).To(Equal(0))
			Expect(session.Out).To(gbytes.Say(`describe User do`))
			Expect(session.Out).To(gbytes.Say(`    it 'is valid'`))
		})
	})
})
