package launcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/danmuck/antkit/internal/tools"
)

// Command is a fully assembled java invocation.
type Command struct {
	Path string
	Args []string
}

// String renders c as a shell-quoted line.
func (c Command) String() string {
	return tools.JoinCommand(c.Path, c.Args)
}

// Command builds the java invocation for args. The launcher jar is placed
// on the classpath once and removed from LOCALCLASSPATH and CLASSPATH;
// args are appended unchanged.
func (c Config) Command(args []string) (Command, []string) {
	var warnings []string
	jar := c.LauncherJarPath()
	if _, err := os.Stat(jar); err != nil {
		warnings = append(warnings, fmt.Sprintf("unable to locate %s, expected it in %s", LauncherJar, c.LibDir()))
	}

	classpath := append([]string{jar}, withoutPath(filepath.SplitList(c.LocalClassPath), jar)...)

	out := make([]string, 0, len(c.AntOpts)+len(c.AntArgs)+len(args)+8)
	out = append(out, c.AntOpts...)
	out = append(out,
		"-classpath", strings.Join(classpath, string(os.PathListSeparator)),
		"-Dant.home="+c.AntHome,
	)
	if c.JikesPath != "" {
		out = append(out, "-Djikes.class.path="+c.JikesPath)
	}
	out = append(out, LauncherClass)
	out = append(out, c.AntArgs...)
	if lib := withoutPath(filepath.SplitList(c.ClassPath), jar); len(lib) > 0 {
		out = append(out, "-lib", strings.Join(lib, string(os.PathListSeparator)))
	}
	out = append(out, args...)

	return Command{Path: c.JavaCmd, Args: out}, warnings
}

// withoutPath drops empty entries and any entry naming the same file as p.
func withoutPath(entries []string, p string) []string {
	want := filepath.Clean(p)
	out := make([]string, 0, len(entries))
	for _, entry := range entries {
		entry = strings.TrimSpace(entry)
		if entry == "" || filepath.Clean(entry) == want {
			continue
		}
		out = append(out, entry)
	}
	return out
}
