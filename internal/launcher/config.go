package launcher

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/mattn/go-shellwords"
)

const (
	EnvAntHome        = "ANT_HOME"
	EnvJavaCmd        = "JAVACMD"
	EnvJavaHome       = "JAVA_HOME"
	EnvAntOpts        = "ANT_OPTS"
	EnvAntArgs        = "ANT_ARGS"
	EnvLocalClassPath = "LOCALCLASSPATH"
	EnvClassPath      = "CLASSPATH"
	EnvJikesPath      = "JIKESPATH"
)

const (
	LauncherJar   = "ant-launcher.jar"
	LauncherClass = "org.apache.tools.ant.launch.Launcher"
)

// Config is everything needed to build the Ant command line.
type Config struct {
	AntHome        string
	JavaCmd        string
	AntOpts        []string
	AntArgs        []string
	LocalClassPath string
	ClassPath      string
	JikesPath      string
	ExecDebug      bool
}

// LibDir is $ANT_HOME/lib.
func (c Config) LibDir() string {
	return filepath.Join(c.AntHome, "lib")
}

// LauncherJarPath is the jar holding the launcher class.
func (c Config) LauncherJarPath() string {
	return filepath.Join(c.LibDir(), LauncherJar)
}

// FromEnv resolves a Config from e. exe is the path of the running
// launcher and seeds ANT_HOME when it is unset. Non-fatal problems are
// returned as warnings.
func FromEnv(e Environment, exe string) (Config, []string, error) {
	var cfg Config
	var warnings []string

	if home, ok := lookupNonEmpty(e, EnvAntHome); ok {
		cfg.AntHome = home
	} else {
		abs, err := filepath.Abs(exe)
		if err != nil {
			return Config{}, nil, fmt.Errorf("resolve %s from %q: %w", EnvAntHome, exe, err)
		}
		cfg.AntHome = filepath.Dir(filepath.Dir(abs))
	}

	javaCmd, warn := resolveJavaCmd(e)
	cfg.JavaCmd = javaCmd
	if warn != "" {
		warnings = append(warnings, warn)
	}

	var err error
	if cfg.AntOpts, err = splitWords(e, EnvAntOpts); err != nil {
		return Config{}, nil, err
	}
	if cfg.AntArgs, err = splitWords(e, EnvAntArgs); err != nil {
		return Config{}, nil, err
	}
	cfg.LocalClassPath, _ = lookupNonEmpty(e, EnvLocalClassPath)
	cfg.ClassPath, _ = lookupNonEmpty(e, EnvClassPath)
	cfg.JikesPath, _ = lookupNonEmpty(e, EnvJikesPath)

	return cfg, warnings, nil
}

func resolveJavaCmd(e Environment) (string, string) {
	if cmd, ok := lookupNonEmpty(e, EnvJavaCmd); ok {
		return cmd, ""
	}
	home, ok := lookupNonEmpty(e, EnvJavaHome)
	if !ok {
		return "java", "JAVA_HOME not set, using java from PATH"
	}
	if info, err := os.Stat(home); err != nil || !info.IsDir() {
		return "java", fmt.Sprintf("JAVA_HOME is not defined correctly (%s), using java from PATH", home)
	}
	return filepath.Join(home, "bin", "java"), ""
}

func splitWords(e Environment, key string) ([]string, error) {
	raw, ok := lookupNonEmpty(e, key)
	if !ok {
		return nil, nil
	}
	words, err := shellwords.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse %s=%q: %w", key, raw, err)
	}
	return words, nil
}

func lookupNonEmpty(e Environment, key string) (string, bool) {
	v, ok := e.Lookup(key)
	if !ok {
		return "", false
	}
	v = strings.TrimSpace(v)
	return v, v != ""
}
