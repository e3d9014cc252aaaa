package main

import (
	"fmt"
	"os"
)

func writeConfigTemplate(path string, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("config already exists: %s", path)
		}
	}
	return os.WriteFile(path, []byte(configTemplate), 0o644)
}

const configTemplate = `# antpkg configuration. Command-line flags override these values.

# Package identifier passed to pkgbuild.
identifier = "org.apache.ant"

# Where Ant is installed on the target machine.
install_prefix = "/usr/local/ant"

# paths.d entry that puts <install_prefix>/bin on PATH.
paths_file = "/etc/paths.d/ant"

# Directory receiving apache-ant-<version>.pkg.
output_dir = "."

pkgbuild = "pkgbuild"
download_timeout = "5m"
log_level = "info"

# Expected SHA-512 of the archive, as published next to it on apache.org.
# sha512 = ""

# Prometheus textfile output.
# metrics_file = "/var/lib/node_exporter/antpkg.prom"
`
