package archive

import "os"

// Zip entries written without Unix attributes carry no permission bits.
func dirMode(m os.FileMode) os.FileMode {
	if m.Perm() == 0 {
		return 0o755
	}
	return m
}

func fileMode(m os.FileMode) os.FileMode {
	if m.Perm() == 0 {
		return 0o644
	}
	return m
}
