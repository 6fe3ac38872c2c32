package terminal

import (
	"fmt"
	"os"
	"runtime"
)

// processCwd reads the live working directory of pid where the OS exposes
// it, falling back to the directory the session was started in.
func processCwd(pid int, fallback string) string {
	if pid <= 0 || runtime.GOOS != "linux" {
		return fallback
	}
	cwd, err := os.Readlink(fmt.Sprintf("/proc/%d/cwd", pid))
	if err != nil || cwd == "" {
		return fallback
	}
	return cwd
}

// DefaultShell returns the platform shell and the flag that makes it run
// a single command string.
func DefaultShell() (shell string, commandFlag string) {
	if runtime.GOOS == "windows" {
		if comspec := os.Getenv("COMSPEC"); comspec != "" {
			return comspec, "/c"
		}
		return "cmd.exe", "/c"
	}
	if sh := os.Getenv("SHELL"); sh != "" {
		return sh, "-c"
	}
	return "/bin/bash", "-c"
}
