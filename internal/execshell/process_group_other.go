//go:build !unix

package execshell

import "os/exec"

func configureProcessGroup(executable *exec.Cmd) {}
