//go:build !unix

package buildsys

import "os/exec"

func setProcessGroup(cmd *exec.Cmd) {}
