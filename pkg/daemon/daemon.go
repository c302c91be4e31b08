// Copyright 2024-2026 Madhukar Beema. All rights reserved.
// Use of this source code is governed by the Business Source License
// included in the LICENSE file of this repository.

// Package daemon detaches the process from its terminal.
//
// The Go runtime cannot survive fork(2), so detaching re-executes the
// binary in a new session with stdio on /dev/null and an environment marker
// telling the child it is already detached. The parent then exits.
package daemon

import (
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"syscall"
)

const (
	// EnvMarker is set to "1" in the detached child's environment.
	EnvMarker = "WLBR_DAEMONIZED"
	// EnvFiles holds the number of descriptors handed to the child.
	EnvFiles = "WLBR_INHERITED_FDS"

	// firstInheritedFD is where exec.Cmd.ExtraFiles start in the child.
	firstInheritedFD = 3
)

// IsDetached reports whether this process is the detached child.
func IsDetached() bool {
	return os.Getenv(EnvMarker) == "1"
}

// InheritedFDs returns the descriptors a detaching parent passed to this
// process, in the order they were given to Detach.
func InheritedFDs() []uintptr {
	n, err := strconv.Atoi(os.Getenv(EnvFiles))
	if err != nil || n <= 0 {
		return nil
	}
	fds := make([]uintptr, n)
	for i := range fds {
		fds[i] = uintptr(firstInheritedFD + i)
	}
	return fds
}

// Detach starts a detached copy of the current process with the same
// arguments and returns its pid. files are inherited by the child, which
// finds them with InheritedFDs. The caller should exit afterwards.
func Detach(files ...*os.File) (int, error) {
	exe, err := os.Executable()
	if err != nil {
		return 0, fmt.Errorf("locate executable: %w", err)
	}
	return start(exe, os.Args[1:], os.Environ(), files)
}

func start(exe string, args, env []string, files []*os.File) (int, error) {
	null, err := os.OpenFile(os.DevNull, os.O_RDWR, 0)
	if err != nil {
		return 0, fmt.Errorf("open %s: %w", os.DevNull, err)
	}
	defer null.Close()

	cmd := exec.Command(exe, args...)
	cmd.Env = append(env, EnvMarker+"=1")
	if len(files) > 0 {
		cmd.Env = append(cmd.Env, EnvFiles+"="+strconv.Itoa(len(files)))
		cmd.ExtraFiles = files
	}
	cmd.Stdin = null
	cmd.Stdout = null
	cmd.Stderr = null
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}

	if err := cmd.Start(); err != nil {
		return 0, fmt.Errorf("start detached process: %w", err)
	}
	pid := cmd.Process.Pid
	// The child is adopted by init once we exit; never wait for it.
	if err := cmd.Process.Release(); err != nil {
		return pid, fmt.Errorf("release detached process: %w", err)
	}
	return pid, nil
}
