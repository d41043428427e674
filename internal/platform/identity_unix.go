//go:build !windows

package platform

import "golang.org/x/sys/unix"

func processUID() int { return unix.Getuid() }

func processGID() int { return unix.Getgid() }
