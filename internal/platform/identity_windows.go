//go:build windows

package platform

func processUID() int { return -1 }

func processGID() int { return -1 }
