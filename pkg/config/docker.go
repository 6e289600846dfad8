package config

import (
	"os"
	"strings"
	"sync"
)

// dockerHostAlias reaches the host machine from inside a container.
const dockerHostAlias = "host.docker.internal"

var (
	isDockerOnce   sync.Once
	isDockerResult bool
)

// IsRunningInDocker returns true if the process runs inside a Docker container,
// detected by the /.dockerenv file. The result is cached after the first call.
func IsRunningInDocker() bool {
	isDockerOnce.Do(func() {
		_, err := os.Stat("/.dockerenv")
		isDockerResult = err == nil
	})
	return isDockerResult
}

// ResolveHostForDocker rewrites loopback database hosts to the Docker host
// alias when running in a container, so a database on the developer's machine
// stays reachable. Other hosts are returned unchanged.
func ResolveHostForDocker(host string) string {
	return resolveLoopback(host, IsRunningInDocker())
}

func resolveLoopback(host string, inDocker bool) string {
	if !inDocker {
		return host
	}
	switch strings.ToLower(strings.TrimSpace(host)) {
	case "localhost", "127.0.0.1", "::1":
		return dockerHostAlias
	}
	return host
}
