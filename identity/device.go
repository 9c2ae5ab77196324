// Package identity manages this host's persistent device identifier and the
// audit metadata envelope attached to every authenticated remote call.
package identity

import (
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

const (
	configDirName = ".axion"
	deviceIDFile  = "device-id"
	dirMode       = 0o700
	fileMode      = 0o600
)

var (
	cacheOnce sync.Once
	cachedID  string
	cacheErr  error
)

// DeviceID returns this host's persistent device identifier, generating and
// persisting one on first use. The result is cached in memory for the
// process lifetime; use ResetCache in tests that need a fresh read.
func DeviceID() (string, error) {
	cacheOnce.Do(func() {
		cachedID, cacheErr = loadOrGenerate()
	})
	return cachedID, cacheErr
}

// ResetCache clears the in-memory device-ID cache, forcing the next
// DeviceID call to re-read (or regenerate) the on-disk identifier.
func ResetCache() {
	cacheOnce = sync.Once{}
	cachedID = ""
	cacheErr = nil
}

func configDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home directory: %w", err)
	}
	return filepath.Join(home, configDirName), nil
}

func loadOrGenerate() (string, error) {
	dir, err := configDir()
	if err != nil {
		return "", err
	}
	path := filepath.Join(dir, deviceIDFile)

	if raw, err := os.ReadFile(path); err == nil {
		if id, parseErr := uuid.Parse(strings.TrimSpace(string(raw))); parseErr == nil {
			return id.String(), nil
		}
		// Malformed content falls through to regeneration.
	}

	id := uuid.New().String()
	if err := os.MkdirAll(dir, dirMode); err != nil {
		return "", fmt.Errorf("create device identity directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(id), fileMode); err != nil {
		return "", fmt.Errorf("write device identity file: %w", err)
	}
	return id, nil
}

// AuditMetadata is attached to every authenticated remote call as the
// X-Axion-Metadata header. It carries no personally identifying
// information beyond the machine-generated device ID.
type AuditMetadata struct {
	DeviceID   string `json:"device_id"`
	Hostname   string `json:"hostname"`
	OS         string `json:"os"`
	Arch       string `json:"arch"`
	OSRelease  string `json:"os_release"`
	GoVersion  string `json:"go_version"`
	CLIVersion string `json:"cli_version"`
	Timestamp  string `json:"timestamp"`
}

// Metadata builds the audit envelope for the current host and process.
func Metadata(cliVersion string) AuditMetadata {
	deviceID, _ := DeviceID()
	hostname, _ := os.Hostname()
	return AuditMetadata{
		DeviceID:   deviceID,
		Hostname:   hostname,
		OS:         runtime.GOOS,
		Arch:       runtime.GOARCH,
		OSRelease:  osRelease(),
		GoVersion:  runtime.Version(),
		CLIVersion: cliVersion,
		Timestamp:  time.Now().UTC().Format(time.RFC3339),
	}
}

// osRelease makes a best-effort attempt at a human-readable OS release
// string. A lookup failure is not an error condition worth surfacing to the
// caller: the field is diagnostic, not load-bearing, so any miss just
// leaves it empty.
func osRelease() string {
	switch runtime.GOOS {
	case "linux":
		if data, err := os.ReadFile("/etc/os-release"); err == nil {
			for _, line := range strings.Split(string(data), "\n") {
				if name, ok := strings.CutPrefix(line, "PRETTY_NAME="); ok {
					return strings.Trim(name, `"`)
				}
			}
		}
		if data, err := os.ReadFile("/proc/sys/kernel/osrelease"); err == nil {
			return strings.TrimSpace(string(data))
		}
	case "darwin":
		if out, err := exec.Command("sw_vers", "-productVersion").Output(); err == nil {
			return strings.TrimSpace(string(out))
		}
	case "windows":
		if out, err := exec.Command("cmd", "/c", "ver").Output(); err == nil {
			return strings.TrimSpace(string(out))
		}
	}
	return ""
}

// Header serialises m as the JSON payload of the X-Axion-Metadata header.
func (m AuditMetadata) Header() (string, error) {
	data, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("marshal audit metadata: %w", err)
	}
	return string(data), nil
}
