package lifecycle

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"syscall"
)

// Records pid under role in the shared pid file, keeping other roles
func RecordPID(path, role string, pid int) (err error) {
	pids, err := ReadPIDs(path)
	if err != nil {
		return
	}
	pids[role] = pid

	data, err := json.MarshalIndent(pids, "", "  ")
	if err != nil {
		err = fmt.Errorf("failed encoding pid file: %w", err)
		return
	}
	err = os.WriteFile(path, data, 0644)
	if err != nil {
		err = fmt.Errorf("failed writing pid file: %w", err)
	}
	return
}

// Roles and pids from the pid file. Missing or unreadable content is empty.
func ReadPIDs(path string) (pids map[string]int, err error) {
	pids = make(map[string]int)

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			err = nil
			return
		}
		err = fmt.Errorf("failed reading pid file: %w", err)
		return
	}

	// Corrupt file is treated as empty
	if json.Unmarshal(data, &pids) != nil {
		pids = make(map[string]int)
	}
	return
}

// Sends SIGTERM to every recorded process except skipRole
func TerminateOthers(path, skipRole string) (terminated map[string]int, failed map[string]int, err error) {
	pids, err := ReadPIDs(path)
	if err != nil {
		return
	}

	terminated = make(map[string]int)
	failed = make(map[string]int)
	for role, pid := range pids {
		if role == skipRole {
			continue
		}
		if pid <= 0 || pid == os.Getpid() {
			failed[role] = pid
			continue
		}
		if syscall.Kill(pid, syscall.SIGTERM) != nil {
			failed[role] = pid
			continue
		}
		terminated[role] = pid
	}
	return
}
