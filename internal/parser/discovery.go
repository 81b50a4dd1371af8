package parser

import (
	"os"
	"path/filepath"
)

// IsSessionLogFile reports whether name is one of the files
// ParseSession reads from a session directory.
func IsSessionLogFile(name string) bool {
	switch name {
	case eventsFileName, transcriptFileName, metadataFileName:
		return true
	}
	return false
}

// FindSessions returns all session directories under projectsDir.
// The expected layout is:
//
//	<projectsDir>/<project>/sessions/<session-id>/
//
// A missing projects directory yields an empty slice, not an error;
// that is the normal state before any sessions have been run.
func FindSessions(projectsDir string) []string {
	var sessions []string

	projects, err := os.ReadDir(projectsDir)
	if err != nil {
		return sessions
	}

	for _, project := range projects {
		if !project.IsDir() {
			continue
		}
		sessionsDir := filepath.Join(projectsDir, project.Name(), "sessions")
		entries, err := os.ReadDir(sessionsDir)
		if err != nil {
			continue
		}
		for _, entry := range entries {
			if entry.IsDir() {
				sessions = append(sessions, filepath.Join(sessionsDir, entry.Name()))
			}
		}
	}
	return sessions
}
