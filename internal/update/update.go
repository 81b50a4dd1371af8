// Package update checks GitHub releases for a newer version of the
// CLI. It only reports availability; installation is left to the
// user's package manager.
package update

import (
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/mod/semver"
)

const (
	defaultAPIURL = "https://api.github.com/repos/ampdev/amplifier-insights/releases/latest"
	cacheFileName = "update_check.json"
	cacheDuration = 1 * time.Hour
)

// apiURL is a variable so tests can point it at a local server.
var apiURL = defaultAPIURL

var httpClient = &http.Client{Timeout: 10 * time.Second}

// Release is the subset of the GitHub release payload we read.
type Release struct {
	TagName string `json:"tag_name"`
	HTMLURL string `json:"html_url"`
}

// Info describes an available update.
type Info struct {
	CurrentVersion string
	LatestVersion  string
	URL            string
}

type cachedCheck struct {
	CheckedAt time.Time `json:"checked_at"`
	Version   string    `json:"version"`
	URL       string    `json:"url"`
}

// Check reports whether a newer release exists. It returns nil Info
// when the current version is up to date. Results are cached for an
// hour in cacheDir to avoid hammering the GitHub API; force bypasses
// the cache. Dev builds always report the latest release.
func Check(currentVersion string, force bool, cacheDir string) (*Info, error) {
	clean := normalize(currentVersion)
	dev := IsDevBuild(currentVersion)

	latest, url, fromCache := "", "", false
	if !force {
		if c, ok := readCache(cacheDir); ok {
			latest, url, fromCache = c.Version, c.URL, true
		}
	}

	if !fromCache {
		release, err := fetchLatestRelease()
		if err != nil {
			return nil, fmt.Errorf("checking for updates: %w", err)
		}
		latest, url = release.TagName, release.HTMLURL
		writeCache(cacheDir, latest, url)
	}

	if !dev && !isNewer(latest, clean) {
		return nil, nil
	}
	return &Info{
		CurrentVersion: currentVersion,
		LatestVersion:  strings.TrimPrefix(latest, "v"),
		URL:            url,
	}, nil
}

// IsDevBuild reports whether the version string marks an unreleased
// build.
func IsDevBuild(version string) bool {
	v := strings.TrimPrefix(version, "v")
	return v == "" || v == "dev" || strings.HasSuffix(v, "-dev")
}

// isNewer compares two version strings semantically.
func isNewer(latest, current string) bool {
	return semver.Compare(normalize(latest), normalize(current)) > 0
}

// normalize produces a canonical "vX.Y.Z" string for semver.Compare.
func normalize(version string) string {
	v := strings.TrimPrefix(strings.TrimSpace(version), "v")
	if v == "" {
		return "v0.0.0"
	}
	return "v" + v
}

func fetchLatestRelease() (Release, error) {
	resp, err := httpClient.Get(apiURL)
	if err != nil {
		return Release{}, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return Release{}, fmt.Errorf(
			"unexpected status %d from release API", resp.StatusCode,
		)
	}

	var release Release
	if err := json.NewDecoder(resp.Body).Decode(&release); err != nil {
		return Release{}, fmt.Errorf("decoding release: %w", err)
	}
	if release.TagName == "" {
		return Release{}, fmt.Errorf("release has no tag name")
	}
	return release, nil
}

func cachePath(cacheDir string) string {
	return filepath.Join(cacheDir, cacheFileName)
}

func readCache(cacheDir string) (cachedCheck, bool) {
	data, err := os.ReadFile(cachePath(cacheDir))
	if err != nil {
		return cachedCheck{}, false
	}
	var c cachedCheck
	if err := json.Unmarshal(data, &c); err != nil {
		return cachedCheck{}, false
	}
	if time.Since(c.CheckedAt) > cacheDuration || c.Version == "" {
		return cachedCheck{}, false
	}
	return c, true
}

func writeCache(cacheDir string, version, url string) {
	c := cachedCheck{CheckedAt: time.Now(), Version: version, URL: url}
	data, err := json.Marshal(c)
	if err != nil {
		return
	}
	// Best effort; a failed cache write never fails the check.
	_ = os.WriteFile(cachePath(cacheDir), data, 0o644)
}
