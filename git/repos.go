/*
Copyright © 2025 Jayson Grace <jayson.e.grace@gmail.com>

Permission is hereby granted, free of charge, to any person obtaining a copy
of this software and associated documentation files (the "Software"), to deal
in the Software without restriction, including without limitation the rights
to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
copies of the Software, and to permit persons to whom the Software is
furnished to do so, subject to the following conditions:

The above copyright notice and this permission notice shall be included in
all copies or substantial portions of the Software.

THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
THE SOFTWARE.
*/

package git

import (
	"fmt"
	"net/url"
	"strings"
)

// Repository providers recognized by ParseRepoURL.
const (
	ProviderGitHub = "github"
	ProviderDevOps = "devops"
)

// RepoInfo describes a source repository cloned onto an image.
type RepoInfo struct {
	Provider string `json:"provider"`
	URL      string `json:"url"`
	Org      string `json:"org"`
	Project  string `json:"project,omitempty"`
	Repo     string `json:"repo"`
	GitURL   string `json:"gitUrl"`
	Secret   string `json:"secret,omitempty"`
}

// ParseRepoURL parses a GitHub or Azure DevOps repository URL in HTTPS
// or SSH form. The result is lowercased and the URL carries no .git
// suffix or credentials.
func ParseRepoURL(raw string) (RepoInfo, error) {
	lower := strings.ToLower(strings.TrimSpace(raw))
	switch {
	case strings.Contains(lower, "github.com"):
		return parseGitHub(raw, lower)
	case strings.Contains(lower, "dev.azure.com"), strings.Contains(lower, "visualstudio.com"):
		return parseDevOps(raw, lower)
	}
	return RepoInfo{}, fmt.Errorf("%s is not a valid repository url", raw)
}

// segments normalizes SSH forms to HTTPS and returns the host and path
// segments.
func segments(s string) (string, []string, error) {
	s = strings.TrimSuffix(s, "/")
	s = strings.TrimSuffix(s, ".git")

	switch {
	case strings.HasPrefix(s, "git@ssh.dev.azure.com:v3/"):
		s = "https://dev.azure.com/" + strings.TrimPrefix(s, "git@ssh.dev.azure.com:v3/")
	case strings.HasPrefix(s, "git@"):
		s = "https://" + strings.Replace(strings.TrimPrefix(s, "git@"), ":", "/", 1)
	case strings.HasPrefix(s, "ssh://"):
		s = "https://" + strings.TrimPrefix(s, "ssh://")
	}

	u, err := url.Parse(s)
	if err != nil {
		return "", nil, err
	}
	var parts []string
	for _, p := range strings.Split(u.Path, "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return u.Hostname(), parts, nil
}

func parseGitHub(raw, lower string) (RepoInfo, error) {
	host, parts, err := segments(lower)
	if err != nil || !strings.HasSuffix(host, "github.com") || len(parts) < 2 {
		return RepoInfo{}, fmt.Errorf("%s is not a valid GitHub repository url", raw)
	}

	u := fmt.Sprintf("https://%s/%s/%s", host, parts[0], parts[1])
	return RepoInfo{
		Provider: ProviderGitHub,
		URL:      u,
		Org:      parts[0],
		Repo:     parts[1],
		GitURL:   u + ".git",
	}, nil
}

func parseDevOps(raw, lower string) (RepoInfo, error) {
	host, parts, err := segments(lower)
	if err != nil {
		return RepoInfo{}, fmt.Errorf("%s is not a valid Azure DevOps repository url", raw)
	}

	var prefix []string
	var org string
	switch {
	case host == "dev.azure.com" || strings.HasSuffix(host, ".dev.azure.com"):
		if len(parts) == 0 {
			return RepoInfo{}, fmt.Errorf("%s is not a valid Azure DevOps repository url", raw)
		}
		org, prefix, parts = parts[0], parts[:1], parts[1:]
	case strings.HasSuffix(host, ".visualstudio.com"):
		org = strings.TrimSuffix(host, ".visualstudio.com")
		if len(parts) > 0 && parts[0] == "defaultcollection" {
			prefix, parts = parts[:1], parts[1:]
		}
	default:
		return RepoInfo{}, fmt.Errorf("%s is not a valid Azure DevOps repository url", raw)
	}

	rest := make([]string, 0, len(parts))
	for _, p := range parts {
		if p != "_git" {
			rest = append(rest, p)
		}
	}
	if len(rest) < 2 {
		return RepoInfo{}, fmt.Errorf("%s is not a valid Azure DevOps repository url", raw)
	}
	project, repo := rest[0], rest[1]

	path := append(append([]string{}, prefix...), project, "_git", repo)
	u := "https://" + host + "/" + strings.Join(path, "/")
	return RepoInfo{
		Provider: ProviderDevOps,
		URL:      u,
		Org:      org,
		Project:  project,
		Repo:     repo,
		GitURL:   u + ".git",
	}, nil
}
