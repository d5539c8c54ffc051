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

package builder

import (
	"fmt"
	"os"
	"time"

	"github.com/opencontainers/go-digest"

	"github.com/colbylwilliams/devbox-images/image"
)

// Status is the result of one image in a run.
type Status string

// Outcome statuses.
const (
	StatusSkipped   Status = "skipped"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// Notes recorded on skipped outcomes.
const (
	NoteUpToDate         = "gallery already has this version"
	NoteExecutionSkipped = "build inputs prepared, execution suppressed"
)

// Artifact is a generated backend input file.
type Artifact struct {
	Path   string        `json:"path"`
	Digest digest.Digest `json:"digest"`
}

// WriteArtifact writes data to path and returns the resulting Artifact.
// The file is left untouched when it already has identical content.
func WriteArtifact(path string, data []byte) (*Artifact, error) {
	dgst := digest.FromBytes(data)

	if existing, err := os.ReadFile(path); err == nil && digest.FromBytes(existing) == dgst {
		return &Artifact{Path: path, Digest: dgst}, nil
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return &Artifact{Path: path, Digest: dgst}, nil
}

// Outcome is the result of processing one image.
type Outcome struct {
	Image   string        `json:"image"`
	Builder image.Builder `json:"builder,omitempty"`
	Version string        `json:"version,omitempty"`
	Status  Status        `json:"status"`
	Note    string        `json:"note,omitempty"`
	// ErrorDetail is set iff Status is StatusFailed.
	ErrorDetail string `json:"error,omitempty"`
	// ExternalBuildID is set iff a cloud build was triggered.
	ExternalBuildID string        `json:"externalBuildId,omitempty"`
	Artifact        *Artifact     `json:"artifact,omitempty"`
	Duration        time.Duration `json:"duration"`
}

// Failed builds a failed Outcome for img from err.
func Failed(img *image.ResolvedImage, err error) Outcome {
	return Outcome{
		Image:       img.Name,
		Builder:     img.Builder,
		Version:     img.PublishVersion(),
		Status:      StatusFailed,
		ErrorDetail: err.Error(),
	}
}

// BuildReport aggregates the outcomes of a run in input order.
type BuildReport struct {
	RunID    string    `json:"runId"`
	Outcomes []Outcome `json:"outcomes"`
}

// Success is true iff no outcome failed.
func (r *BuildReport) Success() bool {
	return len(r.Failed()) == 0
}

// Failed returns the failed outcomes.
func (r *BuildReport) Failed() []Outcome {
	return r.filter(StatusFailed)
}

// Built returns the outcomes whose build succeeded.
func (r *BuildReport) Built() []Outcome {
	return r.filter(StatusSucceeded)
}

func (r *BuildReport) filter(status Status) []Outcome {
	var out []Outcome
	for _, o := range r.Outcomes {
		if o.Status == status {
			out = append(out, o)
		}
	}
	return out
}
