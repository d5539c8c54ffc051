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

// Package builder turns resolved image descriptors into builds.
//
// # Architecture
//
// The package is organized into several layers:
//
//   - Interfaces (builder.go): the Adapter capability shared by every backend
//   - Executors (orchestrator.go): inline and bounded-pool execution of units of work
//   - Dispatcher (dispatcher.go): routes eligible images to their adapter and collects outcomes
//   - Service Layer (service.go): resolve, apply policy and dispatch for one run
//   - Results (report.go): per-image Outcome and the aggregate BuildReport
//
// # Key Concepts
//
// Adapter: one implementation per backend. Prepare writes the backend input
// file into the image directory; Execute runs the build to a terminal state:
//
//	type Adapter interface {
//	    Name() string
//	    Prepare(ctx context.Context, img *image.ResolvedImage) (*Artifact, error)
//	    Execute(ctx context.Context, img *image.ResolvedImage) Outcome
//	}
//
// Implementations:
//   - packer.Adapter: local builds with packer init and packer build
//   - aib.Adapter: Azure Image Builder through a resource-group deployment
//
// Dispatcher: one dispatch algorithm for both modes. Sequential runs use an
// InlineExecutor and concurrent runs a PoolExecutor; outcomes are stored by
// input index so the report order never depends on completion order:
//
//	d := builder.NewDispatcher(map[image.Builder]builder.Adapter{
//	    image.BuilderLocal: packerAdapter,
//	    image.BuilderCloud: aibAdapter,
//	})
//	report := d.Run(ctx, images, builder.Options{Concurrent: true, ExecuteBuild: true})
//
// # Import Cycles
//
// Backend packages import builder for Outcome and Artifact, so the service
// layer receives adapters as values and never imports a backend.
package builder

import (
	"context"

	"github.com/colbylwilliams/devbox-images/image"
)

// Adapter is a build backend.
//
// Implementations must be safe for concurrent use: the dispatcher calls
// Prepare and Execute for different images from multiple goroutines. Each
// call only writes inside the image's own directory.
type Adapter interface {
	// Name identifies the backend in logs and outcomes.
	Name() string

	// Prepare writes the backend input file for img. Calling it twice with
	// unchanged inputs must produce a byte-identical file.
	Prepare(ctx context.Context, img *image.ResolvedImage) (*Artifact, error)

	// Execute runs the build and returns once its terminal state is known.
	// Failures are reported in the Outcome, never panicked or returned.
	Execute(ctx context.Context, img *image.ResolvedImage) Outcome
}
