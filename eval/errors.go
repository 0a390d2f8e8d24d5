// Copyright 2025 Poiesic Systems
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package eval

import "errors"

var (
	// ErrCollectionRequired is returned when a collection is not provided.
	ErrCollectionRequired = errors.New("collection required")

	// ErrNoQueries is returned when there is nothing to evaluate.
	ErrNoQueries = errors.New("no queries")

	// ErrAllQueriesFailed is returned when every search call of a cell failed.
	ErrAllQueriesFailed = errors.New("all queries failed")

	// ErrInvalidParallelism is returned for a parallelism below 1.
	ErrInvalidParallelism = errors.New("parallelism must be at least 1")

	// ErrInvalidRateLimit is returned for a non-positive rate or burst.
	ErrInvalidRateLimit = errors.New("rate limit and burst must be positive")
)
