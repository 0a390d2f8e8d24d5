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

package core

import "errors"

// Domain validation errors
var (
	// ErrInvalidRecord indicates a Record failed validation.
	ErrInvalidRecord = errors.New("invalid record")

	// ErrInvalidParams indicates SearchParams failed validation.
	ErrInvalidParams = errors.New("invalid search params")

	// ErrInvalidGrid indicates a Grid failed validation.
	ErrInvalidGrid = errors.New("invalid grid")

	// ErrEmptyText indicates the Text field is empty.
	ErrEmptyText = errors.New("text cannot be empty")

	// ErrEmptyVector indicates the Vector field is empty.
	ErrEmptyVector = errors.New("vector cannot be empty")

	// ErrInvalidLimit indicates a non-positive result limit.
	ErrInvalidLimit = errors.New("limit must be greater than 0")

	// ErrInvalidOversampling indicates an oversampling factor below 1.
	ErrInvalidOversampling = errors.New("oversampling must be 0 (default) or at least 1")

	// ErrTooManyLabels indicates a run carries more than MaxRunLabels labels.
	ErrTooManyLabels = errors.New("too many run labels")

	// ErrTooManyCells indicates a run or grid exceeds MaxRunCells cells.
	ErrTooManyCells = errors.New("too many run cells")
)
