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

import (
	"fmt"
)

// ValidateRecord validates a Record before upload.
//
// Validation rules:
//   - Text must not be empty (it is what searches are checked against)
//   - Vector must not be empty
//
// NOT validated:
//   - ID (0 is a valid row position)
//   - Vector dimension (checked against the collection by the caller)
func ValidateRecord(record *Record) error {
	if record == nil {
		return fmt.Errorf("%w: record is nil", ErrInvalidRecord)
	}

	if record.Text == "" {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyText)
	}

	if len(record.Vector) == 0 {
		return fmt.Errorf("%w: %w", ErrInvalidRecord, ErrEmptyVector)
	}

	return nil
}

// ValidateSearchParams validates a single search configuration.
func ValidateSearchParams(params SearchParams) error {
	if params.Limit <= 0 {
		return fmt.Errorf("%w: %w (got %d)", ErrInvalidParams, ErrInvalidLimit, params.Limit)
	}
	if err := ValidateOversampling(params.Oversampling); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParams, err)
	}
	return nil
}

// ValidateOversampling checks an oversampling factor.
func ValidateOversampling(oversampling float64) error {
	if oversampling != 0 && oversampling < 1 {
		return fmt.Errorf("%w (got %.2f)", ErrInvalidOversampling, oversampling)
	}
	return nil
}

// ValidateGrid validates that every dimension of the grid is non-empty and
// that every cell it expands to is a valid SearchParams.
func ValidateGrid(grid Grid) error {
	if len(grid.Oversampling) == 0 {
		return fmt.Errorf("%w: no oversampling values", ErrInvalidGrid)
	}
	if len(grid.Rescore) == 0 {
		return fmt.Errorf("%w: no rescore values", ErrInvalidGrid)
	}
	if len(grid.Limits) == 0 {
		return fmt.Errorf("%w: no limits", ErrInvalidGrid)
	}
	for _, limit := range grid.Limits {
		if limit <= 0 {
			return fmt.Errorf("%w: %w (got %d)", ErrInvalidGrid, ErrInvalidLimit, limit)
		}
	}
	for _, oversampling := range grid.Oversampling {
		if err := ValidateOversampling(oversampling); err != nil {
			return fmt.Errorf("%w: %w", ErrInvalidGrid, err)
		}
	}
	if err := ValidateCellsLength(len(grid.Oversampling) * len(grid.Rescore) * len(grid.Limits)); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidGrid, err)
	}
	return nil
}

// Upper bounds on what a stored Run may hold. Decoding rejects lengths above
// these before allocating.
const (
	MaxRunLabels = 1024
	MaxRunCells  = 1 << 16
)

// ValidateLabelsLength checks the number of labels on a run.
func ValidateLabelsLength(length int) error {
	if length > MaxRunLabels {
		return fmt.Errorf("%w: %d > %d", ErrTooManyLabels, length, MaxRunLabels)
	}
	return nil
}

// ValidateCellsLength checks the number of cells in a run.
func ValidateCellsLength(length int) error {
	if length > MaxRunCells {
		return fmt.Errorf("%w: %d > %d", ErrTooManyCells, length, MaxRunCells)
	}
	return nil
}
