package repository

import (
	"fmt"

	"github.com/okian/scorecard/internal/domain/model"
)

// Sentinel kinds for store errors.
var (
	ErrNotFound = fmt.Errorf("record %w", model.ErrNotFound)
	ErrClosed   = fmt.Errorf("store closed: %w", model.ErrStore)
)
