package analysis

import "errors"

// Sentinel errors for the analysis service layer.
var (
	ErrNotFound     = errors.New("analysis result not found")
	ErrNoCampaign   = errors.New("campaign not found")
	ErrInvalidInput = errors.New("invalid analysis request")
)
