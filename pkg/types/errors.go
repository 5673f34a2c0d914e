// Copyright (c) 2023-2025 RapidaAI
// Author: Prashant Srivastav <prashant@rapida.ai>
//
// Licensed under GPL-2.0 with Rapida Additional Terms.
// See LICENSE.md or contact sales@rapida.ai for commercial usage.
package types

import "errors"

// Shared failure taxonomy. Components wrap these with fmt.Errorf("%w") and
// callers branch with errors.Is.
var (
	// Device layer.
	ErrPermissionDenied = errors.New("device permission denied")
	ErrDeviceNotFound   = errors.New("device not found")
	ErrDeviceBusy       = errors.New("device busy")

	// Session / upload layer.
	ErrSessionNotFound    = errors.New("interview session not found")
	ErrAlreadyInProgress  = errors.New("interview already in progress")
	ErrPayloadTooLarge    = errors.New("clip exceeds upload size ceiling")
	ErrNetworkFailure     = errors.New("network failure")
	ErrServiceUnavailable = errors.New("service unavailable")

	// Request validation.
	ErrValidation = errors.New("validation failed")
)
