// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package lti

import (
	"errors"
	"fmt"
)

var (
	// ErrNotConfigured is returned while no valid workflow configuration is loaded.
	ErrNotConfigured = errors.New("lti: no workflow configured")
	// ErrPackageCreation is returned when the ingest service yields no package.
	ErrPackageCreation = errors.New("lti: unable to create media package")
	// ErrCaptionAttach is returned when captions cannot be stored.
	ErrCaptionAttach = errors.New("lti: unable to attach captions")
	// ErrEventNotFound is returned for unknown event ids.
	ErrEventNotFound = errors.New("lti: event not found")
	// ErrDeletionFailed is returned when the index reports a failed removal.
	ErrDeletionFailed = errors.New("lti: event deletion failed")
	// ErrMissingMedia is returned for an upload without a media stream.
	ErrMissingMedia = errors.New("lti: upload carries no media")
	// ErrUploadFailed matches every *UploadError.
	ErrUploadFailed = errors.New("lti: upload failed")
)

// Upload pipeline steps, in execution order.
const (
	StepCreatePackage  = "create_package"
	StepAttachCaptions = "attach_captions"
	StepResolveSeries  = "resolve_series"
	StepMergeMetadata  = "merge_metadata"
	StepStoreMetadata  = "store_metadata"
	StepAddTrack       = "add_track"
	StepSubmit         = "submit"
)

// UploadError reports the failed pipeline step. errors.Is(err,
// ErrUploadFailed) holds for every UploadError, and Unwrap yields the cause.
type UploadError struct {
	Step           string
	MediaPackageID string
	Err            error
}

func (e *UploadError) Error() string {
	return fmt.Sprintf("%v at %s: %v", ErrUploadFailed, e.Step, e.Err)
}

func (e *UploadError) Unwrap() error { return e.Err }

func (e *UploadError) Is(target error) bool { return target == ErrUploadFailed }
