// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	xglog "github.com/ManuGH/lticast/internal/log"
	"github.com/ManuGH/lticast/internal/lti"
	"github.com/ManuGH/lticast/internal/metadata"
)

// maxFieldBytes bounds a single non-file form field; caption files are the
// largest expected value.
const maxFieldBytes = 4 << 20

// uploadForm collects the text fields that precede the media part.
type uploadForm struct {
	eventID    string
	seriesID   string
	seriesName string
	captions   string
	metadata   string
}

// handleUpsert reads the multipart body as a stream. Text fields must come
// before the file part; the file part is handed to the service unread so the
// media never sits in memory.
func (s *Server) handleUpsert(w http.ResponseWriter, r *http.Request) {
	if s.cfg.MaxUploadBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)
	}
	mr, err := r.MultipartReader()
	if err != nil {
		writeError(w, r, badRequest("expected a multipart/form-data body: %v", err))
		return
	}

	var form uploadForm
	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			writeError(w, r, multipartError(err))
			return
		}

		if part.FileName() != "" {
			s.upsert(w, r, form, part)
			_ = part.Close()
			return
		}

		err = form.set(part)
		_ = part.Close()
		if err != nil {
			writeError(w, r, err)
			return
		}
	}

	if strings.TrimSpace(form.eventID) == "" {
		writeError(w, r, badRequest("no media file in upload"))
		return
	}
	s.upsert(w, r, form, nil)
}

func (s *Server) upsert(w http.ResponseWriter, r *http.Request, form uploadForm, media *multipart.Part) {
	payload, err := metadata.ParsePayload([]byte(form.metadata))
	if err != nil {
		writeError(w, r, err)
		return
	}

	u := lti.Upload{
		Captions:   form.captions,
		SeriesID:   form.seriesID,
		SeriesName: form.seriesName,
		Metadata:   payload,
	}
	if media != nil {
		u.Media = media
		u.SourceName = media.FileName()
	}

	id, err := s.svc.UpsertEvent(r.Context(), form.eventID, u)
	if err != nil {
		writeError(w, r, err)
		return
	}

	xglog.FromContext(r.Context()).Info().
		Str(xglog.FieldEvent, "upload.accepted").
		Str(xglog.FieldEventID, id).
		Bool("update", strings.TrimSpace(form.eventID) != "").
		Msg("upload accepted")

	status := http.StatusCreated
	if strings.TrimSpace(form.eventID) != "" {
		status = http.StatusOK
	}
	writeJSON(w, status, map[string]string{"eventId": id})
}

func (f *uploadForm) set(part *multipart.Part) error {
	var dst *string
	switch part.FormName() {
	case "eventId":
		dst = &f.eventID
	case "isPartOf":
		dst = &f.seriesID
	case "seriesName":
		dst = &f.seriesName
	case "captions":
		dst = &f.captions
	case "metadata":
		dst = &f.metadata
	default:
		_, err := io.Copy(io.Discard, io.LimitReader(part, maxFieldBytes))
		return multipartError(err)
	}

	data, err := io.ReadAll(io.LimitReader(part, maxFieldBytes+1))
	if err != nil {
		return multipartError(err)
	}
	if len(data) > maxFieldBytes {
		return badRequest("form field %q exceeds %d bytes", part.FormName(), maxFieldBytes)
	}
	*dst = string(data)
	return nil
}

// multipartError keeps body size violations distinguishable from malformed input.
func multipartError(err error) error {
	if err == nil {
		return nil
	}
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return err
	}
	return badRequest("malformed multipart body: %v", err)
}

func badRequest(format string, args ...any) error {
	return fmt.Errorf("%w: %s", errBadRequest, fmt.Sprintf(format, args...))
}
