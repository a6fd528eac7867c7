package handlers

import (
	"Medicare/apperrors"
	"Medicare/models"
	"Medicare/services"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/pkg/errors"
)

// MaxDocumentSize caps an uploaded document.
const MaxDocumentSize = 20 << 20

func parseID(c *gin.Context, name string) (uint, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.Validation("invalid %s %q", name, c.Param(name))
	}
	return uint(id), nil
}

// readDocument returns the "document" part of a multipart form, or nil
// when there is none.
func readDocument(c *gin.Context) (*services.Document, error) {
	header, err := c.FormFile("document")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, apperrors.Validation("document: %v", err)
	}
	if header.Size > MaxDocumentSize {
		return nil, apperrors.Validation("document is larger than %d bytes", MaxDocumentSize)
	}

	f, err := header.Open()
	if err != nil {
		return nil, apperrors.Validation("document: %v", err)
	}
	defer f.Close()

	data, err := io.ReadAll(io.LimitReader(f, MaxDocumentSize+1))
	if err != nil {
		return nil, apperrors.Validation("document: %v", err)
	}
	return &services.Document{Filename: header.Filename, Data: data}, nil
}

// snapshotFromForm reads the snapshot form fields. Missing fields stay
// zero.
func snapshotFromForm(c *gin.Context) (models.Snapshot, error) {
	s := models.Snapshot{
		Name:             c.PostForm("name"),
		Contact:          c.PostForm("contact"),
		DateOfBirth:      c.PostForm("dob"),
		Symptoms:         c.PostForm("symptoms"),
		Allergies:        c.PostForm("allergies"),
		PreviousDiseases: c.PostForm("previous_diseases"),
		Weight:           c.PostForm("weight"),
		Height:           c.PostForm("height"),
		Medications:      c.PostForm("medications"),
	}
	if raw := strings.TrimSpace(c.PostForm("age")); raw != "" {
		age, err := strconv.Atoi(raw)
		if err != nil {
			return s, apperrors.Validation("age %q is not a number", raw)
		}
		s.Age = age
	}
	return s, nil
}

func formUint(c *gin.Context, name string) (uint, error) {
	raw := strings.TrimSpace(c.PostForm(name))
	if raw == "" {
		return 0, nil
	}
	v, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperrors.Validation("%s %q is not a number", name, raw)
	}
	return uint(v), nil
}
