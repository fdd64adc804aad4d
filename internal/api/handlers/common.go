// Package handlers implements the JSON API consumed by the dataroom frontend.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"reflect"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/pysugar/dataroom/internal/api/middleware"
	"github.com/pysugar/dataroom/internal/apperr"
	"github.com/pysugar/dataroom/internal/db/models"
	"github.com/pysugar/dataroom/internal/drive"
	"github.com/pysugar/dataroom/internal/logging"
	"github.com/pysugar/dataroom/internal/util"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

// DriveClient is the part of drive.Client the handlers use.
type DriveClient interface {
	ListFiles(ctx context.Context, accessToken string, opts drive.ListOptions) (*drive.ListResult, error)
	GetMetadata(ctx context.Context, accessToken, fileID string) (*drive.Metadata, error)
	Download(ctx context.Context, accessToken, fileID, mimeType string) ([]byte, error)
}

// TokenSource yields a usable access token for a linked Google account.
type TokenSource interface {
	EnsureValidAccessToken(ctx context.Context, acct *models.OAuthAccount) (string, error)
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// decodeBody reads a JSON body into dst and runs struct validation.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return apperr.New(apperr.CodeValidation, "Request body is required")
		}
		return apperr.Wrap(err, apperr.CodeValidation, "Invalid JSON body")
	}
	if err := validate.Struct(dst); err != nil {
		return validationError(err)
	}
	return nil
}

func validationError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return apperr.Wrap(err, apperr.CodeValidation, "Invalid request")
	}
	fields := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		fields = append(fields, fe.Field())
	}
	if len(fields) == 1 {
		return apperr.New(apperr.CodeValidation, fields[0]+" is required")
	}
	return apperr.New(apperr.CodeValidation, strings.Join(fields, " and ")+" are required")
}

// writeError renders err. Unexpected errors are logged with the operation and
// answered with fallbackCode and a generic message.
func writeError(w http.ResponseWriter, r *http.Request, op string, err error, fallbackCode string) {
	log := logging.FromContext(r.Context()).WithField("op", op).WithError(err)
	if user := middleware.CurrentUser(r.Context()); user != nil {
		log = log.WithField("user_id", user.ID)
	}
	if e, ok := apperr.As(err); ok {
		if e.Status >= http.StatusInternalServerError {
			if e.Err != nil {
				log = log.WithField("cause", util.TruncateLog(e.Err.Error(), util.DefaultLogMaxLen))
			}
			log.WithField("code", e.Code).Error("request failed")
		}
		apperr.Write(w, e, fallbackCode)
		return
	}
	log.Error("unexpected error")
	apperr.Write(w, err, fallbackCode)
}
