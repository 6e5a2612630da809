package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/go-blog/internal/domain/apperror"
	"github.com/oksasatya/go-blog/pkg/response"
)

// writeError maps the application error taxonomy onto the response envelope.
// Unclassified errors are logged and reported as 500 without details.
func writeError(c *gin.Context, logger *logrus.Logger, err error) {
	var ae *apperror.Error
	if !errors.As(err, &ae) {
		if logger != nil {
			logger.WithError(err).
				WithField("request_id", c.GetString("request_id")).
				WithField("path", c.FullPath()).
				Error("request failed")
		}
		response.Error[any](c, http.StatusInternalServerError, "internal server error", nil)
		return
	}

	switch ae.Kind {
	case apperror.KindValidation:
		details := map[string]string{}
		if ae.Field != "" {
			details[ae.Field] = ae.Message
		}
		response.ErrorWithMeta[any](c, http.StatusBadRequest, ae.Message, details, gin.H{"code": ae.Code})
	case apperror.KindForbidden:
		response.ErrorWithMeta[any](c, http.StatusForbidden, ae.Message, nil, gin.H{"code": ae.Code, "redirect": ae.Redirect})
	case apperror.KindNotFound:
		response.Error[any](c, http.StatusNotFound, ae.Message, nil)
	case apperror.KindUnauthorized:
		response.Error[any](c, http.StatusUnauthorized, ae.Message, nil)
	default:
		response.Error[any](c, http.StatusInternalServerError, "internal server error", nil)
	}
}
