package handlers

import (
	"fmt"
	"mime/multipart"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/go-blog/pkg/response"
)

type upload struct {
	file multipart.File
	name string
}

// openUpload opens the multipart file in field, enforcing maxBytes. On
// failure it writes the error response and returns false.
func openUpload(c *gin.Context, field string, maxBytes int64) (*upload, bool) {
	if maxBytes > 0 {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes+(1<<20))
	}
	fh, err := c.FormFile(field)
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid upload", map[string]string{field: "file is required"})
		return nil, false
	}
	if maxBytes > 0 && fh.Size > maxBytes {
		response.Error[any](c, http.StatusBadRequest, "invalid upload",
			map[string]string{field: fmt.Sprintf("file must be at most %d bytes", maxBytes)})
		return nil, false
	}
	f, err := fh.Open()
	if err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid upload", map[string]string{field: "cannot read file"})
		return nil, false
	}
	return &upload{file: f, name: fh.Filename}, true
}
