package controllers

import (
	"fmt"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// streamAttachment copies r to the response as a file download. size may be -1 when unknown.
func streamAttachment(ctx *gin.Context, r io.ReadCloser, fileName, contentType string, size int64) {
	defer r.Close()
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	ctx.DataFromReader(http.StatusOK, size, contentType, r, map[string]string{
		"Content-Disposition": fmt.Sprintf("attachment; filename=%q", fileName),
	})
}
