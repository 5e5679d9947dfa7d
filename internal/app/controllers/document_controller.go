package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/placeintern/backend/internal/app/models"
	"github.com/placeintern/backend/internal/app/models/dto"
	"github.com/placeintern/backend/internal/app/services"
	"github.com/placeintern/backend/internal/middleware"
)

// DocumentController handles student document uploads and verification
type DocumentController struct {
	documentService *services.DocumentService
}

// NewDocumentController creates a new DocumentController
func NewDocumentController(documentService *services.DocumentService) *DocumentController {
	return &DocumentController{documentService: documentService}
}

// Upload stores a document for the calling student
// @Summary Upload document
// @Tags documents
// @Accept multipart/form-data
// @Produce json
// @Security BearerAuth
// @Param file formData file true "File (pdf, jpg, png)"
// @Param documentType formData string true "Document type" Enums(OFFER_LETTER, NOC, JOINING_REPORT, COMPLETION_CERTIFICATE, OTHER)
// @Success 201 {object} dto.APIResponse{data=models.Document} "Document uploaded"
// @Failure 400 {object} dto.ErrorResponse "Missing file, wrong type or file too large"
// @Router /student/documents [post]
func (c *DocumentController) Upload(ctx *gin.Context) {
	fileHeader, err := ctx.FormFile("file")
	if err != nil {
		ctx.AbortWithStatusJSON(http.StatusBadRequest, dto.NewErrorResponse(
			dto.NewErrorDetail(dto.ErrorCodeValidationFailed, "File is required").WithDetails(err.Error())))
		return
	}

	doc, err := c.documentService.Upload(ctx, middleware.ActorFrom(ctx), models.DocumentType(ctx.PostForm("documentType")), fileHeader)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusCreated, dto.NewSuccessResponse(doc, "Document uploaded"))
}

// ListMine lists the calling student's documents
// @Summary List own documents
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.APIResponse{data=[]models.Document} "Documents"
// @Router /student/documents [get]
func (c *DocumentController) ListMine(ctx *gin.Context) {
	docs, err := c.documentService.List(ctx, middleware.ActorFrom(ctx), 0)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(docs, ""))
}

// ListForStudent lists a student's documents
// @Summary List student documents
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param id path int true "Student ID"
// @Success 200 {object} dto.APIResponse{data=[]models.Document} "Documents"
// @Failure 403 {object} dto.ErrorResponse "Student is outside the caller's scope"
// @Router /principal/students/{id}/documents [get]
// @Router /faculty/mentees/{id}/documents [get]
func (c *DocumentController) ListForStudent(ctx *gin.Context) {
	studentID, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	docs, err := c.documentService.List(ctx, middleware.ActorFrom(ctx), studentID)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(docs, ""))
}

// Download streams a document
// @Summary Download document
// @Tags documents
// @Produce octet-stream
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {file} file "Document content"
// @Failure 404 {object} dto.ErrorResponse "Document not found"
// @Router /shared/documents/{id}/download [get]
func (c *DocumentController) Download(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	doc, rc, err := c.documentService.Open(ctx, middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	streamAttachment(ctx, rc, doc.FileName, doc.MimeType, doc.FileSize)
}

// Verify marks a document as verified
// @Summary Verify document
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} dto.APIResponse{data=models.Document} "Document verified"
// @Failure 409 {object} dto.ErrorResponse "Document already verified"
// @Router /faculty/documents/{id}/verify [post]
// @Router /principal/documents/{id}/verify [post]
func (c *DocumentController) Verify(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}

	doc, err := c.documentService.Verify(ctx, middleware.ActorFrom(ctx), id)
	if err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(doc, "Document verified"))
}

// Delete removes an unverified document of the caller
// @Summary Delete document
// @Tags documents
// @Produce json
// @Security BearerAuth
// @Param id path int true "Document ID"
// @Success 200 {object} dto.APIResponse "Document deleted"
// @Failure 409 {object} dto.ErrorResponse "Verified documents cannot be deleted"
// @Router /student/documents/{id} [delete]
func (c *DocumentController) Delete(ctx *gin.Context) {
	id, ok := parseIDParam(ctx, "id")
	if !ok {
		return
	}
	if err := c.documentService.Delete(ctx, middleware.ActorFrom(ctx), id); err != nil {
		middleware.HandleAPIError(ctx, err)
		return
	}
	ctx.JSON(http.StatusOK, dto.NewSuccessResponse(nil, "Document deleted"))
}
