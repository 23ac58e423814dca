package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"eventgate/internal/upstream"
)

const maxPhotoBytes = 5 << 20

// RegisterParticipant forwards the public multipart sign-up form. The photo
// is optional; when present it is size-capped before the upstream sees it.
func (h *Handler) RegisterParticipant(c *gin.Context) {
	reg := upstream.Registration{
		FullName:     c.PostForm("fullname"),
		MatricNumber: c.PostForm("matricnumber"),
		Email:        c.PostForm("email"),
		Department:   c.PostForm("department"),
		Gender:       c.PostForm("gender"),
		EventID:      c.PostForm("eventId"),
	}
	for name, value := range map[string]string{
		"fullname":     reg.FullName,
		"matricnumber": reg.MatricNumber,
		"email":        reg.Email,
		"department":   reg.Department,
		"gender":       reg.Gender,
		"eventId":      reg.EventID,
	} {
		if value == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": name + " is required"})
			return
		}
	}

	if file, err := c.FormFile("photo"); err == nil {
		if file.Size > maxPhotoBytes {
			c.JSON(http.StatusBadRequest, gin.H{"error": "photo exceeds the 5MB limit"})
			return
		}
		photo, err := file.Open()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "could not read photo"})
			return
		}
		defer photo.Close()
		reg.PhotoName = file.Filename
		reg.Photo = photo
	}

	if err := h.api.RegisterParticipant(c.Request.Context(), reg); err != nil {
		h.upstreamError(c, err, "registration failed")
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "registration successful, check your email for your QR code"})
}
