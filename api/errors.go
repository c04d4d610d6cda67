package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/Domenick1991/farehunter/internal/domain"
	"github.com/Domenick1991/farehunter/internal/report"
	"github.com/Domenick1991/farehunter/internal/repository"
	"github.com/gin-gonic/gin"
)

func writeError(c *gin.Context, err error) {
	status := http.StatusInternalServerError
	switch {
	case domain.IsValidation(err), errors.Is(err, report.ErrUnknownFormat):
		status = http.StatusBadRequest
	case errors.Is(err, repository.ErrNotFound):
		status = http.StatusNotFound
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

func queryInt(c *gin.Context, key string, def int) (int, bool) {
	raw := c.Query(key)
	if raw == "" {
		return def, true
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + key})
		return 0, false
	}
	return n, true
}
