package gateway

import (
	"errors"
	"io"
	"net/http"

	"github.com/example/shopcore/pkg/repository"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// envelope is the body of every response: data on success, error otherwise.
type envelope struct {
	OK    bool        `json:"ok"`
	Data  interface{} `json:"data,omitempty"`
	Error string      `json:"error,omitempty"`
}

func ok(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, envelope{OK: true, Data: data})
}

func bad(c *gin.Context, code int, msg string) {
	c.AbortWithStatusJSON(code, envelope{OK: false, Error: msg})
}

func statusFor(class repository.ErrorClass) int {
	switch class {
	case repository.ErrorClassValidation:
		return http.StatusBadRequest
	case repository.ErrorClassNotFound:
		return http.StatusNotFound
	case repository.ErrorClassConflict:
		return http.StatusConflict
	case repository.ErrorClassUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// fail maps err to a status code and writes the error envelope.
func (g *Gateway) fail(c *gin.Context, err error) {
	class := repository.ClassifyError(err)
	g.logFailure(c, class, err)
	bad(c, statusFor(class), err.Error())
}

// failInternal reports any error as 500, for endpoints without a finer contract.
func (g *Gateway) failInternal(c *gin.Context, err error) {
	g.logFailure(c, repository.ClassifyError(err), err)
	bad(c, http.StatusInternalServerError, err.Error())
}

func (g *Gateway) logFailure(c *gin.Context, class repository.ErrorClass, err error) {
	fields := []zap.Field{
		zap.String("request_id", c.GetString("request_id")),
		zap.String("path", c.FullPath()),
		zap.String("class", class.String()),
		zap.Error(err),
	}
	switch class {
	case repository.ErrorClassInternal, repository.ErrorClassUnavailable:
		g.logger.Error("Request failed", fields...)
	default:
		g.logger.Debug("Request rejected", fields...)
	}
}

// bindOptionalJSON decodes the body into dst; an empty body leaves dst as is.
func bindOptionalJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}
