package middleware

import (
	"riteswipe-api/internal/apperr"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

// ErrorHandler turns the first error a handler attached with c.Error into
// the JSON error response. Internal causes are logged and, unless detail is
// set, hidden from the client.
func ErrorHandler(log *logrus.Entry, detail bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}
		err := c.Errors[0].Err
		status := apperr.StatusCode(err)
		if apperr.KindOf(err) == apperr.KindInternal {
			log.WithError(err).WithFields(logrus.Fields{
				"method": c.Request.Method,
				"path":   c.FullPath(),
			}).Error("request failed")
		}
		c.JSON(status, gin.H{"error": apperr.PublicMessage(err, detail)})
	}
}
