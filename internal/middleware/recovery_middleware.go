package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"github.com/GTDGit/gtd_backoffice/internal/utils"
)

// RecoveryMiddleware turns panics into the standard 500 envelope. The stack
// is logged and, when showDetail is set, the panic value is returned in
// error.detail.
func RecoveryMiddleware(showDetail bool) gin.HandlerFunc {
	return func(c *gin.Context) {
		defer func() {
			if r := recover(); r != nil {
				log.Error().
					Str("request_id", c.GetString("request_id")).
					Str("path", c.Request.URL.Path).
					Interface("panic", r).
					Str("stack", string(debug.Stack())).
					Msg("Panic recovered")

				info := &utils.ErrorInfo{Code: "INTERNAL_ERROR", Message: "Internal server error"}
				if showDetail {
					info.Detail = fmt.Sprint(r)
				}
				utils.ErrorWithInfo(c, http.StatusInternalServerError, "Internal server error", info)
				c.Abort()
			}
		}()
		c.Next()
	}
}
