package middleware

import (
	"net/http"
	"slices"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
)

var (
	corsMethods = []string{
		http.MethodGet,
		http.MethodPost,
		http.MethodPut,
		http.MethodDelete,
		http.MethodOptions,
	}
	corsHeaders = []string{"authorization", "x-client-info", "apikey", "content-type"}
)

// CORS answers preflight requests from any origin. Only trustedOrigins (the
// dashboard origins return URLs may point at) get credentialed responses, so
// the session cookie that binds an authorization attempt to the browser is
// never readable cross-site from anywhere else.
func CORS(trustedOrigins []string) gin.HandlerFunc {
	trusted := make([]string, 0, len(trustedOrigins))
	for _, o := range trustedOrigins {
		trusted = append(trusted, strings.ToLower(strings.TrimRight(o, "/")))
	}

	public := cors.New(cors.Config{
		AllowAllOrigins: true,
		AllowMethods:    corsMethods,
		AllowHeaders:    corsHeaders,
		MaxAge:          12 * time.Hour,
	})
	if len(trusted) == 0 {
		return public
	}

	credentialed := cors.New(cors.Config{
		AllowOrigins:     trusted,
		AllowMethods:     corsMethods,
		AllowHeaders:     corsHeaders,
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})

	return func(c *gin.Context) {
		origin := strings.ToLower(c.GetHeader("Origin"))
		if origin != "" && slices.Contains(trusted, origin) {
			credentialed(c)
			return
		}
		public(c)
	}
}
