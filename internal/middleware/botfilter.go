// Package middleware holds the gin middleware specific to the redirect and
// creation paths.
package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/mileusna/useragent"
)

// IsBotKey is the context key carrying the bot verdict for a request.
const IsBotKey = "is_bot"

// botPatterns are known crawler User-Agent substrings (lowercase) that the
// UA parser does not classify as bots.
var botPatterns = []string{
	"googlebot", "bingbot", "slurp", "duckduckbot",
	"baiduspider", "yandexbot", "facebookexternalhit",
	"twitterbot", "linkedinbot", "embedly",
	"quora link preview", "outbrain", "pinterest",
	"applebot", "semrushbot", "ahrefsbot", "mj12bot",
	"dotbot", "petalbot", "bytespider", "preview",
}

// BotFilter flags bot traffic on the context. Bots still get their redirect
// so link previews keep working; the handler skips analytics for them.
func BotFilter() gin.HandlerFunc {
	return func(c *gin.Context) {
		ua := c.Request.UserAgent()
		if ua == "" || useragent.Parse(ua).Bot || matchesBotPattern(strings.ToLower(ua)) {
			c.Set(IsBotKey, true)
		}
		c.Next()
	}
}

// IsBot reports the verdict set by BotFilter.
func IsBot(c *gin.Context) bool {
	return c.GetBool(IsBotKey)
}

func matchesBotPattern(ua string) bool {
	for _, pattern := range botPatterns {
		if strings.Contains(ua, pattern) {
			return true
		}
	}
	return false
}
