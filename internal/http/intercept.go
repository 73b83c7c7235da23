package http

import (
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/mrlokans/mangaslayer/internal/intercept"
)

// CacheHeader tells the client whether a resource came from the offline cache.
const CacheHeader = "X-Cache"

var responseHopHeaders = []string{
	"Connection",
	"Keep-Alive",
	"Proxy-Authenticate",
	"Proxy-Connection",
	"Te",
	"Trailer",
	"Transfer-Encoding",
	"Upgrade",
}

// InterceptController serves every path the API does not claim, cache-first.
type InterceptController struct {
	fetcher Fetcher
}

func NewInterceptController(fetcher Fetcher) *InterceptController {
	return &InterceptController{fetcher: fetcher}
}

// Serve is registered as the router's NoRoute handler.
func (ic *InterceptController) Serve(c *gin.Context) {
	resp, err := ic.fetcher.Fetch(c.Request)
	if err != nil {
		log.Printf("[CACHE] %s %s: network error: %v", c.Request.Method, c.Request.URL.Path, err)
		respondError(c, http.StatusBadGateway, "origin unreachable", "network")
		return
	}
	defer resp.Body.Close()

	header := c.Writer.Header()
	for k, vs := range resp.Header {
		for _, v := range vs {
			header.Add(k, v)
		}
	}
	for _, h := range responseHopHeaders {
		header.Del(h)
	}
	if resp.Source == intercept.SourceCache {
		header.Set(CacheHeader, "HIT")
	} else {
		header.Set(CacheHeader, "MISS")
	}

	c.Status(resp.Status)
	c.Writer.WriteHeaderNow()
	if _, err := io.Copy(c.Writer, resp.Body); err != nil {
		log.Printf("[CACHE] %s %s: failed to write response: %v", c.Request.Method, c.Request.URL.Path, err)
	}
}
