package restapi

import "github.com/gin-gonic/gin"

// RegisterRoutes mounts the v1 API on the router.
func RegisterRoutes(router *gin.Engine, h *Handler) {
	v1 := router.Group("/api/v1")
	{
		v1.GET("/blocks", h.GetBlocksHandler)
		v1.GET("/block-by-timestamp/:timestamp", h.GetBlockByTimestampHandler)
		v1.GET("/holdings/:address/:days", h.GetHoldingsHandler)
		v1.GET("/holdings-at-block/:address/:block", h.GetHoldingsAtBlockHandler)
		v1.GET("/apy/strk", h.GetSTRKAPYHandler)
		v1.GET("/apy/btc", h.GetBTCAssetsHandler)
		v1.GET("/apy/btc/:asset", h.GetBTCAPYHandler)
	}
}
