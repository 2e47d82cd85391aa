package handlers

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Router struct {
	Products        *ProductHandlers
	Recommendations *RecommendationHandlers
	Orders          *OrderHandlers
	Health          *HealthHandlers

	// Auth guards writes; OptionalAuth identifies viewers on reads.
	Auth         gin.HandlerFunc
	OptionalAuth gin.HandlerFunc
}

// Register mounts every route on r.
func (rt *Router) Register(r *gin.Engine) {
	r.GET("/healthz", rt.Health.Health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	api := r.Group("/api")
	{
		products := api.Group("/products")
		{
			products.GET("/semantic-search", rt.Products.SemanticSearch)
			products.GET("/top-selling", rt.Products.TopSelling)
			products.GET("/most-viewed", rt.Products.MostViewed)
			products.GET("/:id", rt.OptionalAuth, rt.Products.GetProduct)
			products.POST("", rt.Auth, rt.Products.CreateProduct)
			products.PUT("/:id", rt.Auth, rt.Products.UpdateProduct)
			products.POST("/embeddings/backfill", rt.Auth, rt.Products.BackfillEmbeddings)
		}

		recs := api.Group("/recommendations")
		{
			recs.GET("/hybrid/:userId", rt.Recommendations.Hybrid)
		recs.GET("/user/:userId", rt.Recommendations.ByUserCategories)
			recs.GET("/:productId", rt.Recommendations.ByProduct)
			recs.POST("/activity", rt.Auth, rt.Recommendations.LogActivity)
		}

		api.POST("/orders/completed", rt.Auth, rt.Orders.OrderCompleted)
	}
}
