package attendance

import (
	"github.com/gin-gonic/gin"
)

// RegisterRoutes mounts /attendances. auth must populate the actor; guards
// run only on the write endpoints (idempotency, rate limits).
func RegisterRoutes(
	r *gin.RouterGroup,
	handler *Handler,
	auth gin.HandlerFunc,
	guards ...gin.HandlerFunc,
) {
	attendances := r.Group("/attendances")
	attendances.Use(auth)
	{
		attendances.GET("", handler.List)
		attendances.GET("/:id", handler.GetByID)
		attendances.POST("/check-existing", handler.CheckExisting)
	}

	writes := attendances.Group("")
	writes.Use(guards...)
	{
		writes.POST("", handler.Create)
		writes.POST("/bulk", handler.BulkCreate)
		writes.POST("/:id/approve", handler.Approve)
		writes.POST("/:id/reject", handler.Reject)
		writes.DELETE("/:id", handler.Delete)
		writes.POST("/bulk-delete", handler.BulkDelete)
	}
}
