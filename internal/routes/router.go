package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"tasklist/internal/controller"
	"tasklist/internal/middleware"
)

// RPCPrefix is where the tasks.* procedures are mounted.
const RPCPrefix = "/rpc/"

// Router mounts the procedures and probes and wraps them with CORS.
func Router(tasks *controller.Tasks, origins []string) http.Handler {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	// Health for load balancers and K8s probes
	router.GET("/health", tasks.Health)
	router.GET("/ready", tasks.Ready)

	rpc := router.Group(RPCPrefix)
	rpc.Use(middleware.RequestLogger())
	{
		rpc.GET(controller.ProcList, tasks.List)
		rpc.POST(controller.ProcCreate, tasks.Create)
		rpc.POST(controller.ProcUpdate, tasks.Update)
		rpc.POST(controller.ProcDelete, tasks.Delete)
		rpc.GET(controller.ProcSubscribe, tasks.Subscribe)
	}

	return middleware.CORS(router, origins)
}
