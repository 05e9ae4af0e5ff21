// Package swagger serves the OpenAPI document and the Swagger UI.
package swagger

import (
	_ "embed"
	"net/http"

	"github.com/gin-gonic/gin"
	httpSwagger "github.com/swaggo/http-swagger/v2"
)

// DocPath is the route of the OpenAPI document under the swagger group.
const DocPath = "/users.swagger.json"

//go:embed users.swagger.json
var doc []byte

// Doc returns the embedded OpenAPI document.
func Doc() []byte {
	return doc
}

// Register mounts the UI and document at prefix, e.g. "/swagger".
func Register(r gin.IRoutes, prefix string) {
	ui := gin.WrapH(httpSwagger.Handler(httpSwagger.URL(prefix + DocPath)))

	r.GET(prefix+"/*any", func(c *gin.Context) {
		if c.Param("any") == DocPath {
			c.Data(http.StatusOK, "application/json; charset=utf-8", doc)
			return
		}
		ui(c)
	})
}
