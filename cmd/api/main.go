package main

import (
	"os"

	"github.com/gin-gonic/gin"
)

func main() {
	if os.Getenv("APP_ENV") == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	Serve()
}
