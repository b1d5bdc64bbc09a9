package main

import (
	"context"
	"log"
	"os"

	"github.com/candidatos-info/validadores/metrics"
	"github.com/candidatos-info/validadores/store"
	"github.com/labstack/echo"
	"github.com/labstack/echo/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	basicAuthUserName := os.Getenv("USER_NAME")
	basicAuthPassword := os.Getenv("PASSWORD")
	baseDir := os.Getenv("BASE_DIR")
	if baseDir == "" {
		baseDir = os.TempDir()
	}
	repo, closeRepo, err := store.Open(context.Background(), store.Config{
		DBURL:            os.Getenv("MONGO_URL"),
		DBName:           os.Getenv("DB_NAME"),
		DatastoreProject: os.Getenv("DATASTORE_PROJECT"),
	})
	if err != nil {
		log.Fatalf("falha ao se conectar com banco, erro %v", err)
	}
	defer closeRepo()
	metrics.Init()
	e := echo.New()
	if basicAuthUserName != "" || basicAuthPassword != "" {
		e.Use(middleware.BasicAuth(func(username, password string, c echo.Context) (bool, error) {
			return (username == basicAuthUserName && password == basicAuthPassword), nil
		}))
	} else {
		log.Println("USER_NAME and PASSWORD not set, basic auth disabled")
	}
	newHandler(repo, baseDir).register(e)
	e.GET("/metrics", echo.WrapHandler(promhttp.Handler()))
	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8080"
	}
	log.Println("server online at ", port)
	log.Fatal(e.Start(":" + port))
}
