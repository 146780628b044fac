// Asynqmon serves the web dashboard for the Vayu background task queues
// (email delivery, blog fan-out, newsletter digest).
package main

import (
	"log"
	"net/http"
	"os"

	"github.com/hibiken/asynq"
	"github.com/hibiken/asynqmon"
)

func main() {
	redisAddr := os.Getenv("REDIS_ADDRESS")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	port := os.Getenv("ASYNQMON_PORT")
	if port == "" {
		port = "8090"
	}

	mon := asynqmon.New(asynqmon.Options{
		RootPath:     "/asynqmon",
		RedisConnOpt: asynq.RedisClientOpt{Addr: redisAddr},
	})

	log.Printf("Vayu task monitor listening on :%s (redis %s)", port, redisAddr)
	log.Fatal(http.ListenAndServe(":"+port, mon))
}
