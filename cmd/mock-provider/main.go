// mock-provider is a local OpenAI-compatible upstream used to exercise every
// outcome class of the aquachat streaming client: clean streams, auth
// rejection, rate limiting, server errors, slow responses, and mid-stream
// corruption.
//
// Failure injection via query params:
//
//	?fail=401|429|500|503       respond with that status
//	?fail=timeout               accept, stream one token, then stall
//	?delay=<ms>                 sleep before responding
//	?fail_chunk=<n>             emit malformed JSON at chunk n
package main

import (
	"flag"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
)

var tokens = []string{
	"Healthy", " pond", " water", " needs", " regular", " aeration",
	" and", " pH", " monitoring", ".",
}

func main() {
	port := flag.String("port", "8001", "listen port")
	flag.Parse()

	log.SetFormatter(&log.TextFormatter{
		FullTimestamp: true,
	})

	r := gin.New()
	r.Use(gin.Recovery())

	r.POST("/v1/chat/completions", handleChatCompletion)
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "healthy"})
	})

	log.Infof("Mock LLM provider starting on :%s", *port)
	if err := r.Run(":" + *port); err != nil {
		log.Fatal(err)
	}
}

func handleChatCompletion(c *gin.Context) {
	fail := c.Query("fail")
	delayStr := c.Query("delay")
	failChunk, _ := strconv.Atoi(c.Query("fail_chunk"))

	log.WithFields(log.Fields{
		"fail":       fail,
		"delay":      delayStr,
		"fail_chunk": failChunk,
	}).Info("Received completion request")

	if ms, err := strconv.Atoi(delayStr); err == nil && ms > 0 {
		time.Sleep(time.Duration(ms) * time.Millisecond)
	}

	switch fail {
	case "":
		streamTokens(c, failChunk, false)
	case "timeout":
		// Emit one token, then stall until the client gives up.
		streamTokens(c, 0, true)
	default:
		failWithStatus(c, fail)
	}
}

func failWithStatus(c *gin.Context, fail string) {
	code, err := strconv.Atoi(fail)
	if err != nil || code < 400 || code >= 600 {
		code = http.StatusInternalServerError
	}

	log.Warnf("Simulating failure: %d", code)

	messages := map[int]string{
		http.StatusUnauthorized:       "Incorrect API key provided.",
		http.StatusTooManyRequests:    "Rate limit exceeded. Please retry after some time.",
		http.StatusServiceUnavailable: "Service temporarily unavailable",
	}
	msg, ok := messages[code]
	if !ok {
		msg = fmt.Sprintf("Simulated error %d", code)
	}

	c.JSON(code, gin.H{
		"error": gin.H{
			"message": msg,
			"type":    "simulated_error",
		},
	})
}

func streamTokens(c *gin.Context, failChunk int, stall bool) {
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	c.Stream(func(w io.Writer) bool {
		for i, tok := range tokens {
			num := i + 1

			if failChunk > 0 && num == failChunk {
				log.Warnf("Corrupting chunk %d", num)
				fmt.Fprintf(w, "data: {\"choices\":[{\"delta\":{\"content\":\n\n")
				c.Writer.Flush()
				return false
			}

			data := fmt.Sprintf(`{"object":"chat.completion.chunk","choices":[{"index":0,"delta":{"content":%q},"finish_reason":null}]}`, tok)
			fmt.Fprintf(w, "data: %s\n\n", data)
			c.Writer.Flush()

			if stall && num == 1 {
				log.Info("Stalling stream to simulate timeout")
				time.Sleep(5 * time.Minute)
				return false
			}

			time.Sleep(50 * time.Millisecond)
		}

		fmt.Fprintf(w, "data: %s\n\n", `{"object":"chat.completion.chunk","choices":[{"index":0,"delta":{},"finish_reason":"stop"}]}`)
		fmt.Fprintf(w, "data: [DONE]\n\n")
		c.Writer.Flush()
		return false
	})
}
