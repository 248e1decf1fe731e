package logging

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Request-scoped fields copied onto every event logged through Info, Warn,
// Error and Debug, including the access log line.
const (
	keyRequestID = "request_id"
	keyStartTime = "start_time"
	keyCameraID  = "camera_id"
	keyEventID   = "event_id"
)

func SetRequestID(c *gin.Context, id string) { c.Set(keyRequestID, id) }
func MarkStart(c *gin.Context)               { c.Set(keyStartTime, time.Now()) }
func SetCamera(c *gin.Context, id string)    { c.Set(keyCameraID, id) }
func SetEvent(c *gin.Context, id string)     { c.Set(keyEventID, id) }

func withGinContext(c *gin.Context, e *zerolog.Event) *zerolog.Event {
	if c == nil {
		return e
	}
	for _, key := range []string{keyRequestID, keyCameraID, keyEventID} {
		if s := c.GetString(key); s != "" {
			e.Str(key, s)
		}
	}
	if v, ok := c.Get(keyStartTime); ok {
		if t, ok2 := v.(time.Time); ok2 {
			e.Dur("duration", time.Since(t))
		}
	}
	return e
}

func Info(c *gin.Context) *zerolog.Event  { return withGinContext(c, log.Info()) }
func Debug(c *gin.Context) *zerolog.Event { return withGinContext(c, log.Debug()) }
func Warn(c *gin.Context) *zerolog.Event  { return withGinContext(c, log.Warn()) }
func Error(c *gin.Context) *zerolog.Event { return withGinContext(c, log.Error()) }
