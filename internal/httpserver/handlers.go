package httpserver

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/yojihun/tutor-demo/internal/credential"
	"github.com/yojihun/tutor-demo/internal/export"
	"github.com/yojihun/tutor-demo/internal/provider"
	"github.com/yojihun/tutor-demo/internal/recording"
	"github.com/yojihun/tutor-demo/internal/session"
	"github.com/yojihun/tutor-demo/internal/speech"
)

// User-facing export notices, shown verbatim by renderers.
const (
	exportSentNotice   = "Sent to Sheets! (Check your sheet)"
	exportFailedNotice = "Error sending to sheets. Check console."
)

// Handlers bundles the controller and its collaborators behind the routes.
type Handlers struct {
	Controller *session.Controller
	Creds      *credential.Store
	Speaker    *speech.Gate
	Exporter   *export.Client
	ExportURL  string // default sheet endpoint from config
	Hub        *Hub
}

func (h Handlers) Register(e *echo.Echo) {
	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	e.POST("/session/level", h.selectLevel)
	e.POST("/session/message", h.message)
	e.POST("/session/voice", h.voice)
	e.POST("/session/end", h.endSession)
	e.POST("/session/back", h.goBack)
	e.POST("/session/restart", h.restart)
	e.GET("/session/transcript", h.transcript)
	e.GET("/session/report", h.report)

	e.POST("/recording/start", h.recordingStart)
	e.POST("/recording/stop", h.recordingStop)

	e.POST("/settings/credential", h.saveCredential)
	e.GET("/settings/mode", h.mode)
	e.POST("/speaker", h.speaker)
	e.POST("/export", h.export)

	if h.Hub != nil {
		e.GET("/events", h.Hub.Serve)
	}
}

func (h Handlers) selectLevel(c echo.Context) error {
	var req struct {
		Level string `json:"level"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("invalid request body"))
	}
	level, err := provider.ParseLevel(req.Level)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody(err.Error()))
	}
	if err := h.Controller.SelectLevel(level); err != nil {
		return h.sessionError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"scene":     h.Controller.Scene(),
		"level":     level,
		"sessionId": h.Controller.SessionID(),
		"messages":  h.Controller.Messages(),
	})
}

func (h Handlers) message(c echo.Context) error {
	var req struct {
		Text string `json:"text"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("invalid request body"))
	}
	done, err := h.Controller.SubmitText(c.Request().Context(), req.Text)
	if err != nil {
		return h.sessionError(c, err)
	}
	<-done
	return c.JSON(http.StatusOK, echo.Map{"messages": h.Controller.Messages()})
}

func (h Handlers) voice(c echo.Context) error {
	var req struct {
		Audio    string `json:"audio"` // base64
		MIMEType string `json:"mimeType"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("invalid request body"))
	}
	data, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		return c.JSON(http.StatusBadRequest, errBody("audio must be base64 encoded"))
	}
	mime := req.MIMEType
	if mime == "" {
		mime = recording.MIMEType
	}
	done, err := h.Controller.SubmitAudio(c.Request().Context(), provider.AudioPayload{Data: data, MIMEType: mime})
	if err != nil {
		return h.sessionError(c, err)
	}
	<-done
	return c.JSON(http.StatusOK, echo.Map{"messages": h.Controller.Messages()})
}

func (h Handlers) endSession(c echo.Context) error {
	done, err := h.Controller.EndSession(c.Request().Context())
	if err != nil {
		return h.sessionError(c, err)
	}
	<-done
	rep, _ := h.Controller.Report()
	return c.JSON(http.StatusOK, echo.Map{"scene": h.Controller.Scene(), "report": rep})
}

func (h Handlers) goBack(c echo.Context) error {
	if err := h.Controller.GoBack(); err != nil {
		return h.sessionError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"scene": h.Controller.Scene()})
}

func (h Handlers) restart(c echo.Context) error {
	if err := h.Controller.Restart(); err != nil {
		return h.sessionError(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"scene": h.Controller.Scene()})
}

func (h Handlers) transcript(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{
		"scene":    h.Controller.Scene(),
		"level":    h.Controller.Level(),
		"mode":     h.Controller.Mode(),
		"messages": h.Controller.Messages(),
	})
}

func (h Handlers) report(c echo.Context) error {
	rep, ok := h.Controller.Report()
	if !ok {
		return c.JSON(http.StatusConflict, errBody("no report available"))
	}
	return c.JSON(http.StatusOK, rep)
}

func (h Handlers) recordingStart(c echo.Context) error {
	err := h.Controller.StartRecording(c.Request().Context())
	switch {
	case errors.Is(err, recording.ErrPermission):
		return c.JSON(http.StatusForbidden, errBody(err.Error()))
	case errors.Is(err, session.ErrWrongScene):
		return c.JSON(http.StatusConflict, errBody(err.Error()))
	case err != nil:
		return c.JSON(http.StatusInternalServerError, errBody(err.Error()))
	}
	return c.JSON(http.StatusOK, echo.Map{"recording": true})
}

func (h Handlers) recordingStop(c echo.Context) error {
	h.Controller.StopRecording()
	return c.JSON(http.StatusOK, echo.Map{"recording": false})
}

func (h Handlers) saveCredential(c echo.Context) error {
	var req struct {
		Key string `json:"key"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("invalid request body"))
	}
	// An empty key switches back to demo mode. The in-memory credential is
	// applied even when persisting fails, so only log the failure.
	if err := h.Creds.Save(req.Key); err != nil {
		c.Logger().Errorf("credential persist failed: %v", err)
	}
	return c.JSON(http.StatusOK, echo.Map{"mode": h.Controller.Mode()})
}

func (h Handlers) mode(c echo.Context) error {
	return c.JSON(http.StatusOK, echo.Map{"mode": h.Controller.Mode()})
}

func (h Handlers) speaker(c echo.Context) error {
	var req struct {
		Enabled *bool `json:"enabled"`
	}
	if err := c.Bind(&req); err != nil || req.Enabled == nil {
		return c.JSON(http.StatusBadRequest, errBody("enabled flag required"))
	}
	h.Speaker.SetEnabled(*req.Enabled)
	return c.JSON(http.StatusOK, echo.Map{"enabled": h.Speaker.Enabled()})
}

func (h Handlers) export(c echo.Context) error {
	var req struct {
		URL string `json:"url"`
	}
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errBody("invalid request body"))
	}
	url := strings.TrimSpace(req.URL)
	if url == "" {
		url = h.ExportURL
	}
	payload, err := h.Controller.ExportPayload()
	if err != nil {
		return h.sessionError(c, err)
	}
	if err := h.Exporter.Send(c.Request().Context(), url, payload); err != nil {
		c.Logger().Errorf("export failed: %v", err)
		return c.JSON(http.StatusBadGateway, echo.Map{"notice": exportFailedNotice})
	}
	return c.JSON(http.StatusOK, echo.Map{"notice": exportSentNotice})
}

func (h Handlers) sessionError(c echo.Context, err error) error {
	switch {
	case errors.Is(err, session.ErrEmptyInput):
		return c.JSON(http.StatusBadRequest, errBody(err.Error()))
	case errors.Is(err, session.ErrWrongScene):
		return c.JSON(http.StatusConflict, errBody(err.Error()))
	default:
		return c.JSON(http.StatusInternalServerError, errBody(err.Error()))
	}
}

func errBody(msg string) echo.Map {
	return echo.Map{"error": msg}
}
