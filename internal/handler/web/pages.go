package web

import (
	"fmt"
	"net/http"

	"github.com/labstack/echo/v4"
)

// PagesHandler serves the chart page and static assets. Everything
// dynamic lives in the frontend code; the page itself never changes.
type PagesHandler struct {
	staticDir string
}

func NewPagesHandler(staticDir string) *PagesHandler {
	return &PagesHandler{staticDir: staticDir}
}

func (h *PagesHandler) RegisterRoutes(e *echo.Echo) {
	e.GET("/", h.Index)
	if h.staticDir != "" {
		e.Static("/static", h.staticDir)
	}
	e.RouteNotFound("/*", h.NotFound)
}

func (h *PagesHandler) Index(c echo.Context) error {
	body := "<div id='price_chart_container'><canvas id='price_chart'></canvas></div><br/>" +
		"<div id='slider'></div><br/>" +
		"<span id='begin'></span> - <span id='end'></span>" +
		"<img src='static/loading.gif' id='spinner'/>"
	head := "<script>$( function() {chart_init();});</script>"
	return c.HTML(http.StatusOK, constructPage("Home - Price Trend", head, body))
}

func (h *PagesHandler) NotFound(c echo.Context) error {
	body := "<h1>Not Found</h1><a href='/'>Return to Home</a>"
	return c.HTML(http.StatusNotFound, constructPage("Not Found - Price Trend", "", body))
}

// constructPage wraps page-specific content in the shared HTML shell.
func constructPage(title, headExtra, body string) string {
	return fmt.Sprintf(`<!DOCTYPE html>
<html>
 <head>
  <meta charset='utf-8'/>
  <meta name='viewport' content='height=device-height, width=device-width, initial-scale=1'/>
  <link rel='shortcut icon' href='static/favicon.ico'/>
  <script src='static/lib/jquery.min.js'></script>
  <script src='static/lib/jquery-ui/jquery-ui.min.js'></script>
  <script src='static/lib/moment-with-locales.js'></script>
  <link rel='stylesheet' href='static/lib/jquery-ui/jquery-ui.min.css'/>
  <script src='static/lib/chartjs/Chart.min.js'></script>
  <link rel='stylesheet' href='static/lib/chartjs/Chart.min.css'/>
  <script src='static/main.js'></script>
  <link rel='stylesheet' href='static/main.css'/>
  %s
  <title>%s</title>
 </head>
 <body>
 %s
 </body>
</html>`,
		headExtra, title, body)
}
