package http

import "github.com/labstack/echo/v4"

// Handler defines HTTP route registration interface.
type Handler interface {
	RegisterRoutes(e *echo.Echo)
}

// HandlerFunc adapts a route registration function to Handler.
type HandlerFunc func(e *echo.Echo)

func (f HandlerFunc) RegisterRoutes(e *echo.Echo) { f(e) }
