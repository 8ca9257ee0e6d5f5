// Package routes names the paths served by the live preview.
package routes

const (
	Root      = "/"
	Source    = "/source"
	Events    = "/events"
	SyntaxCSS = "/syntax.css"
	Health    = "/healthz"
)
